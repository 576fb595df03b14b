package utils

import "strings"

// QuoteIdentPG quotes an identifier for PostgreSQL and DuckDB: "na""me"
func QuoteIdentPG(s string) string {
	if s == "" {
		return `""`
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteIdentMySQL quotes an identifier for MySQL: `na``me`
func QuoteIdentMySQL(s string) string {
	if s == "" {
		return "``"
	}
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
