// Package filters parses the table widget's filter expressions, e.g.
//
//	{life_exp} > 70 && {country} like 'United'
//
// into typed clauses. Fragments that do not parse are skipped; callers that want to
// know about them install a drop hook.
package filters

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"reportPortal/types"
)

// Delimiter joins clauses. There is no OR, NOT or grouping.
const Delimiter = " && "

var (
	ErrNoOperator = errors.New("no operator after column reference")
	ErrNoColumn   = errors.New("missing or empty {column} reference")
	ErrEmptyValue = errors.New("missing value")
)

type operator struct {
	token string
	op    types.Op
}

// operators are tried in this order. Within a group the symbolic token comes first and
// word aliases follow. The table widget prefixes word operators with i or s for its
// case toggle; both spellings map to the plain operator.
var operators = []operator{
	{">=", types.OpGe}, {"ge ", types.OpGe}, {"ige ", types.OpGe}, {"sge ", types.OpGe},
	{"<=", types.OpLe}, {"le ", types.OpLe}, {"ile ", types.OpLe}, {"sle ", types.OpLe},
	{"<", types.OpLt}, {"lt ", types.OpLt}, {"ilt ", types.OpLt}, {"slt ", types.OpLt},
	{">", types.OpGt}, {"gt ", types.OpGt}, {"igt ", types.OpGt}, {"sgt ", types.OpGt},
	{"<>", types.OpNe}, {"ne ", types.OpNe}, {"ine ", types.OpNe}, {"sne ", types.OpNe}, {"!=", types.OpNe},
	{"=", types.OpEq}, {"eq ", types.OpEq}, {"ieq ", types.OpEq}, {"seq ", types.OpEq},
	{"like ", types.OpContains}, {"contains ", types.OpContains},
	{"icontains ", types.OpContains}, {"scontains ", types.OpContains},
}

var quoteChars = "'\"`"

// DropFunc receives every fragment that yielded no clause and the reason.
type DropFunc func(fragment string, reason error)

type Option func(*parser)

// WithDropHook reports skipped fragments to fn.
func WithDropHook(fn DropFunc) Option {
	return func(p *parser) { p.drop = fn }
}

type parser struct {
	drop DropFunc
}

// Parse splits expr on Delimiter and parses every fragment. Malformed fragments are
// dropped; the result is never nil-vs-empty sensitive.
func Parse(expr string, opts ...Option) []types.FilterClause {
	p := &parser{}
	for _, o := range opts {
		o(p)
	}
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	var out []types.FilterClause
	for _, frag := range strings.Split(expr, Delimiter) {
		c, err := ParseClause(frag)
		if err != nil {
			if p.drop != nil {
				p.drop(frag, err)
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// ParseClause parses a single "{column} op value" fragment.
func ParseClause(frag string) (types.FilterClause, error) {
	open := strings.IndexByte(frag, '{')
	if open < 0 {
		return types.FilterClause{}, ErrNoColumn
	}
	// The operator must follow a closing brace. Scanning closing braces left to right keeps
	// braces inside the value out of the column name while still taking the widest span.
	for i := open + 1; i < len(frag); i++ {
		if frag[i] != '}' {
			continue
		}
		rest := strings.TrimLeft(frag[i+1:], " \t")
		op, ok := matchOperator(rest)
		if !ok {
			continue
		}
		column := frag[open+1 : i]
		if column == "" {
			return types.FilterClause{}, ErrNoColumn
		}
		value, ok := parseValue(rest[len(op.token):], op.op != types.OpContains)
		if !ok {
			return types.FilterClause{}, ErrEmptyValue
		}
		return types.FilterClause{Column: column, Op: op.op, Value: value}, nil
	}
	if !strings.Contains(frag[open:], "}") {
		return types.FilterClause{}, ErrNoColumn
	}
	return types.FilterClause{}, ErrNoOperator
}

// matchOperator returns the first operator in table order that starts s, unless its
// token is a proper prefix of another token that also starts s.
func matchOperator(s string) (operator, bool) {
	for _, cand := range operators {
		if !strings.HasPrefix(s, cand.token) {
			continue
		}
		if shadowed(s, cand.token) {
			continue
		}
		return cand, true
	}
	return operator{}, false
}

func shadowed(s, tok string) bool {
	for _, other := range operators {
		if len(other.token) > len(tok) && strings.HasPrefix(other.token, tok) && strings.HasPrefix(s, other.token) {
			return true
		}
	}
	return false
}

// parseValue unquotes raw. Unquoted text becomes a number when numeric is set and it
// parses as one; CONTAINS keeps the text as typed so "007" stays "007".
func parseValue(raw string, numeric bool) (types.Value, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return types.Value{}, false
	}
	if len(v) >= 2 {
		q := v[0]
		if strings.IndexByte(quoteChars, q) >= 0 && v[len(v)-1] == q {
			inner := v[1 : len(v)-1]
			return types.String(strings.ReplaceAll(inner, `\`+string(q), string(q))), true
		}
	}
	if !numeric {
		return types.String(v), true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return types.Number(f), true
	}
	return types.String(v), true
}
