package datasource

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	ProtocolPostgres = "postgres"
	ProtocolMySQL    = "mysql"
	ProtocolDuckDB   = "duckdb"
)

// URL holds what is needed to reach a data source, except for the password.
// For duckdb, Database is the file path and Host is empty.
type URL struct {
	Protocol string
	User     string
	Host     string
	Port     uint16
	Database string
	Params   map[string]string
}

// ParseURL parses e.g. postgres://portal@db:5432/portal?sslmode=disable or
// duckdb:///var/lib/portal/portal.duckdb.
func ParseURL(x string) (*URL, error) {
	u, err := url.Parse(x)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	params := make(map[string]string)
	for k, v := range u.Query() {
		if len(v) > 0 {
			params[k] = v[len(v)-1]
		}
	}
	if u.Scheme == ProtocolDuckDB {
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		return &URL{Protocol: u.Scheme, Database: path, Params: params}, nil
	}
	var port uint64
	switch u.Scheme {
	case ProtocolMySQL:
		port = 3306
	case ProtocolPostgres, "postgresql":
		port = 5432
	default:
		return nil, errors.Errorf("database protocol %q not supported", u.Scheme)
	}
	if p := u.Port(); p != "" {
		port, err = strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, errors.Errorf("port %q must be a number between 0 and 65535", p)
		}
	}
	return &URL{
		Protocol: u.Scheme,
		Host:     u.Hostname(),
		Port:     uint16(port),
		User:     u.User.Username(),
		Database: strings.Trim(u.Path, "/"),
		Params:   params,
	}, nil
}

// String renders the URL without any password.
func (u *URL) String() string {
	if u.Protocol == ProtocolDuckDB {
		return (&url.URL{Scheme: u.Protocol, Path: u.Database}).String()
	}
	out := &url.URL{
		Scheme: u.Protocol,
		Host:   net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port))),
		Path:   "/" + u.Database,
	}
	if u.User != "" {
		out.User = url.User(u.User)
	}
	return out.String()
}
