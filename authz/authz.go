// Package authz decides what a portal role may do. The caller's role comes from the
// external identity provider; this package only maps it to permissions.
package authz

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"
	"github.com/pkg/errors"
)

const (
	PermRead  = "user-read"
	PermWrite = "user-write"
)

// Known lists every permission a role can be granted, in display order.
var Known = []string{PermRead, PermWrite}

//go:embed model.conf policy.csv
var embedFS embed.FS

type Authorizer struct {
	enforcer *casbin.Enforcer
}

// New loads the embedded role model and policy.
func New() (*Authorizer, error) {
	dir, err := os.MkdirTemp("", "portal-casbin-*")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"model.conf", "policy.csv"} {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), filepath.Join(dir, "policy.csv"))
	if err != nil {
		return nil, errors.Wrap(err, "load role policy")
	}
	return &Authorizer{enforcer: e}, nil
}

// Can reports whether role holds perm. Unknown roles hold nothing.
func (a *Authorizer) Can(role, perm string) (bool, error) {
	if role == "" {
		return false, nil
	}
	ok, err := a.enforcer.Enforce(role, perm)
	return ok, errors.WithStack(err)
}

// Permissions lists the permissions role holds.
func (a *Authorizer) Permissions(role string) ([]string, error) {
	out := []string{}
	for _, p := range Known {
		ok, err := a.Can(role, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Editable reports whether rows shown to role may be edited.
func (a *Authorizer) Editable(role string) (bool, error) {
	return a.Can(role, PermWrite)
}
