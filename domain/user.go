package domain

import (
	"errors"
	"slices"
	"strings"
)

const (
	RoleAdmin  = "ADMIN"
	RolePrefix = "ROLE_"
)

// ErrBadCredentials is returned by authenticators for an unknown user, a
// disabled user or a wrong password.
var ErrBadCredentials = errors.New("bad credentials")

// Credential is a username/password pair as presented by a client.
type Credential struct {
	Username string
	Password string
}

// Principal is the identity a request runs as. The zero value is anonymous.
type Principal struct {
	Username string
	Roles    []string
}

func Anonymous() Principal {
	return Principal{}
}

func (p Principal) Authenticated() bool {
	return p.Username != ""
}

// HasRole reports whether the principal holds role. Both "ADMIN" and
// "ROLE_ADMIN" spellings are accepted, for role and for the held roles.
func (p Principal) HasRole(role string) bool {
	if !p.Authenticated() {
		return false
	}
	want := Authority(role)
	return slices.ContainsFunc(p.Roles, func(r string) bool { return Authority(r) == want })
}

// Authority returns the stored form of a role label.
func Authority(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}
