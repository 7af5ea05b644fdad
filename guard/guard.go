package guard

import (
	"path"
	"strings"

	"blogpost/domain"
)

// Capability is what a rule demands of the principal. None admits anyone.
type Capability string

const (
	None      Capability = ""
	RoleAdmin Capability = domain.RolePrefix + domain.RoleAdmin
)

type Rule struct {
	Pattern  string
	Requires Capability
}

type Decision int

const (
	Admit Decision = iota
	// Unauthenticated means the rule needs a role and no principal was
	// presented.
	Unauthenticated
	Forbidden
	// NoMatch means no rule covered the path.
	NoMatch
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NoMatch:
		return "no-match"
	}
	return "unknown"
}

// DefaultRules protects the admin page and lets everything else through.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/admin.html", Requires: RoleAdmin},
		{Pattern: "*", Requires: None},
	}
}

// Guard is safe for concurrent use; its rules never change after New.
type Guard struct {
	rules []Rule
}

func New(rules ...Rule) *Guard {
	return &Guard{rules: append([]Rule(nil), rules...)}
}

// Evaluate checks urlPath against the rules on behalf of p.
func (g *Guard) Evaluate(urlPath string, p domain.Principal) Decision {
	rule, ok := g.match(urlPath)
	if !ok {
		return NoMatch
	}
	if rule.Requires == None {
		return Admit
	}
	if !p.Authenticated() {
		return Unauthenticated
	}
	if p.HasRole(string(rule.Requires)) {
		return Admit
	}
	return Forbidden
}

func (g *Guard) match(urlPath string) (Rule, bool) {
	urlPath = cleanPath(urlPath)
	for _, r := range g.rules {
		if Match(r.Pattern, urlPath) {
			return r, true
		}
	}
	return Rule{}, false
}

// Match reports whether urlPath matches pattern. "*" and "/**" match any
// path, a trailing "/**" matches a whole subtree and anything else is a
// path.Match glob.
func Match(pattern, urlPath string) bool {
	switch {
	case pattern == "*" || pattern == "/**":
		return true
	case strings.HasSuffix(pattern, "/**"):
		prefix := strings.TrimSuffix(pattern, "/**")
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	ok, err := path.Match(pattern, urlPath)
	return err == nil && ok
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
