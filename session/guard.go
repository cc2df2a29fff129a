package session

import (
	"net/url"
	"strings"
)

type DecisionKind int

const (
	// DecisionLoading means the session is unresolved; show a spinner and
	// check again on the next change.
	DecisionLoading DecisionKind = iota
	DecisionAllow
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionLoading:
		return "loading"
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "invalid"
	}
}

// Decision is the outcome of Guard.Check. Location is set for redirects.
type Decision struct {
	Kind     DecisionKind
	Location string
}

const DefaultReturnParam = "callbackUrl"

// Guard protects routes behind the session. Paths equal to SignInPath or
// under one of the Public prefixes are always allowed.
type Guard struct {
	Session     *AuthSession
	SignInPath  string
	ReturnParam string // default DefaultReturnParam
	Public      []string
}

func (g Guard) Check(path string) Decision {
	if g.public(path) {
		return Decision{Kind: DecisionAllow}
	}
	switch g.Session.Status() {
	case StatusUnknown:
		return Decision{Kind: DecisionLoading}
	case StatusAuthenticated:
		return Decision{Kind: DecisionAllow}
	default:
		return Decision{Kind: DecisionRedirect, Location: g.signIn(path)}
	}
}

func (g Guard) public(path string) bool {
	p := stripQuery(path)
	if g.SignInPath != "" && p == stripQuery(g.SignInPath) {
		return true
	}
	for _, pre := range g.Public {
		if p == pre || strings.HasPrefix(p, strings.TrimRight(pre, "/")+"/") {
			return true
		}
	}
	return false
}

func (g Guard) signIn(from string) string {
	param := g.ReturnParam
	if param == "" {
		param = DefaultReturnParam
	}
	sep := "?"
	if strings.Contains(g.SignInPath, "?") {
		sep = "&"
	}
	return g.SignInPath + sep + param + "=" + url.QueryEscape(from)
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}
