package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viccon/sturdyc"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/transport"
)

const (
	DefaultTokenPath  = "/auth/session/token"
	DefaultDeletePath = "/auth/session"

	tokenKey = "access-token"
)

// ErrTokenExpired is returned when the session endpoint keeps handing out a
// token whose exp claim has already passed.
var ErrTokenExpired = errors.New("session: token expired")

// errSignedOut is the fetch outcome for a 401 or an empty token. It is never
// cached.
var errSignedOut = errors.New("session: signed out")

type EndpointOptions struct {
	// Doer talks to the session endpoints. It must not draw its own tokens
	// from this Endpoint.
	Doer       transport.Doer
	Session    *AuthSession
	TokenPath  string        // default DefaultTokenPath
	DeletePath string        // default DefaultDeletePath
	TTL        time.Duration // upper bound for caching a token; 0 => 5m
	// Leeway treats a token as expired this long before its exp claim.
	Leeway time.Duration // 0 => 30s
	Logger querysync.Logger
	Clock  func() time.Time
}

// Endpoint is the client of the session endpoints. It implements
// transport.TokenSource.
type Endpoint struct {
	doer       transport.Doer
	session    *AuthSession
	tokenPath  string
	deletePath string
	leeway     time.Duration
	log        querysync.Logger
	now        func() time.Time
	cache      *sturdyc.Client[string]
	parser     *jwt.Parser
}

var _ transport.TokenSource = (*Endpoint)(nil)

func NewEndpoint(opts EndpointOptions) (*Endpoint, error) {
	if opts.Doer == nil {
		return nil, errors.New("session: Doer is required")
	}
	if opts.Session == nil {
		return nil, errors.New("session: Session is required")
	}
	if opts.TTL < 0 || opts.Leeway < 0 {
		return nil, errors.New("session: negative TTL or Leeway")
	}
	e := &Endpoint{
		doer:       opts.Doer,
		session:    opts.Session,
		tokenPath:  coalesce(opts.TokenPath, DefaultTokenPath),
		deletePath: coalesce(opts.DeletePath, DefaultDeletePath),
		leeway:     opts.Leeway,
		log:        opts.Logger,
		now:        opts.Clock,
		parser:     jwt.NewParser(),
	}
	if e.leeway == 0 {
		e.leeway = 30 * time.Second
	}
	if e.log == nil {
		e.log = querysync.NopLogger{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	// One key; a small single-shard client is enough.
	e.cache = sturdyc.New[string](8, 1, ttl, 10)
	return e, nil
}

// Token returns the bearer token of the current session, "" when signed out.
// Concurrent callers share one request to the token endpoint.
func (e *Endpoint) Token(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tok, err := e.cache.GetOrFetch(ctx, tokenKey, e.fetch)
		switch {
		case errors.Is(err, errSignedOut):
			e.session.Resolve(false)
			return "", nil
		case err != nil:
			return "", err
		}
		if !e.expired(tok) {
			e.session.Resolve(true)
			return tok, nil
		}
		e.cache.Delete(tokenKey)
	}
	e.log.Warn("token endpoint returned an expired token", nil)
	return "", ErrTokenExpired
}

// Delete ends the server-side session and drops the cached token.
func (e *Endpoint) Delete(ctx context.Context) error {
	e.cache.Delete(tokenKey)
	if err := e.doer.Do(ctx, http.MethodDelete, e.deletePath, nil, nil); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// Forget drops the cached token without calling the backend.
func (e *Endpoint) Forget() { e.cache.Delete(tokenKey) }

func (e *Endpoint) fetch(ctx context.Context) (string, error) {
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	err := e.doer.Do(ctx, http.MethodGet, e.tokenPath, nil, &body)
	switch {
	case errors.Is(err, transport.ErrUnauthorized):
		return "", errSignedOut
	case err != nil:
		return "", fmt.Errorf("session: token: %w", err)
	case body.AccessToken == "":
		return "", errSignedOut
	}
	return body.AccessToken, nil
}

// expired reports whether a JWT's exp claim is within leeway. Opaque tokens
// never expire here; the cache TTL bounds them.
func (e *Endpoint) expired(tok string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := e.parser.ParseUnverified(tok, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !e.now().Add(e.leeway).Before(claims.ExpiresAt.Time)
}

func coalesce(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
