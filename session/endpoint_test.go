package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thomasjacksonsantos/querysync/transport"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

type tokenServer struct {
	calls   atomic.Int32
	deletes atomic.Int32
	mu      sync.Mutex
	tokens  []string // served in order; the last one repeats
	status  int
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodDelete && r.URL.Path == "/api/auth/session":
		s.deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && r.URL.Path == "/api/auth/session/token":
		n := int(s.calls.Add(1))
		s.mu.Lock()
		status, tokens := s.status, s.tokens
		s.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		tok := tokens[min(n, len(tokens))-1]
		_, _ = io.WriteString(w, fmt.Sprintf(`{"accessToken":%q}`, tok))
	default:
		http.NotFound(w, r)
	}
}

func newEndpoint(t *testing.T, srv *tokenServer) (*Endpoint, *AuthSession) {
	t.Helper()
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)
	doer, err := transport.New(transport.Options{BaseURL: hs.URL + "/api"})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	s := New()
	e, err := NewEndpoint(EndpointOptions{
		Doer:    doer,
		Session: s,
		Clock:   func() time.Time { return epoch },
	})
	if err != nil {
		t.Fatalf("NewEndpoint: %v", err)
	}
	return e, s
}

func TestEndpointCachesToken(t *testing.T) {
	srv := &tokenServer{tokens: []string{signed(t, epoch.Add(time.Hour))}}
	e, s := newEndpoint(t, srv)

	for i := 0; i < 3; i++ {
		tok, err := e.Token(context.Background())
		if err != nil || tok == "" {
			t.Fatalf("Token = %q, %v", tok, err)
		}
	}
	if got := srv.calls.Load(); got != 1 {
		t.Fatalf("token endpoint calls = %d, want 1", got)
	}
	if !s.Authenticated() {
		t.Fatalf("session = %v", s.Status())
	}
}

func TestEndpointRefetchesExpiredToken(t *testing.T) {
	fresh := signed(t, epoch.Add(time.Hour))
	srv := &tokenServer{tokens: []string{signed(t, epoch.Add(10*time.Second)), fresh}}
	e, _ := newEndpoint(t, srv)

	tok, err := e.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != fresh {
		t.Fatalf("got the token inside the leeway window")
	}
	if got := srv.calls.Load(); got != 2 {
		t.Fatalf("token endpoint calls = %d, want 2", got)
	}
}

func TestEndpointGivesUpOnPersistentlyExpiredToken(t *testing.T) {
	srv := &tokenServer{tokens: []string{signed(t, epoch.Add(-time.Minute))}}
	e, _ := newEndpoint(t, srv)
	if _, err := e.Token(context.Background()); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestEndpointOpaqueTokenIsAccepted(t *testing.T) {
	srv := &tokenServer{tokens: []string{"opaque-token"}}
	e, _ := newEndpoint(t, srv)
	if tok, err := e.Token(context.Background()); err != nil || tok != "opaque-token" {
		t.Fatalf("Token = %q, %v", tok, err)
	}
}

func TestEndpointSignedOut(t *testing.T) {
	srv := &tokenServer{status: http.StatusUnauthorized}
	e, s := newEndpoint(t, srv)

	tok, err := e.Token(context.Background())
	if err != nil || tok != "" {
		t.Fatalf("Token = %q, %v", tok, err)
	}
	if s.Status() != StatusUnauthenticated {
		t.Fatalf("session = %v", s.Status())
	}

	// Signed-out answers are not cached.
	srv.mu.Lock()
	srv.status, srv.tokens = 0, []string{"after-sign-in"}
	srv.mu.Unlock()
	if tok, _ := e.Token(context.Background()); tok != "after-sign-in" {
		t.Fatalf("Token after sign-in = %q", tok)
	}
}

func TestEndpointServerErrorLeavesSessionUnknown(t *testing.T) {
	srv := &tokenServer{status: http.StatusBadGateway}
	e, s := newEndpoint(t, srv)
	var se *transport.StatusError
	if _, err := e.Token(context.Background()); !errors.As(err, &se) || se.Status != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
	if !s.Loading() {
		t.Fatalf("session = %v", s.Status())
	}
}

func TestEndpointDeleteDropsCachedToken(t *testing.T) {
	srv := &tokenServer{tokens: []string{"a", "b"}}
	e, _ := newEndpoint(t, srv)
	if tok, _ := e.Token(context.Background()); tok != "a" {
		t.Fatalf("first token = %q", tok)
	}
	if err := e.Delete(context.Background()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if srv.deletes.Load() != 1 {
		t.Fatalf("delete endpoint not called")
	}
	if tok, _ := e.Token(context.Background()); tok != "b" {
		t.Fatalf("token after delete = %q", tok)
	}
}
