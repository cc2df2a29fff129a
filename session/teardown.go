package session

import (
	"context"
	"sync/atomic"

	"github.com/thomasjacksonsantos/querysync"
)

// Navigator performs forced navigation (a browser redirect, a CLI message).
type Navigator interface {
	Navigate(location string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(location string)

func (f NavigatorFunc) Navigate(location string) { f(location) }

// Deleter ends the server-side session; *Endpoint implements it.
type Deleter interface {
	Delete(ctx context.Context) error
}

// Teardown returns the handler the transport runs on a 401: delete the server
// session (best effort), sign the local session out and navigate to
// signInPath. navigator and endpoint may be nil.
//
// Concurrent 401s share one teardown: calls arriving while one runs return
// at once. Once the session is signed out there is no server session left,
// so later calls only navigate.
func Teardown(endpoint Deleter, s *AuthSession, navigator Navigator, signInPath string, log querysync.Logger) func(ctx context.Context) {
	if log == nil {
		log = querysync.NopLogger{}
	}
	var running atomic.Bool
	return func(ctx context.Context) {
		if !running.CompareAndSwap(false, true) {
			return
		}
		defer running.Store(false)

		if endpoint != nil && s.Status() != StatusUnauthenticated {
			if err := endpoint.Delete(ctx); err != nil {
				log.Warn("session delete failed during teardown", querysync.Fields{"err": err})
			}
		}
		s.Teardown()
		if navigator != nil {
			navigator.Navigate(signInPath)
		}
	}
}
