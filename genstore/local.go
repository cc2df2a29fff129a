package genstore

import (
	"context"
	"sync"
	"time"
)

type localGen struct {
	Gen       uint64
	UpdatedAt time.Time
}

// LocalGenStore keeps generations in-process. Generations reset to 0 on
// restart, so pair it with an in-process provider (bigcache, ristretto,
// memory); a shared provider needs RedisGenStore.
type LocalGenStore struct {
	mu     sync.RWMutex
	gens   map[string]localGen
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
}

var _ GenStore = (*LocalGenStore)(nil)

// NewLocalGenStore creates the store. With cleanupInterval and retention both
// positive a background loop drops namespaces not bumped for retention.
func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{gens: make(map[string]localGen)}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalGenStore) Current(_ context.Context, namespace string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[namespace]
	s.mu.RUnlock()
	return e.Gen, nil
}

// CurrentMany reads all namespaces under one read lock.
func (s *LocalGenStore) CurrentMany(_ context.Context, namespaces []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(namespaces))
	s.mu.RLock()
	for _, ns := range namespaces {
		out[ns] = s.gens[ns].Gen
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, namespace string) (uint64, error) {
	now := time.Now()
	s.mu.Lock()
	e := s.gens[namespace]
	e.Gen++
	e.UpdatedAt = now
	s.gens[namespace] = e
	s.mu.Unlock()
	return e.Gen, nil
}

// Cleanup forgets namespaces not bumped within retention. A forgotten
// namespace reads as generation 0 again, so retention must exceed the
// snapshot TTL or a snapshot older than the last bump becomes readable.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for ns, e := range s.gens {
		if !e.UpdatedAt.IsZero() && e.UpdatedAt.Before(cutoff) {
			delete(s.gens, ns)
		}
	}
	s.mu.Unlock()
}

func (s *LocalGenStore) Close(_ context.Context) error {
	if s.stopCh != nil {
		close(s.stopCh)
		s.ticker.Stop()
		s.wg.Wait()
		s.stopCh = nil
	}
	return nil
}
