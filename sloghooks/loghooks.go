// Package sloghooks logs querysync lifecycle events to a *slog.Logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/thomasjacksonsantos/querysync"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	FetchEvery   uint64
	DiscardEvery uint64
	// SlowFetch logs settled fetches taking longer at warn level regardless
	// of sampling. 0 disables.
	SlowFetch time.Duration
	// Optional key redactor. Keys carry search terms and ids; defaults to a
	// SHA-256 prefix. Use func(k string) string { return k } to log as is.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	fetchCtr   atomic.Uint64
	discardCtr atomic.Uint64
}

var _ querysync.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchStarted(key string, gen uint64, reason string) {
	if h.l == nil || !sample(h.opts.FetchEvery, &h.fetchCtr) {
		return
	}
	h.l.Debug("querysync.fetch_started",
		"key", h.redact(key),
		"gen", gen,
		"reason", reason)
}

func (h *Hooks) FetchSettled(key string, gen uint64, err error, took time.Duration) {
	if h.l == nil {
		return
	}
	switch {
	case err != nil:
		h.l.Warn("querysync.fetch_failed",
			"key", h.redact(key),
			"gen", gen,
			"took", took,
			"err", err)
	case h.opts.SlowFetch > 0 && took > h.opts.SlowFetch:
		h.l.Warn("querysync.fetch_slow",
			"key", h.redact(key),
			"gen", gen,
			"took", took)
	}
}

func (h *Hooks) ResultDiscarded(key string, gen uint64) {
	if h.l == nil || !sample(h.opts.DiscardEvery, &h.discardCtr) {
		return
	}
	h.l.Debug("querysync.result_discarded",
		"key", h.redact(key),
		"gen", gen)
}

func (h *Hooks) Invalidated(pattern string, matched int) {
	if h.l == nil {
		return
	}
	h.l.Info("querysync.invalidated",
		"pattern", h.redact(pattern),
		"matched", matched)
}

func (h *Hooks) EntryCollected(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("querysync.entry_collected", "key", h.redact(key))
}

func (h *Hooks) MutationFailed(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("querysync.mutation_failed",
		"mutation", name,
		"err", err)
}

func (h *Hooks) PersistError(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("querysync.persist_error",
		"key", h.redact(key),
		"op", op,
		"err", err)
}
