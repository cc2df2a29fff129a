package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/backoffice"
	"github.com/thomasjacksonsantos/querysync/config"
	"github.com/thomasjacksonsantos/querysync/genstore"
	asynchook "github.com/thomasjacksonsantos/querysync/hooks/async"
	qslogrus "github.com/thomasjacksonsantos/querysync/log/logrus"
	qsslog "github.com/thomasjacksonsantos/querysync/log/slog"
	qszap "github.com/thomasjacksonsantos/querysync/log/zap"
	"github.com/thomasjacksonsantos/querysync/session"
	"github.com/thomasjacksonsantos/querysync/sloghooks"
	"github.com/thomasjacksonsantos/querysync/snapshot"
	"github.com/thomasjacksonsantos/querysync/transport"
)

// app is the wired client stack: transport, session, cache and catalog.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	session *session.AuthSession
	sync    *querysync.Client
	catalog *backoffice.Catalog
	hooks   *asynchook.Hooks
	// snapshots and gens are nil unless the snapshot store is enabled.
	snapshots *snapshot.Registry
	gens      genstore.GenStore
}

func newZap(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

// libraryLogger picks the adapter the querysync packages log through.
func libraryLogger(cfg *config.Config, zl *zap.Logger, w io.Writer) querysync.Logger {
	switch strings.ToLower(cfg.LogBackend) {
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			l.SetLevel(lvl)
		}
		return qslogrus.New(l)
	case "slog":
		return qsslog.Logger{L: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(cfg.LogLevel)}))}
	default:
		return qszap.New(zl)
	}
}

func slogLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func newApp(cfg *config.Config, zl *zap.Logger, logOut io.Writer) (*app, error) {
	qlog := libraryLogger(cfg, zl, logOut)
	a := &app{cfg: cfg, log: zl, session: session.New()}

	plain, err := transport.New(transport.Options{BaseURL: cfg.APIBaseURL, Timeout: cfg.HTTPTimeout, Logger: qlog})
	if err != nil {
		return nil, err
	}
	var (
		tokens   transport.TokenSource
		endpoint *session.Endpoint
	)
	if cfg.APIToken != "" {
		tok := cfg.APIToken
		tokens = transport.TokenFunc(func(context.Context) (string, error) { return tok, nil })
		a.session.Resolve(true)
	} else {
		endpoint, err = session.NewEndpoint(session.EndpointOptions{
			Doer:       plain,
			Session:    a.session,
			TokenPath:  cfg.TokenPath,
			DeletePath: cfg.SessionPath,
			Logger:     qlog,
		})
		if err != nil {
			return nil, err
		}
		tokens = endpoint
	}

	nav := session.NavigatorFunc(func(loc string) {
		zl.Warn("session ended, sign in again", zap.String("location", loc))
	})
	var deleter session.Deleter
	if endpoint != nil {
		deleter = endpoint
	}
	api, err := transport.New(transport.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.HTTPTimeout,
		Tokens:         tokens,
		OnUnauthorized: session.Teardown(deleter, a.session, nav, cfg.SignInPath, qlog),
		Logger:         qlog,
	})
	if err != nil {
		return nil, err
	}

	slogger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slogLevel(cfg.LogLevel)}))
	a.hooks = asynchook.New(sloghooks.New(slogger, sloghooks.Options{SlowFetch: cfg.SlowFetch}), 1, cfg.HookQueueSize)

	opts := querysync.Options{
		Logger:    qlog,
		Hooks:     a.hooks,
		StaleTime: cfg.StaleTime,
		GCTime:    cfg.GCTime,
	}
	if cfg.SnapshotEnabled {
		reg, gens, err := newPersister(cfg, qlog)
		if err != nil {
			a.hooks.Close()
			return nil, fmt.Errorf("snapshot store: %w", err)
		}
		opts.Persister = reg
		a.snapshots, a.gens = reg, gens
	}
	a.sync, err = querysync.New(opts)
	if err != nil {
		a.hooks.Close()
		if opts.Persister != nil {
			_ = opts.Persister.Close(context.Background())
		}
		return nil, err
	}
	a.catalog = backoffice.New(api, a.sync)
	return a, nil
}

// Close stops the cache (and its persister) before draining the hook queue.
func (a *app) Close(ctx context.Context) error {
	err := a.sync.Close(ctx)
	a.hooks.Close()
	if d := a.hooks.Dropped(); d > 0 {
		a.log.Warn("hook events dropped", zap.Uint64("count", d))
	}
	_ = a.log.Sync()
	return err
}
