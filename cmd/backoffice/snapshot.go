package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/backoffice"
	"github.com/thomasjacksonsantos/querysync/codec"
	"github.com/thomasjacksonsantos/querysync/config"
	"github.com/thomasjacksonsantos/querysync/genstore"
	"github.com/thomasjacksonsantos/querysync/provider"
	"github.com/thomasjacksonsantos/querysync/provider/bigcache"
	"github.com/thomasjacksonsantos/querysync/provider/memory"
	qsredis "github.com/thomasjacksonsantos/querysync/provider/redis"
	"github.com/thomasjacksonsantos/querysync/provider/ristretto"
	"github.com/thomasjacksonsantos/querysync/resource"
	"github.com/thomasjacksonsantos/querysync/snapshot"
)

const redisPrefix = "backoffice"

// snapshotBackend builds the byte store and the generation store. Both are
// shared by every namespace store and closed by the registry.
func snapshotBackend(cfg *config.Config) (provider.Provider, genstore.GenStore, error) {
	local := func() genstore.GenStore { return genstore.NewLocalGenStore(cfg.SnapshotTTL, 2*cfg.SnapshotTTL) }
	switch cfg.SnapshotProvider {
	case "memory":
		return memory.New(nil), local(), nil
	case "bigcache":
		p, err := bigcache.New(bigcache.Config{LifeWindow: cfg.SnapshotTTL, Shards: 64, MaxEntriesInWindow: 10_000})
		if err != nil {
			return nil, nil, err
		}
		return p, local(), nil
	case "ristretto":
		p, err := ristretto.New(ristretto.Config{NumCounters: 100_000, MaxCost: 64 << 20, BufferItems: 64})
		if err != nil {
			return nil, nil, err
		}
		return p, local(), nil
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		// The generation store owns the client and closes it.
		p, err := qsredis.New(qsredis.Config{Client: rdb, Prefix: redisPrefix + ":"})
		if err != nil {
			return nil, nil, err
		}
		return p, genstore.NewRedisGenStoreWithTTL(rdb, redisPrefix, 2*cfg.SnapshotTTL), nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot provider %q", cfg.SnapshotProvider)
	}
}

type binder struct {
	reg  *snapshot.Registry
	prov provider.Provider
	gens genstore.GenStore
	cfg  *config.Config
	log  querysync.Logger
}

// newPersister registers a list store and an item store for every catalog
// resource. The returned GenStore is owned by the registry.
func newPersister(cfg *config.Config, log querysync.Logger) (*snapshot.Registry, genstore.GenStore, error) {
	prov, gens, err := snapshotBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	reg := snapshot.NewRegistry()
	reg.OnClose(prov.Close)
	reg.OnClose(gens.Close)
	b := binder{reg: reg, prov: prov, gens: gens, cfg: cfg, log: log}

	err = errors.Join(
		bindResource[backoffice.Customer](b, backoffice.CustomerDef),
		bindResource[backoffice.Vehicle](b, backoffice.VehicleDef),
		bindResource[backoffice.ProductGroup](b, backoffice.ProductGroupDef),
		bindResource[backoffice.PaymentForm](b, backoffice.PaymentFormDef),
		bindResource[backoffice.Supplier](b, backoffice.SupplierDef),
		bindResource[backoffice.ServiceOrder](b, backoffice.ServiceOrderDef),
		bindResource[backoffice.CardBrand](b, backoffice.CardBrandDef),
		bindResource[backoffice.ManualEntry](b, backoffice.ManualEntryDef),
		bindResource[backoffice.Onboarding](b, backoffice.OnboardingDef),
	)
	if err != nil {
		_ = reg.Close(context.Background())
		return nil, nil, err
	}
	return reg, gens, nil
}

func bindResource[T any](b binder, def resource.Definition) error {
	if err := bindStore[resource.Paged[T]](b, def.ListNamespace); err != nil {
		return err
	}
	return bindStore[T](b, def.ItemNamespace)
}

func bindStore[V any](b binder, namespace string) error {
	c, err := codec.ByName[V](b.cfg.SnapshotCodec)
	if err != nil {
		return err
	}
	s, err := snapshot.New(snapshot.Options[V]{
		Namespace:      namespace,
		Provider:       b.prov,
		Codec:          codec.Limit[V]{Inner: c, MaxEncode: b.cfg.SnapshotMaxBytes, MaxDecode: b.cfg.SnapshotMaxBytes},
		GenStore:       b.gens,
		TTL:            b.cfg.SnapshotTTL,
		SharedProvider: true,
		Logger:         b.log,
	})
	if err != nil {
		return err
	}
	return snapshot.Register(b.reg, s)
}
