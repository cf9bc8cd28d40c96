package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/registry"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/config"
	"github.com/schemaflow/schemaflow/pkg/database"
	"github.com/schemaflow/schemaflow/pkg/logger"
)

// appContext holds the lazily-built service graph shared by every command.
// Connections open on first use so commands that fail flag parsing never
// touch the database.
type appContext struct {
	logger   *logger.Logger
	config   *config.Config
	tenantID string

	db    *database.PostgreSQL
	redis *database.Redis
	store store.Store
	pub   events.Publisher
}

// openStore connects to Postgres and, when configured, layers the Redis
// read-through cache and event publisher on top. Redis being down degrades
// to uncached operation rather than failing the command.
func (a *appContext) openStore(ctx context.Context) (store.Store, events.Publisher, error) {
	if a.store != nil {
		return a.store, a.pub, nil
	}

	db, err := database.New(ctx, database.FromGlobalConfig(a.config))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	a.db = db

	pg := store.NewPostgresStore(db, a.tenantID, a.logger)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	var st store.Store = pg
	a.pub = events.NewLogPublisher(a.logger)

	if a.config.Get("redis.host") != "" {
		redis, err := database.NewRedis(ctx, database.RedisFromGlobalConfig(a.config))
		if err != nil {
			a.logger.Warnf("Redis unavailable, running without cache: %v", err)
		} else {
			a.redis = redis
			st = store.NewCachedStore(st, redis, store.DefaultSchemaCacheTTL, a.logger)
			a.pub = events.NewRedisPublisher(redis, events.DefaultChannel, a.logger)
		}
	}

	a.store = st
	return a.store, a.pub, nil
}

func (a *appContext) newRegistry() *registry.Registry {
	return registry.New(registry.Deps{
		Store:     a.store,
		Cache:     a.redis,
		Publisher: a.pub,
		Logger:    a.logger,
	}, 0)
}

func (a *appContext) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// printJSON renders a command result to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
