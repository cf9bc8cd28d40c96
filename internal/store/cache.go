package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/schemaflow/schemaflow/pkg/database"
	"github.com/schemaflow/schemaflow/pkg/logger"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// DefaultSchemaCacheTTL bounds staleness of cached branch schemas
const DefaultSchemaCacheTTL = 30 * time.Second

// CachedStore decorates a Store with a Redis read-through cache for branch
// schemas. Cache failures degrade to direct store reads; only the inner
// store's errors are ever surfaced.
type CachedStore struct {
	Store

	redis  *database.Redis
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedStore wraps inner with a Redis schema cache
func NewCachedStore(inner Store, redis *database.Redis, ttl time.Duration, logger *logger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultSchemaCacheTTL
	}
	return &CachedStore{
		Store:  inner,
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

func schemaCacheKey(branch string) string {
	return "schemaflow:schema:" + branch
}

// GetSchema serves the branch schema from Redis when fresh, falling back to
// the inner store and repopulating the cache.
func (s *CachedStore) GetSchema(ctx context.Context, branch string) (schema.Schema, error) {
	key := schemaCacheKey(branch)

	data, err := s.redis.Client().Get(ctx, key).Bytes()
	if err == nil {
		var cached schema.Schema
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warnf("Discarding undecodable cached schema for branch %s", branch)
	}

	fresh, err := s.Store.GetSchema(ctx, branch)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(fresh); err == nil {
		if err := s.redis.Client().Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warnf("Failed to cache schema for branch %s: %v", branch, err)
		}
	}

	return fresh, nil
}

// UpdateBranchHead invalidates the cached schema before moving the pointer
func (s *CachedStore) UpdateBranchHead(ctx context.Context, branch, commitID string) error {
	if err := s.redis.Client().Del(ctx, schemaCacheKey(branch)).Err(); err != nil {
		s.logger.Warnf("Failed to invalidate cached schema for branch %s: %v", branch, err)
	}
	return s.Store.UpdateBranchHead(ctx, branch, commitID)
}

// DeleteBranch drops the branch and its cached schema
func (s *CachedStore) DeleteBranch(ctx context.Context, branch string) error {
	if err := s.redis.Client().Del(ctx, schemaCacheKey(branch)).Err(); err != nil {
		s.logger.Warnf("Failed to invalidate cached schema for branch %s: %v", branch, err)
	}
	return s.Store.DeleteBranch(ctx, branch)
}

// Invalidate drops one branch's cached schema explicitly
func (s *CachedStore) Invalidate(ctx context.Context, branch string) error {
	if err := s.redis.Client().Del(ctx, schemaCacheKey(branch)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate schema cache for %s: %w", branch, err)
	}
	return nil
}
