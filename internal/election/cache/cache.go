// Package cache holds the election results cache. Results tolerate short
// staleness, so reads go through Redis with a small TTL while every accepted
// vote invalidates the election's entry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"civitas/internal/election/models"
	id "civitas/pkg/domain"
)

// ResultsCache caches computed election results.
type ResultsCache interface {
	Get(ctx context.Context, electionID id.ElectionID) (*models.Results, bool, error)
	Set(ctx context.Context, results *models.Results) error
	Invalidate(ctx context.Context, electionID id.ElectionID) error
}

// Redis is the production results cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func resultsKey(electionID id.ElectionID) string {
	return "election:results:" + electionID.String()
}

func (c *Redis) Get(ctx context.Context, electionID id.ElectionID) (*models.Results, bool, error) {
	raw, err := c.client.Get(ctx, resultsKey(electionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached results: %w", err)
	}
	var results models.Results
	if err := json.Unmarshal(raw, &results); err != nil {
		// Treat a corrupt entry as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return &results, true, nil
}

func (c *Redis) Set(ctx context.Context, results *models.Results) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := c.client.Set(ctx, resultsKey(results.ElectionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached results: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, electionID id.ElectionID) error {
	if err := c.client.Del(ctx, resultsKey(electionID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached results: %w", err)
	}
	return nil
}
