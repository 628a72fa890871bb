// Package cache wraps github.com/redis/go-redis/v9 as a TTL cache in
// front of the prediction repository: a memoization layer keyed on
// (player, gameweek, model version) so a retried or re-triggered workflow
// run never recomputes (or re-reports) a prediction that already exists
// for that exact key.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jolyonbrown/ronclanker/internal/domain"
)

// PredictionCache memoizes Predictor output by key.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps an existing go-redis client with a fixed memoization TTL.
func New(client *redis.Client, ttl time.Duration) *PredictionCache {
	return &PredictionCache{client: client, ttl: ttl}
}

func key(playerID, gameweek int, modelVersion string) string {
	return fmt.Sprintf("ronclanker:prediction:%d:%d:%s", playerID, gameweek, modelVersion)
}

// Get returns the memoized prediction, if present and unexpired.
func (c *PredictionCache) Get(ctx context.Context, playerID, gameweek int, modelVersion string) (domain.Prediction, bool, error) {
	raw, err := c.client.Get(ctx, key(playerID, gameweek, modelVersion)).Bytes()
	if err == redis.Nil {
		return domain.Prediction{}, false, nil
	}
	if err != nil {
		return domain.Prediction{}, false, fmt.Errorf("prediction cache: get: %w", err)
	}

	var p domain.Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Prediction{}, false, fmt.Errorf("prediction cache: unmarshal: %w", err)
	}
	return p, true, nil
}

// Set memoizes a prediction under the configured TTL.
func (c *PredictionCache) Set(ctx context.Context, p domain.Prediction) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("prediction cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, key(p.PlayerID, p.Gameweek, p.ModelVersion), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("prediction cache: set: %w", err)
	}
	return nil
}

// Invalidate drops a memoized prediction, used when upstream data the
// prediction depended on is known to have changed mid-cycle.
func (c *PredictionCache) Invalidate(ctx context.Context, playerID, gameweek int, modelVersion string) error {
	if err := c.client.Del(ctx, key(playerID, gameweek, modelVersion)).Err(); err != nil {
		return fmt.Errorf("prediction cache: invalidate: %w", err)
	}
	return nil
}
