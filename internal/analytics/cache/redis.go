// Package cache provides a Redis read-through cache for the latest analytics
// snapshot. Snapshots are advisory reporting data, so cache failures degrade
// to store reads and are never surfaced to callers as faults.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cohort/internal/analytics/models"
	id "cohort/pkg/domain"
)

// TTL bounds staleness between explicit refreshes.
const TTL = 5 * time.Minute

type Snapshots struct {
	client *redis.Client
}

func New(client *redis.Client) *Snapshots {
	return &Snapshots{client: client}
}

func key(orgID id.OrganizationID) string {
	return fmt.Sprintf("analytics:latest:%d", orgID)
}

// Get returns the cached latest snapshot, or (nil, nil) on miss or any cache
// error.
func (c *Snapshots) Get(ctx context.Context, orgID id.OrganizationID) (*models.Snapshot, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, key(orgID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

// Set stores the latest snapshot with the cache TTL.
func (c *Snapshots) Set(ctx context.Context, snap *models.Snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key(snap.OrganizationID), raw, TTL).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot for an organization.
func (c *Snapshots) Invalidate(ctx context.Context, orgID id.OrganizationID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key(orgID)).Err()
}
