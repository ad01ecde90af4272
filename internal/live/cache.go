package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/teamvine/matchday/internal/models"
)

// Snapshot TTLs. Live matches poll every couple of seconds, so a short TTL
// absorbs the fan-out while the ledger stays at most one TTL behind; the
// clock is re-derived on every read. Completed matches no longer change and
// can live longer.
const (
	LiveSnapshotTTL      = 2 * time.Second
	CompletedSnapshotTTL = 5 * time.Minute
)

// SnapshotCache caches rendered session snapshots in Redis, keyed by token
// and viewer so perspective and permissions never leak between users. A nil
// *SnapshotCache is a no-op, letting deployments run without Redis.
type SnapshotCache struct {
	client *redis.Client
}

func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	return &SnapshotCache{client: client}
}

func snapshotKey(token, viewerID uuid.UUID) string {
	return fmt.Sprintf("live:%s:viewer:%s", token, viewerID)
}

// Get returns the cached snapshot, or nil on miss. The clock fields are
// rolled forward to now before returning, so elapsed and remaining time keep
// moving between cache refreshes while the timer runs.
func (c *SnapshotCache) Get(ctx context.Context, token, viewerID uuid.UUID) *SessionSnapshot {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, snapshotKey(token, viewerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("snapshot cache read failed")
		return nil
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Msg("snapshot cache entry corrupt")
		return nil
	}
	refreshClock(&snap, time.Now())
	return &snap
}

// refreshClock advances a snapshot's derived clock fields from its generation
// time to now. Paused clocks only get a fresh GeneratedAt.
func refreshClock(snap *SessionSnapshot, now time.Time) {
	if snap.Clock.TimerRunning {
		delta := int(now.Sub(snap.GeneratedAt) / time.Second)
		if delta > 0 {
			snap.Clock.ElapsedSec += delta
			snap.Clock.RemainingSec -= delta
			if snap.Clock.RemainingSec < 0 {
				snap.Clock.RemainingSec = 0
			}
		}
	}
	snap.GeneratedAt = now
}

// Put stores a snapshot with a TTL derived from match state. Failures are
// logged and swallowed; the cache is purely an optimization.
func (c *SnapshotCache) Put(ctx context.Context, token, viewerID uuid.UUID, snap *SessionSnapshot) {
	if c == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal snapshot for cache")
		return
	}
	ttl := LiveSnapshotTTL
	if snap.Status == models.MatchStatusCompleted {
		ttl = CompletedSnapshotTTL
	}
	if err := c.client.Set(ctx, snapshotKey(token, viewerID), data, ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("snapshot cache write failed")
	}
}

// Invalidate drops all cached views of one match after a mutation. Viewer
// keys share the token prefix, so a scan-and-delete keeps mutations visible
// on the next poll instead of one TTL later.
func (c *SnapshotCache) Invalidate(ctx context.Context, token uuid.UUID) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("live:%s:viewer:*", token)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("snapshot cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			log.Warn().Err(err).Msg("snapshot cache invalidation failed")
		}
	}
}
