package server

import (
	"context"
	"fmt"
	"time"

	"anoo/middleware"
	"anoo/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// quotaCounter is the fast-path quota store: a day-scoped atomic counter.
type quotaCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration)
	// Get returns the counter value and whether the key exists.
	Get(ctx context.Context, key string) (int64, bool, error)
}

// generationLedger is the durable record of generations and the fallback
// counter when the fast path is down.
type generationLedger interface {
	CountImagesSince(deviceID string, since time.Time) (int64, error)
	Append(gen models.Generation) error
}

type redisCounter struct {
	rdb *redis.Client
}

func (c redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c redisCounter) Decr(ctx context.Context, key string) error {
	return c.rdb.Decr(ctx, key).Err()
}

func (c redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) {
	c.rdb.Expire(ctx, key, ttl)
}

func (c redisCounter) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := c.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

type gormLedger struct {
	db *gorm.DB
}

func (l gormLedger) CountImagesSince(deviceID string, since time.Time) (int64, error) {
	var used int64
	err := l.db.Model(&models.Generation{}).
		Where("device_id = ? AND kind = ? AND created_at >= ?", deviceID, models.GenerationKindImage, since).
		Count(&used).Error
	return used, err
}

func (l gormLedger) Append(gen models.Generation) error {
	return l.db.Create(&gen).Error
}

// Quota enforces the per-device daily AI generation limit. The fast path is
// an atomic INCR on a day-scoped key; the ledger is the durable record and
// the fallback counter when the fast path is down. With neither available
// the quota fails open, matching the rate limiter's policy.
type Quota struct {
	counter quotaCounter
	ledger  generationLedger
	limit   int
}

// NewQuota builds a quota over Redis and the Postgres ledger with the
// configured daily limit. Either backend may be absent.
func NewQuota(rdb *redis.Client, db *gorm.DB, limit int) *Quota {
	if limit <= 0 {
		limit = 5
	}
	q := &Quota{limit: limit}
	if rdb != nil {
		q.counter = redisCounter{rdb: rdb}
	}
	if db != nil {
		q.ledger = gormLedger{db: db}
	}
	return q
}

// Limit returns the configured daily limit.
func (q *Quota) Limit() int {
	return q.limit
}

func quotaKey(deviceID string, now time.Time) string {
	return fmt.Sprintf("aigen:%s:%s", deviceID, now.UTC().Format("20060102"))
}

func untilMidnightUTC(now time.Time) time.Duration {
	now = now.UTC()
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return midnight.Sub(now)
}

func dayStartUTC(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

// Reserve atomically claims one generation slot for today. Callers must
// Release on upstream failure so failed generations don't consume quota.
func (q *Quota) Reserve(ctx context.Context, deviceID string) (bool, error) {
	now := time.Now()

	if q.counter != nil {
		key := quotaKey(deviceID, now)
		cnt, err := q.counter.Incr(ctx, key)
		if err == nil {
			if cnt == 1 {
				q.counter.Expire(ctx, key, untilMidnightUTC(now))
			}
			if cnt > int64(q.limit) {
				_ = q.counter.Decr(ctx, key)
				return false, nil
			}
			return true, nil
		}
		// Counter error: fall through to the ledger.
	}

	if q.ledger != nil {
		// Count-then-insert is not race-safe; acceptable for the degraded
		// path, the counter path is the normal one.
		used, err := q.ledger.CountImagesSince(deviceID, dayStartUTC(now))
		if err != nil {
			return true, err
		}
		return used < int64(q.limit), nil
	}

	return true, nil
}

// Release returns a reserved slot after an upstream failure.
func (q *Quota) Release(ctx context.Context, deviceID string) {
	if q.counter == nil {
		return
	}
	key := quotaKey(deviceID, time.Now())
	if err := q.counter.Decr(ctx, key); err != nil {
		middleware.Logger.Warn("quota release failed", "device", deviceID, "error", err.Error())
	}
}

// Remaining reports how many generations the device has left today.
func (q *Quota) Remaining(ctx context.Context, deviceID string) int {
	now := time.Now()

	if q.counter != nil {
		used, found, err := q.counter.Get(ctx, quotaKey(deviceID, now))
		if err == nil {
			if !found {
				return q.limit
			}
			return clampRemaining(q.limit, used)
		}
		// Counter error: fall through to the ledger.
	}

	if q.ledger != nil {
		used, err := q.ledger.CountImagesSince(deviceID, dayStartUTC(now))
		if err == nil {
			return clampRemaining(q.limit, used)
		}
	}

	return q.limit
}

// Record appends a successful generation to the ledger.
func (q *Quota) Record(deviceID, kind, promptHash string) {
	if q.ledger == nil {
		return
	}
	gen := models.Generation{
		DeviceID:   deviceID,
		Kind:       kind,
		PromptHash: promptHash,
	}
	if err := q.ledger.Append(gen); err != nil {
		middleware.Logger.Warn("ledger write failed", "device", deviceID, "error", err.Error())
	}
}

func clampRemaining(limit int, used int64) int {
	remaining := limit - int(used)
	if remaining < 0 {
		return 0
	}
	return remaining
}
