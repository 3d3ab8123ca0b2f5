// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// shortCooldownKey is a hash of user id -> epoch seconds at which the
	// user's short cooldown expires.
	shortCooldownKey = "duel:cooldowns"
	// dailyUsageKey is a hash of user id -> authorizations consumed in the
	// current rollover cycle.
	dailyUsageKey = "duel:daily_usage"
	// watermarkKey holds the shared rollover watermark, formatted with
	// WatermarkLayout so values are string-comparable across processes.
	watermarkKey = "duel:cooldown_reset"
)

// WatermarkLayout is the timestamp format of the shared rollover watermark.
const WatermarkLayout = "01/02/2006, 15:04:05"

var errWatermarkMoved = errors.New("watermark moved")

// Store is the shared cooldown state the gate reads and writes. The wired
// implementation is Redis; tests may substitute their own.
type Store interface {
	ShortCooldown(ctx context.Context, userID string) (time.Time, error)
	SetShortCooldown(ctx context.Context, userID string, expiry time.Time) error
	DailyUsage(ctx context.Context, userID string) (int, error)
	IncrementDailyUsage(ctx context.Context, userID string) error
	// Watermark returns the shared watermark, or "" when unset.
	Watermark(ctx context.Context) (string, error)
	// InitWatermark sets the watermark if absent and returns the value in
	// effect afterwards.
	InitWatermark(ctx context.Context, value string) (string, error)
	// AdvanceWatermark atomically replaces the watermark and clears the
	// daily usage map, seeding the caller's count to zero. It succeeds only
	// when the watermark still equals previous, so concurrent rollover
	// observers perform exactly one reset between them. Returns false when
	// another process advanced the watermark first.
	AdvanceWatermark(ctx context.Context, previous, next, userID string) (bool, error)
}

// RedisStore implements Store on a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) ShortCooldown(ctx context.Context, userID string) (time.Time, error) {
	raw, err := s.client.HGet(ctx, shortCooldownKey, userID).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get short cooldown for user %s: %w", userID, err)
	}

	epoch, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logrus.Warnf("invalid short cooldown value %q for user %s, treating as expired", raw, userID)
		return time.Time{}, nil
	}

	return time.Unix(int64(epoch), 0), nil
}

func (s *RedisStore) SetShortCooldown(ctx context.Context, userID string, expiry time.Time) error {
	if err := s.client.HSet(ctx, shortCooldownKey, userID, strconv.FormatInt(expiry.Unix(), 10)).Err(); err != nil {
		return fmt.Errorf("failed to set short cooldown for user %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) DailyUsage(ctx context.Context, userID string) (int, error) {
	raw, err := s.client.HGet(ctx, dailyUsageKey, userID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get daily usage for user %s: %w", userID, err)
	}

	used, err := strconv.Atoi(raw)
	if err != nil {
		logrus.Warnf("invalid daily usage value %q for user %s, treating as zero", raw, userID)
		return 0, nil
	}

	return used, nil
}

func (s *RedisStore) IncrementDailyUsage(ctx context.Context, userID string) error {
	if err := s.client.HIncrBy(ctx, dailyUsageKey, userID, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment daily usage for user %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Watermark(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, watermarkKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get rollover watermark: %w", err)
	}
	return value, nil
}

func (s *RedisStore) InitWatermark(ctx context.Context, value string) (string, error) {
	set, err := s.client.SetNX(ctx, watermarkKey, value, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to initialize rollover watermark: %w", err)
	}
	if set {
		logrus.Infof("initialized rollover watermark to %s", value)
		return value, nil
	}

	return s.Watermark(ctx)
}

func (s *RedisStore) AdvanceWatermark(ctx context.Context, previous, next, userID string) (bool, error) {
	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, watermarkKey).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to read watermark in transaction: %w", err)
		}
		if current != previous {
			return errWatermarkMoved
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, watermarkKey, next, 0)
			pipe.Del(ctx, dailyUsageKey)
			pipe.HSet(ctx, dailyUsageKey, userID, "0")
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, watermarkKey)
	if errors.Is(err, errWatermarkMoved) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to advance rollover watermark: %w", err)
	}

	logrus.Infof("advanced rollover watermark %s -> %s, daily usage cleared", previous, next)
	return true, nil
}
