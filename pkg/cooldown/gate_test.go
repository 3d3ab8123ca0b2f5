// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cooldown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func fullCaps() service.ChannelCapabilities {
	return service.ChannelCapabilities{SendMessages: true, EmbedLinks: true, AttachFiles: true}
}

func TestAuthorize_MissingCapability(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	gate := NewGate(NewRedisStore(client), Config{})
	if err := gate.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	decision, err := gate.Authorize(ctx, "user-1", service.ChannelCapabilities{SendMessages: true})
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	if decision.Allowed {
		t.Error("Authorize() allowed despite missing capabilities")
	}
	if decision.Reason != ReasonCapability {
		t.Errorf("Reason = %v, expected ReasonCapability", decision.Reason)
	}

	// A capability denial must not touch the store.
	if mr.Exists(shortCooldownKey) {
		t.Error("short cooldown written on capability denial")
	}
	if mr.Exists(dailyUsageKey) {
		t.Error("daily usage written on capability denial")
	}
}

func TestAuthorize_ShortCooldownWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	gate := NewGate(NewRedisStore(client), Config{})
	if err := gate.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	first, err := gate.Authorize(ctx, "user-1", fullCaps())
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !first.Allowed {
		t.Fatalf("first Authorize() denied: reason %v", first.Reason)
	}
	if first.DailyUsed != 1 {
		t.Errorf("DailyUsed = %d, expected 1", first.DailyUsed)
	}

	second, err := gate.Authorize(ctx, "user-1", fullCaps())
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if second.Allowed {
		t.Fatal("second Authorize() within the window was allowed")
	}
	if second.Reason != ReasonShortCooldown {
		t.Errorf("Reason = %v, expected ReasonShortCooldown", second.Reason)
	}
	if second.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, expected > 0", second.RetryAfter)
	}
	if second.RetryAfter > DefaultWindow {
		t.Errorf("RetryAfter = %v, expected <= %v", second.RetryAfter, DefaultWindow)
	}

	// Another user is unaffected by user-1's window.
	other, err := gate.Authorize(ctx, "user-2", fullCaps())
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if !other.Allowed {
		t.Errorf("Authorize() for another user denied: reason %v", other.Reason)
	}
}

func TestAuthorize_DailyLimitReached(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	gate := NewGate(NewRedisStore(client), Config{})
	if err := gate.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	mr.HSet(dailyUsageKey, "user-1", "50")

	decision, err := gate.Authorize(ctx, "user-1", fullCaps())
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	if decision.Allowed {
		t.Fatal("Authorize() allowed past the daily limit")
	}
	if decision.Reason != ReasonDailyLimit {
		t.Errorf("Reason = %v, expected ReasonDailyLimit", decision.Reason)
	}
	if decision.DailyUsed != 50 {
		t.Errorf("DailyUsed = %d, expected 50", decision.DailyUsed)
	}

	// Denial must leave both tiers untouched.
	if mr.HGet(dailyUsageKey, "user-1") != "50" {
		t.Errorf("daily usage = %s, expected unchanged 50", mr.HGet(dailyUsageKey, "user-1"))
	}
	if mr.HGet(shortCooldownKey, "user-1") != "" {
		t.Error("short cooldown written on daily-limit denial")
	}
}

// countingStore wraps a Store and counts successful watermark advances.
type countingStore struct {
	Store
	advances int64
}

func (s *countingStore) AdvanceWatermark(ctx context.Context, previous, next, userID string) (bool, error) {
	advanced, err := s.Store.AdvanceWatermark(ctx, previous, next, userID)
	if advanced {
		atomic.AddInt64(&s.advances, 1)
	}
	return advanced, err
}

func TestAuthorize_RolloverResetsExactlyOnce(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	// A watermark from more than one cycle ago, shared by all processes.
	stale := time.Now().Add(-25 * time.Hour)
	mr.Set(watermarkKey, stale.Format(WatermarkLayout))

	// Every user is already at the cap; only a rollover can let them in.
	users := []string{"user-0", "user-1", "user-2", "user-3", "user-4"}
	for _, u := range users {
		mr.HSet(dailyUsageKey, u, "50")
	}

	counting := &countingStore{Store: NewRedisStore(client)}

	// One gate per simulated process, all with the stale watermark cached.
	gates := make([]*Gate, len(users))
	for i := range gates {
		gates[i] = NewGate(counting, Config{})
		if err := gates[i].Init(ctx); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	}

	var wg sync.WaitGroup
	decisions := make([]Decision, len(users))
	errs := make([]error, len(users))
	for i := range gates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = gates[i].Authorize(ctx, users[i], fullCaps())
		}(i)
	}
	wg.Wait()

	for i := range users {
		if errs[i] != nil {
			t.Fatalf("Authorize() error for %s: %v", users[i], errs[i])
		}
		if !decisions[i].Allowed {
			t.Errorf("Authorize() for %s denied after rollover: reason %v", users[i], decisions[i].Reason)
		}
	}

	if got := atomic.LoadInt64(&counting.advances); got != 1 {
		t.Errorf("watermark advanced %d times, expected exactly 1", got)
	}

	// Each user consumed exactly one authorization in the fresh cycle.
	for _, u := range users {
		if mr.HGet(dailyUsageKey, u) != "1" {
			t.Errorf("daily usage for %s = %s, expected 1", u, mr.HGet(dailyUsageKey, u))
		}
	}

	if got, _ := client.Get(ctx, watermarkKey).Result(); got == stale.Format(WatermarkLayout) {
		t.Error("watermark was not advanced")
	}
}

func TestGate_AdoptsForeignWatermarkWithoutReset(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	gate := NewGate(NewRedisStore(client), Config{})
	if err := gate.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Another process rolled over and users have already consumed budget
	// in the new cycle.
	fresh := time.Now().Format(WatermarkLayout)
	mr.Set(watermarkKey, fresh)
	mr.HSet(dailyUsageKey, "user-1", "7")

	// Force the cached copy stale so the grace re-read kicks in.
	gate.mu.Lock()
	gate.lastRead = time.Now().Add(-time.Minute)
	gate.mu.Unlock()

	decision, err := gate.Authorize(ctx, "user-1", fullCaps())
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	if !decision.Allowed {
		t.Fatalf("Authorize() denied: reason %v", decision.Reason)
	}
	if decision.DailyUsed != 8 {
		t.Errorf("DailyUsed = %d, expected 8 (existing counter preserved)", decision.DailyUsed)
	}
	if gate.watermarkRaw != fresh {
		t.Errorf("cached watermark = %s, expected adoption of %s", gate.watermarkRaw, fresh)
	}
}

func TestWatermarkLayout_RoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 27, 13, 45, 9, 0, time.Local)
	raw := now.Format(WatermarkLayout)

	parsed, err := time.ParseInLocation(WatermarkLayout, raw, time.Local)
	if err != nil {
		t.Fatalf("ParseInLocation() error = %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("round trip = %v, expected %v", parsed, now)
	}
}
