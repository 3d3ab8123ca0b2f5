// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/metrics"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultWindow is the exclusive short-cooldown window per user.
	DefaultWindow = 20 * time.Second
	// DefaultDailyLimit is the number of authorizations per rollover cycle.
	DefaultDailyLimit = 50
	// DefaultCycle is the rollover cycle length.
	DefaultCycle = 24 * time.Hour
	// DefaultGrace is how stale the cached watermark may get before the
	// gate re-reads the shared copy.
	DefaultGrace = 5 * time.Second
)

// DenialReason classifies why an authorization was denied.
type DenialReason int

const (
	ReasonNone DenialReason = iota
	// ReasonCapability: the channel lacks send/embed/attach capability.
	// Distinct from rate denials so callers can word the response.
	ReasonCapability
	// ReasonShortCooldown: the user is inside the exclusive window.
	ReasonShortCooldown
	// ReasonDailyLimit: the user exhausted the per-cycle budget.
	ReasonDailyLimit
)

func (r DenialReason) String() string {
	switch r {
	case ReasonCapability:
		return "capability"
	case ReasonShortCooldown:
		return "short_cooldown"
	case ReasonDailyLimit:
		return "daily_limit"
	default:
		return "none"
	}
}

// Decision is the outcome of one authorization attempt.
type Decision struct {
	Allowed    bool
	Reason     DenialReason
	RetryAfter time.Duration
	DailyUsed  int
}

// Config holds the gate's tunables. Zero values fall back to the defaults.
type Config struct {
	Window     time.Duration
	DailyLimit int
	Cycle      time.Duration
	Grace      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = DefaultDailyLimit
	}
	if c.Cycle <= 0 {
		c.Cycle = DefaultCycle
	}
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	return c
}

// Gate is the layered rate limiter in front of duel session creation. It is
// safe for concurrent use; the shared store is the only cross-process state.
type Gate struct {
	store Store
	cfg   Config

	mu           sync.Mutex
	watermarkRaw string
	watermark    time.Time
	lastRead     time.Time

	now func() time.Time
}

func NewGate(store Store, cfg Config) *Gate {
	return &Gate{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// Init seeds the shared watermark if this is the first process to start and
// caches it locally. Call once at startup.
func (g *Gate) Init(ctx context.Context) error {
	now := g.now()
	value, err := g.store.InitWatermark(ctx, now.Format(WatermarkLayout))
	if err != nil {
		return fmt.Errorf("failed to init cooldown gate: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adoptWatermarkLocked(value, now)
}

// Authorize decides whether the user may start a duel right now. On allow it
// consumes one daily authorization and opens the short-cooldown window; on
// deny it leaves the store untouched.
func (g *Gate) Authorize(ctx context.Context, userID string, caps service.ChannelCapabilities) (Decision, error) {
	if !caps.Basic() {
		metrics.CooldownDenialsTotal.WithLabelValues(ReasonCapability.String()).Inc()
		return Decision{Reason: ReasonCapability}, nil
	}

	now := g.now()

	expiry, err := g.store.ShortCooldown(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if remaining := expiry.Sub(now); remaining > 0 {
		metrics.CooldownDenialsTotal.WithLabelValues(ReasonShortCooldown.String()).Inc()
		return Decision{Reason: ReasonShortCooldown, RetryAfter: remaining}, nil
	}

	used, err := g.dailyUsage(ctx, userID, now)
	if err != nil {
		return Decision{}, err
	}
	if used >= g.cfg.DailyLimit {
		metrics.CooldownDenialsTotal.WithLabelValues(ReasonDailyLimit.String()).Inc()
		return Decision{Reason: ReasonDailyLimit, DailyUsed: used}, nil
	}

	// Both tiers passed: apply the side effects.
	if err := g.store.SetShortCooldown(ctx, userID, now.Add(g.cfg.Window)); err != nil {
		return Decision{}, err
	}
	if err := g.store.IncrementDailyUsage(ctx, userID); err != nil {
		return Decision{}, err
	}

	logrus.Debugf("authorized duel for user %s (%d/%d this cycle)", userID, used+1, g.cfg.DailyLimit)
	return Decision{Allowed: true, DailyUsed: used + 1}, nil
}

// dailyUsage returns the user's usage count for the current cycle, handling
// watermark refresh and rollover on the way.
func (g *Gate) dailyUsage(ctx context.Context, userID string, now time.Time) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.watermarkRaw == "" {
		value, err := g.store.InitWatermark(ctx, now.Format(WatermarkLayout))
		if err != nil {
			return 0, err
		}
		if err := g.adoptWatermarkLocked(value, now); err != nil {
			return 0, err
		}
	}

	// The cached watermark may lag behind a rollover performed by another
	// process; refresh it once it is older than the grace period.
	if now.Sub(g.lastRead) > g.cfg.Grace {
		shared, err := g.store.Watermark(ctx)
		if err != nil {
			return 0, err
		}
		if shared != "" && shared != g.watermarkRaw {
			if err := g.adoptWatermarkLocked(shared, now); err != nil {
				return 0, err
			}
		} else {
			g.lastRead = now
		}
	}

	if now.After(g.watermark.Add(g.cfg.Cycle)) {
		next := now.Format(WatermarkLayout)
		advanced, err := g.store.AdvanceWatermark(ctx, g.watermarkRaw, next, userID)
		if err != nil {
			return 0, err
		}
		if advanced {
			if err := g.adoptWatermarkLocked(next, now); err != nil {
				return 0, err
			}
			return 0, nil
		}

		// Another process won the rollover; adopt its watermark and fall
		// through to a plain counter read.
		shared, err := g.store.Watermark(ctx)
		if err != nil {
			return 0, err
		}
		if shared != "" {
			if err := g.adoptWatermarkLocked(shared, now); err != nil {
				return 0, err
			}
		}
	}

	return g.store.DailyUsage(ctx, userID)
}

func (g *Gate) adoptWatermarkLocked(raw string, now time.Time) error {
	parsed, err := time.ParseInLocation(WatermarkLayout, raw, time.Local)
	if err != nil {
		return fmt.Errorf("invalid rollover watermark %q: %w", raw, err)
	}

	g.watermarkRaw = raw
	g.watermark = parsed
	g.lastRead = now
	return nil
}
