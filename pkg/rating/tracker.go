// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package rating maintains an Elo-style ladder over duel outcomes.
package rating

import (
	"context"
	"fmt"
	"math"
	"sync"
)

const (
	// DefaultRating is assigned to users with no recorded duels.
	DefaultRating = 1000
	// DefaultKFactor scales rating movement per duel.
	DefaultKFactor = 50
)

// Store persists per-user ratings. Reads of unknown users return ok=false.
type Store interface {
	Rating(ctx context.Context, userID string) (int, bool, error)
	SetRating(ctx context.Context, userID string, rating int) error
}

// Change reports how one duel moved both ratings.
type Change struct {
	WinnerOld int
	WinnerNew int
	LoserOld  int
	LoserNew  int
}

type Config struct {
	KFactor int
}

func (c Config) withDefaults() Config {
	if c.KFactor <= 0 {
		c.KFactor = DefaultKFactor
	}
	return c
}

// Tracker applies Elo updates to the store. Updates are serialized so two
// concurrent duels cannot interleave their read-modify-write cycles.
type Tracker struct {
	store Store
	cfg   Config
	mu    sync.Mutex
}

func NewTracker(store Store, cfg Config) *Tracker {
	return &Tracker{store: store, cfg: cfg.withDefaults()}
}

// Update records a decided duel between two rated users and returns the
// movement. Unknown users enter the ladder at the default rating.
func (t *Tracker) Update(ctx context.Context, winnerID, loserID string) (Change, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	winnerOld, err := t.ratingOrDefault(ctx, winnerID)
	if err != nil {
		return Change{}, err
	}
	loserOld, err := t.ratingOrDefault(ctx, loserID)
	if err != nil {
		return Change{}, err
	}

	expected := 1 / (1 + math.Pow(10, float64(loserOld-winnerOld)/400))
	delta := int(math.Round(float64(t.cfg.KFactor) * (1 - expected)))

	change := Change{
		WinnerOld: winnerOld,
		WinnerNew: winnerOld + delta,
		LoserOld:  loserOld,
		LoserNew:  loserOld - delta,
	}

	if err := t.store.SetRating(ctx, winnerID, change.WinnerNew); err != nil {
		return Change{}, fmt.Errorf("failed to store winner rating for %s: %w", winnerID, err)
	}
	if err := t.store.SetRating(ctx, loserID, change.LoserNew); err != nil {
		return Change{}, fmt.Errorf("failed to store loser rating for %s: %w", loserID, err)
	}

	return change, nil
}

// RatingOf returns the user's current rating, defaulting for unknown users.
func (t *Tracker) RatingOf(ctx context.Context, userID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ratingOrDefault(ctx, userID)
}

func (t *Tracker) ratingOrDefault(ctx context.Context, userID string) (int, error) {
	rating, ok, err := t.store.Rating(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read rating for %s: %w", userID, err)
	}
	if !ok {
		return DefaultRating, nil
	}
	return rating, nil
}

// MemoryStore is the process-local Store used when no shared ladder backend
// is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	ratings map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ratings: make(map[string]int)}
}

func (s *MemoryStore) Rating(ctx context.Context, userID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rating, ok := s.ratings[userID]
	return rating, ok, nil
}

func (s *MemoryStore) SetRating(ctx context.Context, userID string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[userID] = rating
	return nil
}
