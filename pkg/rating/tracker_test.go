// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package rating

import (
	"context"
	"testing"
)

func TestUpdate_EvenMatch(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), Config{})

	change, err := tracker.Update(context.Background(), "user-1", "user-2")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if change.WinnerOld != DefaultRating || change.LoserOld != DefaultRating {
		t.Errorf("old ratings = %d/%d, expected both at %d", change.WinnerOld, change.LoserOld, DefaultRating)
	}
	if change.WinnerNew != 1025 {
		t.Errorf("WinnerNew = %d, expected 1025", change.WinnerNew)
	}
	if change.LoserNew != 975 {
		t.Errorf("LoserNew = %d, expected 975", change.LoserNew)
	}
}

func TestUpdate_FavoriteGainsLess(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SetRating(context.Background(), "strong", 1400); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRating(context.Background(), "weak", 1000); err != nil {
		t.Fatal(err)
	}
	tracker := NewTracker(store, Config{})

	change, err := tracker.Update(context.Background(), "strong", "weak")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	gain := change.WinnerNew - change.WinnerOld
	if gain <= 0 || gain >= 25 {
		t.Errorf("favorite gained %d, expected a positive gain below the even-match 25", gain)
	}
	if change.LoserOld-change.LoserNew != gain {
		t.Errorf("movement is not symmetric: winner +%d, loser -%d", gain, change.LoserOld-change.LoserNew)
	}
}

func TestUpdate_UpsetGainsMore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SetRating(context.Background(), "strong", 1400); err != nil {
		t.Fatal(err)
	}
	tracker := NewTracker(store, Config{})

	// Unknown underdog at the default rating beats the favorite.
	change, err := tracker.Update(context.Background(), "underdog", "strong")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if gain := change.WinnerNew - change.WinnerOld; gain <= 25 {
		t.Errorf("underdog gained %d, expected more than the even-match 25", gain)
	}
}

func TestUpdate_PersistsAcrossDuels(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), Config{})
	ctx := context.Background()

	if _, err := tracker.Update(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	rating, err := tracker.RatingOf(ctx, "user-1")
	if err != nil {
		t.Fatalf("RatingOf() error = %v", err)
	}
	if rating != 1025 {
		t.Errorf("rating after one win = %d, expected 1025", rating)
	}

	// A second even-ish duel starts from the stored values.
	change, err := tracker.Update(ctx, "user-2", "user-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if change.WinnerOld != 975 || change.LoserOld != 1025 {
		t.Errorf("second duel started from %d/%d, expected 975/1025", change.WinnerOld, change.LoserOld)
	}
}

func TestTracker_CustomKFactor(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), Config{KFactor: 32})

	change, err := tracker.Update(context.Background(), "user-1", "user-2")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if change.WinnerNew != 1016 {
		t.Errorf("WinnerNew = %d, expected 1016 with K=32", change.WinnerNew)
	}
}
