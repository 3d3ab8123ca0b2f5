// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package readiness

import (
	"context"
	"testing"
	"time"
)

func TestGate_SignalIsIdempotent(t *testing.T) {
	gate := NewGate()

	if gate.Ready() {
		t.Error("Ready() = true before Signal()")
	}

	gate.Signal()
	gate.Signal() // must not panic on the closed channel
	gate.Signal()

	if !gate.Ready() {
		t.Error("Ready() = false after Signal()")
	}
}

func TestAwaitBothReady_OrderFree(t *testing.T) {
	a := NewGate()
	b := NewGate()

	// Second gate fires before the first; the wait must still complete.
	b.Signal()
	go func() {
		time.Sleep(10 * time.Millisecond)
		a.Signal()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := AwaitBothReady(ctx, a, b); err != nil {
		t.Fatalf("AwaitBothReady() error = %v", err)
	}
}

func TestAwaitBothReady_OneSideNeverConfirms(t *testing.T) {
	a := NewGate()
	b := NewGate()
	a.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := AwaitBothReady(ctx, a, b)
	if err != context.DeadlineExceeded {
		t.Fatalf("AwaitBothReady() error = %v, expected context.DeadlineExceeded", err)
	}
}

func TestAwaitBothReady_ConcurrentSignals(t *testing.T) {
	a := NewGate()
	b := NewGate()

	for i := 0; i < 4; i++ {
		go a.Signal()
		go b.Signal()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := AwaitBothReady(ctx, a, b); err != nil {
		t.Fatalf("AwaitBothReady() error = %v", err)
	}
}
