// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package readiness synchronizes the start of a multi-creature duel: each
// participant confirms their roster once, and the session proceeds only after
// both confirmations have landed.
package readiness

import (
	"context"
	"sync"
)

// Gate is a single-use readiness latch for one participant. Signal is safe to
// call from any goroutine and any number of times; only the first call has an
// effect.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Signal marks the participant ready. Subsequent calls are no-ops.
func (g *Gate) Signal() {
	g.once.Do(func() {
		close(g.ch)
	})
}

// Ready reports whether the gate has been signaled, without blocking.
func (g *Gate) Ready() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// AwaitBothReady blocks until both gates have been signaled, in either order,
// or until ctx is done. Callers bound the wait through ctx; an expired wait
// aborts the session setup.
func AwaitBothReady(ctx context.Context, a, b *Gate) error {
	for _, gate := range []*Gate{a, b} {
		select {
		case <-gate.ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
