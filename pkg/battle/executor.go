// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package battle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/metrics"
	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// DefaultChunkLimit is the maximum size of one diagnostics message sent to
// the operator destination.
const DefaultChunkLimit = 1900

// ResultKind classifies how a session ended.
type ResultKind int

const (
	// ResultWinner means the engine completed; Winner may still be nil when
	// the battle was inconclusive.
	ResultWinner ResultKind = iota
	// ResultTransientFault means the engine failed in a retryable way; no
	// diagnostics were produced.
	ResultTransientFault
	// ResultUnhandledFault means the engine failed unexpectedly; diagnostics
	// were captured under CorrelationID.
	ResultUnhandledFault
)

// Result is the executor's verdict on one session. No engine fault ever
// propagates past Execute; faults surface only through Kind.
type Result struct {
	Kind          ResultKind
	Winner        *Participant
	CorrelationID string
}

type Config struct {
	// ChunkLimit caps the size of each diagnostics chunk.
	ChunkLimit int
}

func (c Config) withDefaults() Config {
	if c.ChunkLimit <= 0 {
		c.ChunkLimit = DefaultChunkLimit
	}
	return c
}

// Executor runs sessions against an Engine and contains every failure mode:
// transient faults turn into a user-facing retry notice, anything else is
// captured as correlated diagnostics for the operator while the session is
// retained in memory for inspection.
type Executor struct {
	engine    Engine
	messenger service.Messenger
	notifier  service.OperatorNotifier
	cfg       Config

	mu       sync.Mutex
	retained map[string]*Session
}

func NewExecutor(engine Engine, messenger service.Messenger, notifier service.OperatorNotifier, cfg Config) *Executor {
	return &Executor{
		engine:    engine,
		messenger: messenger,
		notifier:  notifier,
		cfg:       cfg.withDefaults(),
		retained:  make(map[string]*Session),
	}
}

// Execute runs the session to completion. The returned Result is the only
// way faults escape: a panicking or failing engine never takes the caller
// down with it.
func (e *Executor) Execute(ctx context.Context, session *Session) Result {
	metrics.DuelsStartedTotal.WithLabelValues(string(session.Mode)).Inc()

	winner, err := e.run(ctx, session)
	if err == nil {
		return Result{Kind: ResultWinner, Winner: winner}
	}

	if isTransient(err) {
		metrics.EngineFaultsTotal.WithLabelValues("transient").Inc()
		logrus.Warnf("transient engine fault for channel %s: %v", session.ChannelID, err)
		if sendErr := e.messenger.Send(ctx, session.ChannelID, "The duel could not start due to a temporary issue. Please try again in a moment."); sendErr != nil {
			logrus.Errorf("failed to send transient fault notice: %v", sendErr)
		}
		return Result{Kind: ResultTransientFault}
	}

	correlationID := uuid.NewString()
	metrics.EngineFaultsTotal.WithLabelValues("unhandled").Inc()
	logrus.Errorf("unhandled engine fault %s for channel %s: %v", correlationID, session.ChannelID, err)

	if sendErr := e.messenger.Send(ctx, session.ChannelID, fmt.Sprintf("The duel crashed unexpectedly. Please report this with error ID `%s`.", correlationID)); sendErr != nil {
		logrus.Errorf("failed to send fault notice: %v", sendErr)
	}

	e.reportDiagnostics(ctx, correlationID, err)

	e.mu.Lock()
	e.retained[correlationID] = session
	e.mu.Unlock()

	return Result{Kind: ResultUnhandledFault, CorrelationID: correlationID}
}

// run invokes the engine, converting a panic into an error that carries the
// stack.
func (e *Executor) run(ctx context.Context, session *Session) (winner *Participant, err error) {
	defer func() {
		if r := recover(); r != nil {
			winner = nil
			err = fmt.Errorf("engine panic: %v\n%s", r, debug.Stack())
		}
	}()
	return e.engine.Run(ctx, session)
}

// reportDiagnostics delivers the fault detail to the operator destination in
// order, each chunk within the configured limit, the first one prefixed with
// the correlation id.
func (e *Executor) reportDiagnostics(ctx context.Context, correlationID string, faultErr error) {
	detail := fmt.Sprintf("Exception ID: %s\n%v", correlationID, faultErr)
	for _, chunk := range chunkText(detail, e.cfg.ChunkLimit) {
		if err := e.notifier.NotifyOperator(ctx, chunk); err != nil {
			logrus.Errorf("failed to deliver diagnostics chunk for %s: %v", correlationID, err)
			return
		}
	}
}

// RetainedSession looks up a session retained after an unhandled fault.
func (e *Executor) RetainedSession(correlationID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.retained[correlationID]
	return session, ok
}

// ReleaseSession drops a retained session once the fault has been inspected.
func (e *Executor) ReleaseSession(correlationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.retained, correlationID)
}

func isTransient(err error) bool {
	if errors.Is(err, ErrEngineUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// chunkText splits s into pieces of at most limit bytes, preserving order.
func chunkText(s string, limit int) []string {
	if s == "" {
		return nil
	}

	var chunks []string
	for len(s) > limit {
		chunks = append(chunks, s[:limit])
		s = s[limit:]
	}
	return append(chunks, s)
}
