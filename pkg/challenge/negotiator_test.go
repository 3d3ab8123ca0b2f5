// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service/mock"
)

func TestNegotiate_SelfChallenge(t *testing.T) {
	messenger := mock.NewMessenger()
	negotiator := NewNegotiator(messenger, Config{})

	accepted, err := negotiator.Negotiate(context.Background(), "chan-1", "user-1", "user-1", "single")
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}

	if accepted {
		t.Error("Negotiate() accepted a self-challenge")
	}
	if len(messenger.PromptCalls) != 0 {
		t.Errorf("prompt presented for a self-challenge: %d calls", len(messenger.PromptCalls))
	}
	if got := messenger.SentContents(); len(got) != 1 || got[0] != "You cannot duel yourself!" {
		t.Errorf("sent messages = %v, expected the self-challenge notice", got)
	}
}

func TestNegotiate_Accepted(t *testing.T) {
	messenger := mock.NewMessenger()
	messenger.DefaultPromptAnswer = true
	negotiator := NewNegotiator(messenger, Config{PromptLifetime: 10 * time.Second})

	accepted, err := negotiator.Negotiate(context.Background(), "chan-1", "user-1", "user-2", "party")
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}

	if !accepted {
		t.Error("Negotiate() did not report acceptance")
	}
	if len(messenger.PromptCalls) != 1 {
		t.Fatalf("prompt calls = %d, expected 1", len(messenger.PromptCalls))
	}

	call := messenger.PromptCalls[0]
	if call.TargetID != "user-2" {
		t.Errorf("prompt target = %s, expected user-2", call.TargetID)
	}
	if call.Lifetime != 10*time.Second {
		t.Errorf("prompt lifetime = %v, expected 10s", call.Lifetime)
	}
	if !strings.Contains(call.Prompt, "party") {
		t.Errorf("prompt %q does not name the duel kind", call.Prompt)
	}
}

func TestNegotiate_ExpiredPromptIsDecline(t *testing.T) {
	messenger := mock.NewMessenger()
	// The default answer stands in for an expired prompt: (false, nil).
	negotiator := NewNegotiator(messenger, Config{})

	accepted, err := negotiator.Negotiate(context.Background(), "chan-1", "user-1", "user-2", "single")
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}

	if accepted {
		t.Error("Negotiate() accepted after an expired prompt")
	}
	if len(messenger.PromptCalls) != 1 {
		t.Errorf("prompt calls = %d, expected exactly 1 (no retries)", len(messenger.PromptCalls))
	}
	if messenger.PromptCalls[0].Lifetime != DefaultPromptLifetime {
		t.Errorf("prompt lifetime = %v, expected default %v", messenger.PromptCalls[0].Lifetime, DefaultPromptLifetime)
	}
}
