package mock

import (
	"context"
	"sync"
	"time"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// Messenger is a mock implementation of service.Messenger for testing.
type Messenger struct {
	mu sync.Mutex

	// PromptChallengeFunc is called when PromptChallenge is invoked.
	PromptChallengeFunc func(ctx context.Context, channelID, targetID, prompt string, lifetime time.Duration) (bool, error)

	// PresentRosterPreviewFunc is called when PresentRosterPreview is invoked.
	PresentRosterPreviewFunc func(ctx context.Context, channelID string, sides []service.RosterPreviewSide, onReady func(string)) (func(), error)

	// Default behavior when the Func fields are nil.
	DefaultPromptAnswer bool
	DefaultCapabilities service.ChannelCapabilities
	DefaultError        error

	// Call tracking
	Sent            []SentMessage
	Embeds          []SentEmbed
	PromptCalls     []PromptCall
	PreviewCalls    []PreviewCall
	CapabilityCalls []string
}

// SentMessage tracks parameters for Send calls.
type SentMessage struct {
	ChannelID string
	Content   string
}

// SentEmbed tracks parameters for SendEmbed calls.
type SentEmbed struct {
	ChannelID string
	Embed     service.Embed
}

// PromptCall tracks parameters for PromptChallenge calls.
type PromptCall struct {
	ChannelID string
	TargetID  string
	Prompt    string
	Lifetime  time.Duration
}

// PreviewCall tracks parameters for PresentRosterPreview calls.
type PreviewCall struct {
	ChannelID string
	Sides     []service.RosterPreviewSide
}

// NewMessenger creates a mock messenger that allows everything by default.
func NewMessenger() *Messenger {
	return &Messenger{
		DefaultCapabilities: service.ChannelCapabilities{
			SendMessages: true,
			EmbedLinks:   true,
			AttachFiles:  true,
		},
	}
}

func (m *Messenger) Send(ctx context.Context, channelID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentMessage{ChannelID: channelID, Content: content})
	return m.DefaultError
}

func (m *Messenger) SendEmbed(ctx context.Context, channelID string, embed service.Embed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Embeds = append(m.Embeds, SentEmbed{ChannelID: channelID, Embed: embed})
	return m.DefaultError
}

func (m *Messenger) ChannelCapabilities(ctx context.Context, channelID string) (service.ChannelCapabilities, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapabilityCalls = append(m.CapabilityCalls, channelID)
	return m.DefaultCapabilities, m.DefaultError
}

func (m *Messenger) PromptChallenge(ctx context.Context, channelID, targetID, prompt string, lifetime time.Duration) (bool, error) {
	m.mu.Lock()
	m.PromptCalls = append(m.PromptCalls, PromptCall{
		ChannelID: channelID,
		TargetID:  targetID,
		Prompt:    prompt,
		Lifetime:  lifetime,
	})
	m.mu.Unlock()

	if m.PromptChallengeFunc != nil {
		return m.PromptChallengeFunc(ctx, channelID, targetID, prompt, lifetime)
	}
	return m.DefaultPromptAnswer, m.DefaultError
}

func (m *Messenger) PresentRosterPreview(ctx context.Context, channelID string, sides []service.RosterPreviewSide, onReady func(string)) (func(), error) {
	m.mu.Lock()
	m.PreviewCalls = append(m.PreviewCalls, PreviewCall{ChannelID: channelID, Sides: sides})
	m.mu.Unlock()

	if m.PresentRosterPreviewFunc != nil {
		return m.PresentRosterPreviewFunc(ctx, channelID, sides, onReady)
	}

	// Default: both sides acknowledge immediately.
	for _, side := range sides {
		onReady(side.UserID)
	}
	return func() {}, m.DefaultError
}

// SentContents returns the plain message bodies sent so far.
func (m *Messenger) SentContents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	contents := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		contents = append(contents, s.Content)
	}
	return contents
}

// Notifier is a mock implementation of service.OperatorNotifier.
type Notifier struct {
	mu sync.Mutex

	DefaultError error

	// Call tracking
	Notifications []string
	Alerts        []service.Alert
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) NotifyOperator(ctx context.Context, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Notifications = append(n.Notifications, content)
	return n.DefaultError
}

func (n *Notifier) SendAlert(ctx context.Context, alert service.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Alerts = append(n.Alerts, alert)
	return n.DefaultError
}
