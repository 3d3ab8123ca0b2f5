package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ChatGatewayClient talks to the chat gateway's internal REST API. The
// gateway owns the actual chat connection; this client only presents
// controls and polls for their outcomes. It implements Messenger,
// OperatorNotifier, and CommandSource.
type ChatGatewayClient struct {
	http *http.Client
	// longPoll has no client-side timeout; blocking endpoints are bounded
	// by the request context instead.
	longPoll *http.Client
	cfg      ChatGatewayConfig
}

type ChatGatewayConfig struct {
	BaseURL           string
	Token             string
	OperatorChannelID string
	AlertChannelID    string
	// PollInterval paces the preview acknowledgement and command queue
	// polls. Defaults to one second.
	PollInterval time.Duration
}

func NewChatGatewayClient(cfg ChatGatewayConfig) *ChatGatewayClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &ChatGatewayClient{
		http:     &http.Client{Timeout: 30 * time.Second},
		longPoll: &http.Client{},
		cfg:      cfg,
	}
}

func (c *ChatGatewayClient) Send(ctx context.Context, channelID, content string) error {
	payload := map[string]any{"content": content}
	return c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), payload, nil)
}

func (c *ChatGatewayClient) SendEmbed(ctx context.Context, channelID string, embed Embed) error {
	payload := map[string]any{"embed": embed}
	return c.post(ctx, fmt.Sprintf("/channels/%s/messages", channelID), payload, nil)
}

func (c *ChatGatewayClient) ChannelCapabilities(ctx context.Context, channelID string) (ChannelCapabilities, error) {
	var caps ChannelCapabilities
	err := c.get(ctx, fmt.Sprintf("/channels/%s/capabilities", channelID), &caps)
	return caps, err
}

func (c *ChatGatewayClient) PromptChallenge(ctx context.Context, channelID, targetID, prompt string, lifetime time.Duration) (bool, error) {
	payload := map[string]any{
		"targetId":        targetID,
		"prompt":          prompt,
		"lifetimeSeconds": int(lifetime.Seconds()),
	}

	var created struct {
		PromptID string `json:"promptId"`
	}
	if err := c.post(ctx, fmt.Sprintf("/channels/%s/prompts", channelID), payload, &created); err != nil {
		return false, err
	}

	// The result endpoint blocks until the prompt resolves; Answered is
	// false when the control expired without a response, which counts as a
	// decline.
	var result struct {
		Answered bool `json:"answered"`
		Accepted bool `json:"accepted"`
	}
	waitCtx, cancel := context.WithTimeout(ctx, lifetime+10*time.Second)
	defer cancel()
	if err := c.getBlocking(waitCtx, fmt.Sprintf("/prompts/%s/result", created.PromptID), &result); err != nil {
		return false, err
	}

	return result.Answered && result.Accepted, nil
}

func (c *ChatGatewayClient) PresentRosterPreview(ctx context.Context, channelID string, sides []RosterPreviewSide, onReady func(userID string)) (func(), error) {
	payload := map[string]any{"sides": sides}

	var created struct {
		PreviewID string `json:"previewId"`
	}
	if err := c.post(ctx, fmt.Sprintf("/channels/%s/previews", channelID), payload, &created); err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(ctx)
	go c.pollPreviewAcks(pollCtx, created.PreviewID, onReady)

	stop := func() {
		cancel()
		// Best effort; the gateway expires stale previews on its own.
		retireCtx, retireCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer retireCancel()
		if err := c.post(retireCtx, fmt.Sprintf("/previews/%s/retire", created.PreviewID), nil, nil); err != nil {
			logrus.Warnf("failed to retire roster preview %s: %v", created.PreviewID, err)
		}
	}

	return stop, nil
}

// pollPreviewAcks forwards acknowledged user ids to onReady until ctx is
// cancelled. Duplicate acks are the callback's concern; readiness gates are
// single-use anyway.
func (c *ChatGatewayClient) pollPreviewAcks(ctx context.Context, previewID string, onReady func(string)) {
	seen := make(map[string]bool)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var acks struct {
			UserIDs []string `json:"userIds"`
		}
		if err := c.get(ctx, fmt.Sprintf("/previews/%s/acks", previewID), &acks); err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.Warnf("failed to poll preview acks for %s: %v", previewID, err)
			continue
		}

		for _, id := range acks.UserIDs {
			if !seen[id] {
				seen[id] = true
				onReady(id)
			}
		}
	}
}

func (c *ChatGatewayClient) NotifyOperator(ctx context.Context, content string) error {
	return c.Send(ctx, c.cfg.OperatorChannelID, content)
}

func (c *ChatGatewayClient) SendAlert(ctx context.Context, alert Alert) error {
	return c.SendEmbed(ctx, c.cfg.AlertChannelID, Embed{
		Title:       alert.Title,
		Description: alert.Description,
		Color:       alert.Color,
	})
}

// NextCommand long-polls the gateway's command queue.
func (c *ChatGatewayClient) NextCommand(ctx context.Context) (*CommandEvent, error) {
	for {
		var event CommandEvent
		err := c.getBlocking(ctx, "/commands/next", &event)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logrus.Warnf("command poll failed: %v, retrying in %v", err, c.cfg.PollInterval)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.PollInterval):
			}
			continue
		}

		// The queue endpoint returns an empty name when the long poll
		// timed out with nothing queued.
		if event.Name == "" {
			continue
		}

		return &event, nil
	}
}

func (c *ChatGatewayClient) post(ctx context.Context, path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(c.http, req, out)
}

func (c *ChatGatewayClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(c.http, req, out)
}

// getBlocking is get for endpoints that hold the connection open until a
// result is available.
func (c *ChatGatewayClient) getBlocking(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(c.longPoll, req, out)
}

func (c *ChatGatewayClient) do(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("chat gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chat gateway returned status %d for %s", resp.StatusCode, req.URL.Path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode chat gateway response: %w", err)
	}

	return nil
}
