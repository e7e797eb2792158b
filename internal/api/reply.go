package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ReplySender delivers one reply segment to a chat.
type ReplySender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type replyPayload struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// HTTPReplySender POSTs {"chat_id","text"} as JSON to a fixed URL. A
// Telegram sendMessage URL accepts this body unchanged. With no URL the
// reply is only logged.
type HTTPReplySender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPReplySender builds a sender for url; timeout bounds each POST.
func NewHTTPReplySender(url string, timeout time.Duration, logger *zap.Logger) *HTTPReplySender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPReplySender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *HTTPReplySender) Send(ctx context.Context, chatID int64, text string) error {
	if s.url == "" {
		s.logger.Info("reply", zap.Int64("chat_id", chatID), zap.Int("runes", len([]rune(text))))
		return nil
	}

	payload, err := json.Marshal(replyPayload{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send reply: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
