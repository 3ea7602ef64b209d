// Package discord posts events to a Discord webhook as embeds.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"soori/internal/eventlog/domain"
)

// Embed colors: brand primary for informational events, error red for fatal ones.
const (
	ColorPrimary = 0x007AFF
	ColorError   = 0xFF382B
)

// Discord caps embed text; longer fields are cut.
const (
	maxTitle       = 256
	maxDescription = 4096
)

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type payload struct {
	Embeds []embed `json:"embeds"`
}

// Webhook is an event sink. A Webhook with an empty URL drops every event.
type Webhook struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhook returns a sink posting to url, or nil when url is empty.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{URL: url, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

// Emit posts event as a single embed.
func (w *Webhook) Emit(ctx context.Context, event *domain.Event) error {
	if w == nil || w.URL == "" || event == nil {
		return nil
	}
	color := ColorPrimary
	if event.Fatal {
		color = ColorError
	}
	raw, err := json.Marshal(payload{Embeds: []embed{{
		Title:       truncate(event.Title, maxTitle),
		Description: truncate(event.Description, maxDescription),
		Color:       color,
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: webhook returned status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
