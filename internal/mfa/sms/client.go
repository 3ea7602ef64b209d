// Package sms delivers verification codes through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// ErrNotConfigured is returned by SendOTP when no API key is set.
var ErrNotConfigured = errors.New("sms: API key not configured")

// Client posts verification messages to an SMS gateway as JSON.
type Client struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

type message struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

// NewClient returns a client that uses the given API key, gateway URL and optional sender ID.
func NewClient(apiKey, baseURL, sender string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// MessageText is the body of the verification SMS.
func MessageText(code string) string {
	return fmt.Sprintf("[수리] 인증번호 [%s]를 입력해주세요.", code)
}

// SendOTP sends the code to phone (E.164; the leading + is dropped on the wire). Does not log the code.
func (c *Client) SendOTP(ctx context.Context, phone, code string) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	if c.BaseURL == "" {
		return errors.New("sms: gateway URL not configured")
	}
	raw, err := json.Marshal(message{
		To:   strings.TrimPrefix(phone, "+"),
		From: c.Sender,
		Text: MessageText(code),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
