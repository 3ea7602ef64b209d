// Package client talks to the remote user directory over HTTP.
package client

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

	"soori/internal/user/domain"
	"soori/internal/verification"
)

// DefaultTimeout bounds each directory request.
const DefaultTimeout = 10 * time.Second

// ErrNoToken is returned when a request is made without an identity token.
var ErrNoToken = errors.New("directory: identity token is required")

// StatusError is a non-2xx directory response that the caller did not expect.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory: request failed status=%d body=%s", e.Status, e.Body)
}

// Client calls the directory's /users endpoints with the identity token as Bearer.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ verification.UserDirectory = (*Client)(nil)

// New returns a client for the directory at baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type userJSON struct {
	ID                string `json:"id"`
	PhoneNumber       string `json:"phoneNumber"`
	Role              string `json:"role"`
	Name              string `json:"name"`
	RecipientType     string `json:"recipientType"`
	SupportedDistrict string `json:"supportedDistrict"`
}

func (u userJSON) toDomain() *domain.User {
	return &domain.User{
		ID:                u.ID,
		PhoneNumber:       u.PhoneNumber,
		Role:              domain.Role(u.Role),
		Name:              u.Name,
		RecipientType:     domain.RecipientType(u.RecipientType),
		SupportedDistrict: domain.SupportedDistrict(u.SupportedDistrict),
	}
}

// CheckExists posts an empty body to /users. 409 means the user exists; any 2xx means it does not.
func (c *Client) CheckExists(ctx context.Context, token string) (*verification.CheckResult, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/users", token, struct{}{})
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusConflict:
		return &verification.CheckResult{Exists: true}, nil
	case status >= 200 && status <= 299:
		var u userJSON
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &u); err != nil {
				return nil, fmt.Errorf("directory: decode user: %w", err)
			}
		}
		return &verification.CheckResult{Exists: false, User: u.toDomain()}, nil
	}
	return nil, &StatusError{Status: status, Body: string(body)}
}

// Create registers the caller with profile.
func (c *Client) Create(ctx context.Context, token string, profile *domain.Profile) (*domain.User, error) {
	if profile == nil {
		return nil, errors.New("directory: profile is required")
	}
	status, body, err := c.do(ctx, http.MethodPost, "/users", token, profile)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{Status: status, Body: string(body)}
	}
	var u userJSON
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("directory: decode user: %w", err)
	}
	return u.toDomain(), nil
}

// Role returns the caller's role from /users/role.
func (c *Client) Role(ctx context.Context, token string) (domain.Role, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/users/role", token, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &StatusError{Status: status, Body: string(body)}
	}
	var out struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("directory: decode role: %w", err)
	}
	return domain.Role(out.Role), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, payload any) (int, []byte, error) {
	if token == "" {
		return 0, nil, ErrNoToken
	}
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
