package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("api-key", "https://sms.example/send", "")
	if client.APIKey != "api-key" {
		t.Errorf("APIKey = %q, want %q", client.APIKey, "api-key")
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should be set")
	}
	if client.HTTPClient.Timeout != defaultTimeout {
		t.Errorf("HTTPClient.Timeout = %v, want %v", client.HTTPClient.Timeout, defaultTimeout)
	}
}

func TestSendOTP_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want %q", r.Method, http.MethodPost)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Errorf("Authorization = %q, want Bearer test-api-key", r.Header.Get("Authorization"))
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Decode body: %v", err)
		}
		if body["to"] != "821012345678" {
			t.Errorf("to = %v, want 821012345678", body["to"])
		}
		if body["from"] != "SOORI" {
			t.Errorf("from = %v, want SOORI", body["from"])
		}
		if text, _ := body["text"].(string); !strings.Contains(text, "123456") {
			t.Errorf("text = %q, want to contain code", text)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient("test-api-key", server.URL, "SOORI")
	if err := client.SendOTP(context.Background(), "+821012345678", "123456"); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
}

func TestSendOTP_MissingAPIKey(t *testing.T) {
	client := NewClient("", "https://sms.example/send", "")
	err := client.SendOTP(context.Background(), "+821012345678", "123456")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSendOTP_MissingURL(t *testing.T) {
	client := NewClient("key", "", "")
	if err := client.SendOTP(context.Background(), "+821012345678", "123456"); err == nil {
		t.Fatal("expected error for missing gateway URL")
	}
}

func TestSendOTP_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer server.Close()

	client := NewClient("api-key", server.URL, "")
	if err := client.SendOTP(context.Background(), "+821012345678", "123456"); err == nil {
		t.Fatal("expected error for HTTP failure")
	}
}

func TestSendOTP_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	client := NewClient("api-key", server.URL, "")
	err := client.SendOTP(ctx, "+821012345678", "123456")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestSendOTP_Non2xxStatus(t *testing.T) {
	testCases := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "status=400"},
		{http.StatusInternalServerError, "status=500"},
	}
	for _, tc := range testCases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":"invalid request"}`))
		}))

		client := NewClient("api-key", server.URL, "")
		err := client.SendOTP(context.Background(), "+821012345678", "123456")
		server.Close()
		if err == nil {
			t.Fatalf("expected error for status %d", tc.status)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("error message = %q, want to contain %q", err.Error(), tc.want)
		}
		if !strings.Contains(err.Error(), "invalid request") {
			t.Errorf("error message = %q, want to contain response body", err.Error())
		}
	}
}
