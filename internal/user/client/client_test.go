package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soori/internal/security"
	"soori/internal/server/middleware"
	"soori/internal/user/domain"
	"soori/internal/user/handler"
	"soori/internal/user/repository"
	"soori/internal/user/service"
)

func newDirectoryServer(t *testing.T) (*httptest.Server, *security.TokenProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := security.NewEphemeralTokenProvider("test-issuer", "test-audience", time.Hour, nil)
	require.NoError(t, err)
	dir := service.NewDirectory(repository.NewMemoryRepository(),
		clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), nil)
	r := gin.New()
	handler.NewServer(dir, nil).Register(r.Group("", middleware.Auth(tokens)))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func testProfile() *domain.Profile {
	purchased, _ := domain.ParseDate("2024-05-01")
	made, _ := domain.ParseDate("2023-12-15")
	return &domain.Profile{
		Name:              "홍길동",
		Model:             "S-100",
		PurchasedAt:       purchased,
		ManufacturedAt:    made,
		RecipientType:     domain.RecipientNearPoverty,
		SupportedDistrict: "노원구",
		VehicleID:         "vehicle-1",
	}
}

func TestClient_AgainstDirectory(t *testing.T) {
	srv, tokens := newDirectoryServer(t)
	token, _, err := tokens.Issue("uid-1", "+821012345678")
	require.NoError(t, err)
	c := New(srv.URL + "/")
	ctx := context.Background()

	res, err := c.CheckExists(ctx, token)
	require.NoError(t, err)
	assert.False(t, res.Exists)
	require.NotNil(t, res.User)
	assert.Equal(t, "+821012345678", res.User.PhoneNumber)

	u, err := c.Create(ctx, token, testProfile())
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, domain.RecipientNearPoverty, u.RecipientType)
	assert.Equal(t, domain.SupportedDistrict("노원구"), u.SupportedDistrict)

	res, err = c.CheckExists(ctx, token)
	require.NoError(t, err)
	assert.True(t, res.Exists)

	role, err := c.Role(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	_, err = c.Create(ctx, token, testProfile())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Status)
}

func TestClient_Unauthorized(t *testing.T) {
	srv, _ := newDirectoryServer(t)
	c := New(srv.URL)

	_, err := c.CheckExists(context.Background(), "garbage")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)

	_, err = c.CheckExists(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).CheckExists(context.Background(), "tok")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
}

func TestClient_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL).CheckExists(ctx, "tok")
	assert.Error(t, err)
}
