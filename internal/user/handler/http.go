// Package handler serves the user directory over HTTP.
//
// POST /users with an empty body checks registration: 409 when the caller already has a user, 200 otherwise.
// POST /users with a signup body registers the caller. GET /users/role returns the caller's role.
// All routes expect middleware.Auth in front of them.
package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"soori/internal/server/middleware"
	"soori/internal/user/domain"
	"soori/internal/user/service"
)

// Directory is the user directory behind the handlers.
type Directory interface {
	Lookup(ctx context.Context, identityUID string) (*domain.User, error)
	Register(ctx context.Context, identityUID, phoneNumber string, profile *domain.Profile) (*domain.User, error)
	Role(ctx context.Context, identityUID string) (domain.Role, error)
}

// Server holds the user routes.
type Server struct {
	directory Directory
	logger    *zap.Logger
}

// NewServer returns a user HTTP server. A nil logger discards output.
func NewServer(directory Directory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{directory: directory, logger: logger}
}

// Register mounts the routes on g.
func (s *Server) Register(g gin.IRoutes) {
	g.POST("/users", s.PostUsers)
	g.GET("/users/role", s.GetRole)
}

// UserResponse is the JSON shape of a user.
type UserResponse struct {
	ID                string `json:"id,omitempty"`
	PhoneNumber       string `json:"phoneNumber"`
	Role              string `json:"role,omitempty"`
	Name              string `json:"name,omitempty"`
	RecipientType     string `json:"recipientType,omitempty"`
	SupportedDistrict string `json:"supportedDistrict,omitempty"`
}

type signupRequest struct {
	Name              string `json:"name"`
	Model             string `json:"model"`
	PurchasedAt       string `json:"purchasedAt"`
	ManufacturedAt    string `json:"manufacturedAt"`
	RecipientType     string `json:"recipientType"`
	SupportedDistrict string `json:"supportedDistrict"`
	VehicleID         string `json:"vehicleId"`
}

// PostUsers checks or creates the caller's user depending on whether a body was sent.
func (s *Server) PostUsers(c *gin.Context) {
	uid, phone, ok := caller(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if isEmptyBody(raw) {
		s.check(c, uid, phone)
		return
	}

	var req signupRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	profile, err := req.profile()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := s.directory.Register(c.Request.Context(), uid, phone, profile)
	switch {
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	case errors.Is(err, service.ErrVehicleClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": "vehicle already registered"})
		return
	case isValidationErr(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("register user", zap.String("identity_uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, toResponse(u))
}

// GetRole returns {"role": ...} for the caller, 404 when unregistered.
func (s *Server) GetRole(c *gin.Context) {
	uid, _, ok := caller(c)
	if !ok {
		return
	}
	role, err := s.directory.Role(c.Request.Context(), uid)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	case err != nil:
		s.logger.Error("get role", zap.String("identity_uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": string(role)})
}

func (s *Server) check(c *gin.Context, uid, phone string) {
	u, err := s.directory.Lookup(c.Request.Context(), uid)
	if err != nil {
		s.logger.Error("lookup user", zap.String("identity_uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if u != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	c.JSON(http.StatusOK, UserResponse{PhoneNumber: phone})
}

func caller(c *gin.Context) (uid, phone string, ok bool) {
	uid, _ = middleware.GetIdentityUID(c.Request.Context())
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid authorization"})
		return "", "", false
	}
	phone, _ = middleware.GetPhoneNumber(c.Request.Context())
	return uid, phone, true
}

func isEmptyBody(raw []byte) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || bytes.Equal(b, []byte("{}")) || bytes.Equal(b, []byte("null"))
}

func (r signupRequest) profile() (*domain.Profile, error) {
	purchased, ok := parseDate(r.PurchasedAt)
	if !ok {
		return nil, domain.ErrPurchasedAt
	}
	made, ok := parseDate(r.ManufacturedAt)
	if !ok {
		return nil, domain.ErrManufacturedAt
	}
	return &domain.Profile{
		Name:              strings.TrimSpace(r.Name),
		Model:             strings.TrimSpace(r.Model),
		PurchasedAt:       purchased,
		ManufacturedAt:    made,
		RecipientType:     domain.RecipientType(r.RecipientType),
		SupportedDistrict: domain.SupportedDistrict(r.SupportedDistrict),
		VehicleID:         strings.TrimSpace(r.VehicleID),
	}, nil
}

// parseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
		return t.UTC(), true
	}
	return domain.ParseDate(s)
}

func isValidationErr(err error) bool {
	for _, target := range []error{
		domain.ErrNameRequired, domain.ErrModelRequired, domain.ErrPurchasedAt, domain.ErrManufacturedAt,
		domain.ErrRecipientType, domain.ErrSupportedDistrict, domain.ErrVehicleIDRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		PhoneNumber:       u.PhoneNumber,
		Role:              string(u.Role),
		Name:              u.Name,
		RecipientType:     string(u.RecipientType),
		SupportedDistrict: string(u.SupportedDistrict),
	}
}
