package handler

import (
	"context"  // context with cancellation for store calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and primitives
	"time"     // timeouts for store calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/accessapis/geogate/internal/repository"
	"github.com/accessapis/geogate/internal/service"
)

// APIKeyHandler bundles dependencies for the key lifecycle endpoints.
type APIKeyHandler struct {
	Manager *service.KeyManager
}

func NewAPIKeyHandler(m *service.KeyManager) *APIKeyHandler {
	return &APIKeyHandler{Manager: m}
}

// ----- DTOs -----

type createKeyReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateKey issues a key for a new owner. Issuance is idempotent while the
// owner holds an active key: the existing key comes back with a 200 instead
// of an error, so retrying a provisioning call is always safe.
func (h *APIKeyHandler) CreateKey(c echo.Context) error {
	var req createKeyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, created, err := h.Manager.Issue(ctx, req.Email, req.Password, service.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return lifecycleError(c, err)
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "User already has an active API key",
			"email":   rec.Email,
			"api_key": rec.Key,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "New API key created",
		"email":   rec.Email,
		"api_key": rec.Key,
	})
}

// RotateKey deactivates the current key and returns a replacement.
func (h *APIKeyHandler) RotateKey(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	old, fresh, err := h.Manager.Rotate(ctx, req.Email, req.Password)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "API key rotated successfully",
		"email":   req.Email,
		"old_key": old.Key,
		"new_key": fresh.Key,
	})
}

// DisableKey deactivates the owner's active key.
func (h *APIKeyHandler) DisableKey(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Manager.Disable(ctx, req.Email, req.Password)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "API key disabled successfully",
		"email":   req.Email,
		"api_key": rec.Key,
	})
}

// EnableKey re-activates the owner's most recently disabled key.
func (h *APIKeyHandler) EnableKey(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Manager.Enable(ctx, req.Email, req.Password)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "API key enabled successfully",
		"email":   req.Email,
		"api_key": rec.Key,
	})
}

// DeleteKey removes the owner's active key record.
func (h *APIKeyHandler) DeleteKey(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Manager.Delete(ctx, req.Email, req.Password)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "API key deleted successfully",
		"email":   req.Email,
		"api_key": rec.Key,
	})
}

// GetAPIKey is the out-of-band recovery endpoint: email + password in,
// current key material out.
func (h *APIKeyHandler) GetAPIKey(c echo.Context) error {
	req, ok := bindCredentials(c)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Manager.Retrieve(ctx, req.Email, req.Password)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email":      rec.Email,
		"api_key":    rec.Key,
		"active":     rec.Active,
		"created_at": rec.CreatedAt,
	})
}

// bindCredentials parses and validates the common email+password body.
// When ok is false the 400 response has already been written and the
// handler should return nil.
func bindCredentials(c echo.Context) (req credentialsReq, ok bool) {
	if err := c.Bind(&req); err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		return req, false
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
		return req, false
	}
	return req, true
}

// lifecycleError maps KeyManager sentinels onto the HTTP error contract.
func lifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user has no matching API key"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	case errors.Is(err, service.ErrActiveExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already has an active API key"})
	case errors.Is(err, service.ErrStoreConflict):
		c.Logger().Errorf("apikey: token conflict survived retry: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "key generation conflict"})
	default:
		c.Logger().Errorf("apikey: lifecycle operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
}
