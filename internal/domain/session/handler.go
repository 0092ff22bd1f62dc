package session

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"zetta/internal/domain/auth"
	"zetta/internal/pkg/response"
)

type LoginRequest struct {
	// Token is the backend bearer token; empty falls back to the configured one.
	Token string `json:"token"`
}

type LoginResponse struct {
	User        *auth.User `json:"user"`
	AccessToken string     `json:"access_token"`
	Subscribed  bool       `json:"subscribed"`
	SyncError   string     `json:"sync_error,omitempty"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login opens the dashboard session.
// @Router /session/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenRequired):
			response.Error(c, http.StatusBadRequest, "TOKEN_REQUIRED", err.Error())
		case errors.Is(err, auth.ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Backend rejected the token")
		case errors.Is(err, auth.ErrInvalidUser):
			response.Error(c, http.StatusBadGateway, "INVALID_USER", err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Failed to reach backend")
		}
		return
	}

	response.Success(c, http.StatusOK, LoginResponse{
		User:        res.User,
		AccessToken: res.AccessToken,
		Subscribed:  res.Subscribed,
		SyncError:   res.SyncError,
	})
}

// @Router /session [GET]
func (h *Handler) Current(c *gin.Context) {
	user, ok := h.service.Current()
	if !ok {
		response.Error(c, http.StatusNotFound, "NO_SESSION", ErrNoSession.Error())
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// @Router /session/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		if errors.Is(err, ErrNoSession) {
			response.Error(c, http.StatusConflict, "NO_SESSION", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
