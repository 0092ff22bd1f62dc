package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zetta/internal/domain/interest"
	"zetta/internal/pkg/apiclient"
	"zetta/internal/pkg/response"
	"zetta/internal/pkg/validator"
)

type Handler struct {
	store     *Store
	presenter *Presenter
	log       *zap.Logger
}

func NewHandler(store *Store, presenter *Presenter, log *zap.Logger) *Handler {
	return &Handler{store: store, presenter: presenter, log: log}
}

// GetFeed returns the unread counter, badge and recent arrivals.
// @Router /notifications [GET]
func (h *Handler) GetFeed(c *gin.Context) {
	response.Success(c, http.StatusOK, FeedResponseFrom(h.store.Feed()))
}

// ListInterests filters the authoritative list.
// @Param q   query string false "Name or formation substring"
// @Param tab query string false "all, pending, accepted or rejected"
// @Router /notifications/interests [GET]
func (h *Handler) ListInterests(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if errs := validator.Validate(q); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query", errs)
		return
	}

	results := h.store.Search(q.Q, q.Tab)
	response.Success(c, http.StatusOK, InterestListResponse{Interests: results, Total: len(results)})
}

// Refresh reconciles against the backend.
// @Router /notifications/refresh [POST]
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.store.FetchAll(c.Request.Context()); err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, "FETCH_FAILED", "Failed to fetch interests")
		return
	}
	response.Success(c, http.StatusOK, FeedResponseFrom(h.store.Feed()))
}

// @Router /notifications/{id}/read [POST]
func (h *Handler) MarkAsRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid interest ID")
		return
	}
	h.store.MarkAsRead(c.Request.Context(), id)
	response.Success(c, http.StatusOK, FeedResponseFrom(h.store.Feed()))
}

// @Router /notifications/read-all [POST]
func (h *Handler) MarkAllAsRead(c *gin.Context) {
	h.store.MarkAllAsRead(c.Request.Context())
	response.Success(c, http.StatusOK, FeedResponseFrom(h.store.Feed()))
}

// Dismiss hides a recent arrival without acknowledging it.
// @Router /notifications/recent/{index} [DELETE]
func (h *Handler) Dismiss(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_INDEX", "Index must be an integer")
		return
	}
	if err := h.store.Dismiss(index); err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	response.Success(c, http.StatusOK, FeedResponseFrom(h.store.Feed()))
}

// @Router /notifications/selected [GET]
func (h *Handler) GetSelected(c *gin.Context) {
	r, ok := h.store.Selected()
	if !ok {
		response.Error(c, http.StatusNotFound, "NO_SELECTION", ErrNoSelection.Error())
		return
	}
	response.Success(c, http.StatusOK, r)
}

// @Router /notifications/selected [PUT]
func (h *Handler) SetSelected(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return
	}

	r, err := h.store.Select(req.ID)
	if err != nil {
		if errors.Is(err, interest.ErrInterestNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	response.Success(c, http.StatusOK, r)
}

// @Router /notifications/selected [DELETE]
func (h *Handler) ClearSelected(c *gin.Context) {
	h.store.ClearSelection()
	c.Status(http.StatusNoContent)
}

// ToggleSound flips the sound preference and warms the role's sound.
// @Router /notifications/sound [PATCH]
func (h *Handler) ToggleSound(c *gin.Context) {
	enabled := h.store.ToggleSound(c.Request.Context())
	h.presenter.PrepareSound()
	response.Success(c, http.StatusOK, SoundResponse{SoundEnabled: enabled})
}

// Approve accepts an interest. A refusal carries the backend's message; an
// unreachable or failing backend is a 502.
// @Router /interests/{id}/approve [POST]
func (h *Handler) Approve(c *gin.Context) {
	id := c.Param("id")
	msg, err := h.store.Approve(c.Request.Context(), id)
	if err != nil {
		h.log.Warn("approve failed", zap.String("interest_id", id), zap.Error(err))
		if backendDown(err) {
			_ = c.Error(err)
			response.Error(c, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Failed to reach the backend")
			return
		}
		response.Error(c, http.StatusUnprocessableEntity, "APPROVE_FAILED", err.Error())
		return
	}
	response.Success(c, http.StatusOK, ApproveResponse{Message: msg})
}

func backendDown(err error) bool {
	if errors.Is(err, interest.ErrBackendUnavailable) {
		return true
	}
	var apiErr *apiclient.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError
}
