package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"activity-signup-service/internal/usecase/activity"
	pkgerrors "activity-signup-service/pkg/errors"
	"activity-signup-service/pkg/logger"
)

// ActivityHandler handles HTTP requests for activity operations
type ActivityHandler struct {
	uc  activity.ActivityUsecase
	log *zap.Logger
}

// NewActivityHandler creates a new ActivityHandler instance
func NewActivityHandler(uc activity.ActivityUsecase, log *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		uc:  uc,
		log: log,
	}
}

// ActivityResponse represents one activity in the listing
type ActivityResponse struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// MessageResponse represents the body of a successful signup or unregister
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response. Detail is what the browser
// client displays; Error is the machine-readable kind.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// ListActivities handles GET /activities
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	resp, err := h.uc.ListActivities(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make(map[string]ActivityResponse, len(resp.Activities))
	for name, a := range resp.Activities {
		participants := a.Participants
		if participants == nil {
			participants = []string{}
		}
		out[name] = ActivityResponse{
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    participants,
		}
	}

	// encoding/json writes map keys sorted, so clients see activities by name
	c.JSON(http.StatusOK, out)
}

// SignUp handles POST /activities/:activity_name/signup?email=
func (h *ActivityHandler) SignUp(c *gin.Context) {
	req := activity.SignUpRequest{
		ActivityName: c.Param("activity_name"),
		Email:        c.Query("email"),
	}

	resp, err := h.uc.SignUp(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: resp.Message})
}

// Unregister handles DELETE /activities/:activity_name/unregister?email=
func (h *ActivityHandler) Unregister(c *gin.Context) {
	req := activity.UnregisterRequest{
		ActivityName: c.Param("activity_name"),
		Email:        c.Query("email"),
	}

	resp, err := h.uc.Unregister(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: resp.Message})
}

// handleError converts usecase errors to HTTP responses. Internal details
// never reach the client.
func (h *ActivityHandler) handleError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context(), h.log)

	appErr, ok := pkgerrors.AsAppError(err)
	if !ok {
		log.Error("unclassified error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Detail: "An internal error occurred",
			Error:  "internal_error",
		})
		return
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		c.JSON(status, ErrorResponse{
			Detail: "An internal error occurred",
			Error:  appErr.Kind(),
		})
		return
	}

	c.JSON(status, ErrorResponse{
		Detail: appErr.Error(),
		Error:  appErr.Kind(),
	})
}
