package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/internal/service"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/response"
)

// LeaveHandler wires HTTP endpoints to the teacher leave service.
type LeaveHandler struct {
	service *service.LeaveService
}

// NewLeaveHandler creates a new handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Create godoc
// @Summary Request leave for a lecture
// @Description Opens a PENDING leave request for one of the caller's lectures
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	leave, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, leave)
}

// List godoc
// @Summary List leave requests
// @Description Teachers see their own requests, HODs and admins see all
// @Tags Leaves
// @Produce json
// @Param status query []string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	query := dto.LeaveQuery{LectureID: c.Query("lecture_id")}
	for _, s := range c.QueryArray("status") {
		query.Status = append(query.Status, models.LeaveStatus(s))
	}

	leaves, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leaves, nil)
}

// Get godoc
// @Summary Get a leave request
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	leave, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}

// Review godoc
// @Summary Review a leave request
// @Description HOD review moves PENDING to HOD_REVIEWED; admin review finalises
// @Description the approval and reassigns the lecture to the accepted substitute
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /leaves/{id}/review [post]
func (h *LeaveHandler) Review(c *gin.Context) {
	leave, err := h.service.Review(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}

// Reject godoc
// @Summary Reject a leave request
// @Description Denies the request and declines every open replacement offer for its lecture
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&payload)

	leave, err := h.service.Reject(c.Request.Context(), c.Param("id"), payload.Reason, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}
