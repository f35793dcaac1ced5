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

// SignupHandler wires HTTP endpoints to the signup service.
type SignupHandler struct {
	service *service.SignupService
}

// NewSignupHandler creates a new handler.
func NewSignupHandler(svc *service.SignupService) *SignupHandler {
	return &SignupHandler{service: svc}
}

// Signup godoc
// @Summary Register a new account
// @Description Creates a PENDING account awaiting admin approval
// @Tags Signups
// @Accept json
// @Produce json
// @Param payload body dto.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *SignupHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// List godoc
// @Summary List pending signups
// @Description Returns accounts awaiting review
// @Tags Signups
// @Produce json
// @Param role query string false "Filter by requested role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /signups [get]
func (h *SignupHandler) List(c *gin.Context) {
	query := dto.SignupQuery{Role: models.UserRole(c.Query("role"))}

	users, total, err := h.service.ListPending(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, &models.Pagination{TotalCount: total})
}

// Approve godoc
// @Summary Approve a pending signup
// @Description Activates the account and sends the welcome mail
// @Tags Signups
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signups/{id}/approve [post]
func (h *SignupHandler) Approve(c *gin.Context) {
	user, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Reject godoc
// @Summary Reject a pending signup
// @Description Removes the account and sends the rejection mail
// @Tags Signups
// @Produce json
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signups/{id}/reject [post]
func (h *SignupHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
