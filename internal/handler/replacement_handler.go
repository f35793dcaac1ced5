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

// ReplacementHandler wires HTTP endpoints to the replacement offer service.
type ReplacementHandler struct {
	service *service.ReplacementService
}

// NewReplacementHandler creates a new handler.
func NewReplacementHandler(svc *service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{service: svc}
}

// Create godoc
// @Summary Offer to cover a lecture
// @Description Proposes that a named peer covers the lecture of an open leave request
// @Tags Replacements
// @Accept json
// @Produce json
// @Param payload body dto.CreateOfferRequest true "Offer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /replacements [post]
func (h *ReplacementHandler) Create(c *gin.Context) {
	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offer payload"))
		return
	}

	offer, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, offer)
}

// List godoc
// @Summary List replacement offers
// @Description Teachers see offers they made or received, HODs and admins see all
// @Tags Replacements
// @Produce json
// @Param status query []string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /replacements [get]
func (h *ReplacementHandler) List(c *gin.Context) {
	query := dto.OfferQuery{LectureID: c.Query("lecture_id")}
	for _, s := range c.QueryArray("status") {
		query.Status = append(query.Status, models.OfferStatus(s))
	}

	offers, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, offers, nil)
}

// Accept godoc
// @Summary Accept an offer
// @Description First acceptance wins; sibling offers for the lecture are removed
// @Tags Replacements
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /replacements/{id}/accept [post]
func (h *ReplacementHandler) Accept(c *gin.Context) {
	offer, err := h.service.Accept(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, offer, nil)
}

// DeclinePeer godoc
// @Summary Decline an offer as the addressed peer
// @Tags Replacements
// @Produce json
// @Param id path string true "Offer ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /replacements/{id}/decline-peer [post]
func (h *ReplacementHandler) DeclinePeer(c *gin.Context) {
	if err := h.service.DeclineByPeer(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Approve godoc
// @Summary Approve an accepted offer
// @Description Reassigns the covered lecture to the accepter and, for swaps,
// @Description the return lecture to the offerer
// @Tags Replacements
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /replacements/{id}/approve [post]
func (h *ReplacementHandler) Approve(c *gin.Context) {
	offer, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, offer, nil)
}

// Decline godoc
// @Summary Decline an offer as admin
// @Tags Replacements
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} response.Envelope
// @Router /replacements/{id}/decline [post]
func (h *ReplacementHandler) Decline(c *gin.Context) {
	offer, err := h.service.Decline(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, offer, nil)
}
