package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acadflow/acadflow-api/internal/dto"
	"github.com/acadflow/acadflow-api/internal/models"
	"github.com/acadflow/acadflow-api/internal/service"
	"github.com/acadflow/acadflow-api/pkg/config"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/response"
)

// StudentLeaveHandler wires HTTP endpoints to the student leave service.
type StudentLeaveHandler struct {
	service *service.StudentLeaveService
	uploads config.UploadsConfig
}

// NewStudentLeaveHandler creates a new handler.
func NewStudentLeaveHandler(svc *service.StudentLeaveService, uploads config.UploadsConfig) *StudentLeaveHandler {
	return &StudentLeaveHandler{service: svc, uploads: uploads}
}

// Create godoc
// @Summary Request leave for today
// @Description Opens a PENDING daily leave request; one per student per day
// @Tags StudentLeaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateStudentLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student-leaves [post]
func (h *StudentLeaveHandler) Create(c *gin.Context) {
	var req dto.CreateStudentLeaveRequest
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
// @Summary List student leave requests
// @Description Students see their own requests, HODs and admins see all
// @Tags StudentLeaves
// @Produce json
// @Param status query []string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /student-leaves [get]
func (h *StudentLeaveHandler) List(c *gin.Context) {
	query := dto.StudentLeaveQuery{StudentID: c.Query("student_id")}
	for _, s := range c.QueryArray("status") {
		query.Status = append(query.Status, models.StudentLeaveStatus(s))
	}

	leaves, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leaves, nil)
}

// Approve godoc
// @Summary Approve a student leave request
// @Tags StudentLeaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student-leaves/{id}/approve [post]
func (h *StudentLeaveHandler) Approve(c *gin.Context) {
	leave, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}

// Reject godoc
// @Summary Reject a student leave request
// @Description A first denial stays resubmittable; a denial of a resubmission is terminal
// @Tags StudentLeaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student-leaves/{id}/reject [post]
func (h *StudentLeaveHandler) Reject(c *gin.Context) {
	leave, err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}

// Resubmit godoc
// @Summary Resubmit a denied leave request
// @Description Attaches the uploaded supporting document and returns the request to review
// @Tags StudentLeaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.ResubmitStudentLeaveRequest true "Resubmission payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student-leaves/{id}/resubmit [post]
func (h *StudentLeaveHandler) Resubmit(c *gin.Context) {
	var req dto.ResubmitStudentLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resubmission payload"))
		return
	}

	leave, err := h.service.Resubmit(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, leave, nil)
}

// UploadURL godoc
// @Summary Get a signed upload token
// @Description Issues a short-lived write token for the request's supporting document
// @Tags StudentLeaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student-leaves/{id}/upload-url [get]
func (h *StudentLeaveHandler) UploadURL(c *gin.Context) {
	signed, err := h.service.UploadURL(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, signed, nil)
}

// ViewURL godoc
// @Summary Get a signed view token
// @Description Issues a short-lived read token for the attached document
// @Tags StudentLeaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student-leaves/{id}/document [get]
func (h *StudentLeaveHandler) ViewURL(c *gin.Context) {
	signed, err := h.service.ViewURL(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, signed, nil)
}

// UploadDocument stores the request body under the object key named by the
// write token. The token is the sole authorization.
func (h *StudentLeaveHandler) UploadDocument(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "upload token required"))
		return
	}

	if err := h.checkDocumentType(c.ContentType()); err != nil {
		response.Error(c, err)
		return
	}

	limit := h.uploads.MaxFileSizeBytes
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if int64(len(data)) > limit {
		response.Error(c, appErrors.Clone(appErrors.ErrDocumentTooLarge, fmt.Sprintf("document exceeds the %d byte limit", limit)))
		return
	}

	objectKey, err := h.service.StoreDocument(token, bytes.NewReader(data))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"object_key": objectKey}, nil)
}

// checkDocumentType enforces the configured MIME allow list. An empty list
// accepts any content type.
func (h *StudentLeaveHandler) checkDocumentType(contentType string) error {
	if len(h.uploads.AllowedMIMEs) == 0 {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return appErrors.Clone(appErrors.ErrUnsupportedDocument, "missing or malformed content type")
	}
	for _, allowed := range h.uploads.AllowedMIMEs {
		if strings.EqualFold(mediaType, allowed) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrUnsupportedDocument, fmt.Sprintf("content type %q is not allowed", mediaType))
}

// DownloadDocument streams the document named by the read token.
func (h *StudentLeaveHandler) DownloadDocument(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "view token required"))
		return
	}

	file, objectKey, err := h.service.OpenDocument(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat document"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(objectKey)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
