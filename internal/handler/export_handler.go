package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadflow/acadflow-api/internal/service"
	"github.com/acadflow/acadflow-api/pkg/response"
)

// ExportHandler serves admin data exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Leaves godoc
// @Summary Export the leave history
// @Description Renders every teacher leave request as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/leaves [get]
func (h *ExportHandler) Leaves(c *gin.Context) {
	result, err := h.service.LeaveHistory(c.Request.Context(), c.Query("format"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
