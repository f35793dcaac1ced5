package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acadflow/acadflow-api/internal/service"
	appErrors "github.com/acadflow/acadflow-api/pkg/errors"
	"github.com/acadflow/acadflow-api/pkg/response"
)

// ScheduleHandler serves the lecture timetable.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List the caller's schedule
// @Description Teachers and students get their own lectures for the window,
// @Description HODs and admins get the full timetable for the first day
// @Tags Schedule
// @Produce json
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var rng service.ScheduleRange
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		rng.From = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		rng.To = parsed
	}

	views, err := h.service.ForActor(c.Request.Context(), rng, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, views, nil)
}

// Subjects godoc
// @Summary List subjects
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/subjects [get]
func (h *ScheduleHandler) Subjects(c *gin.Context) {
	subjects, err := h.service.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, subjects, nil)
}

// TimeSlots godoc
// @Summary List teaching periods
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/time-slots [get]
func (h *ScheduleHandler) TimeSlots(c *gin.Context) {
	slots, err := h.service.TimeSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}
