package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clc-lbu/timetable-api/internal/service"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
	"github.com/clc-lbu/timetable-api/pkg/response"
)

// CalendarHandler serves the term/week header label and the term table.
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// WeekLabel godoc
// @Summary Get the term/week label for a date
// @Description Defaults to today when no date is supplied
// @Tags Calendar
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/week-label [get]
func (h *CalendarHandler) WeekLabel(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	response.JSON(c, http.StatusOK, gin.H{
		"date":  day.Format("2006-01-02"),
		"label": h.calendar.WeekLabel(day),
	}, nil)
}

// Terms godoc
// @Summary List the configured school terms
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar/terms [get]
func (h *CalendarHandler) Terms(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.calendar.Terms(), nil)
}
