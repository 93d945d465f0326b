package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type dutyService interface {
	Roster(ctx context.Context, hy models.HalfYear) ([]models.DutyRecord, error)
	Solve(ctx context.Context, hy models.HalfYear, req dto.DutySolveRequest) (models.DutyRoster, error)
	Assign(ctx context.Context, hy models.HalfYear, req dto.DutyAssignRequest) (models.DutyRecord, []models.Advisory, error)
	Clear(ctx context.Context, hy models.HalfYear, query dto.DutyClearQuery) (int, error)
	Conflicts(ctx context.Context, hy models.HalfYear) ([]models.DutyConflict, error)
}

type dutyExporter interface {
	DutyRoster(ctx context.Context, hy models.HalfYear, format service.ExportFormat) (*service.ExportFile, error)
}

// DutyHandler serves the break supervision roster.
type DutyHandler struct {
	service  dutyService
	exporter dutyExporter
}

// NewDutyHandler constructs a DutyHandler.
func NewDutyHandler(svc dutyService, exporter dutyExporter) *DutyHandler {
	return &DutyHandler{service: svc, exporter: exporter}
}

// Roster godoc
// @Summary Duty roster
// @Tags Duty
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/duty [get]
func (h *DutyHandler) Roster(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.service.Roster(c.Request.Context(), hy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Solve godoc
// @Summary Auto-assign duty zones
// @Tags Duty
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.DutySolveRequest false "Weekdays to solve"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/duty/solve [post]
func (h *DutyHandler) Solve(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DutySolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid duty solve payload"))
			return
		}
	}
	roster, err := h.service.Solve(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, map[string]interface{}{"unassigned": len(roster.Unassigned)})
}

// Assign godoc
// @Summary Set the teacher of a duty slot
// @Tags Duty
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.DutyAssignRequest true "Duty slot"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/duty [put]
func (h *DutyHandler) Assign(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DutyAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid duty payload"))
		return
	}
	record, advisories, err := h.service.Assign(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, record, warnings(advisories))
}

// Clear godoc
// @Summary Clear duty records
// @Tags Duty
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param weekday query int false "Weekday (1-7)"
// @Param zoneId query string false "Zone ID"
// @Param shift query string false "FIRST or SECOND"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/duty [delete]
func (h *DutyHandler) Clear(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.DutyClearQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid duty filter"))
		return
	}
	removed, err := h.service.Clear(c.Request.Context(), hy, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed})
}

// Conflicts godoc
// @Summary Teachers on two zones at once
// @Tags Duty
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/duty/conflicts [get]
func (h *DutyHandler) Conflicts(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	conflicts, err := h.service.Conflicts(c.Request.Context(), hy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, map[string]interface{}{"count": len(conflicts)})
}

// Export godoc
// @Summary Download the duty roster
// @Tags Duty
// @Produce text/csv
// @Produce application/pdf
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{halfYear}/duty/export [get]
func (h *DutyHandler) Export(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.DutyRoster(c.Request.Context(), hy, service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
