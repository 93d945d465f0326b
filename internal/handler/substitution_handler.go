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

type substitutionService interface {
	Daily(ctx context.Context, hy models.HalfYear, date string) ([]models.Substitution, error)
	Candidates(ctx context.Context, hy models.HalfYear, query dto.CandidateQuery) ([]models.RankedCandidate, error)
	Assign(ctx context.Context, hy models.HalfYear, req dto.AssignSubstitutionRequest) (dto.SubstitutionResponse, error)
	Swap(ctx context.Context, hy models.HalfYear, req dto.SwapRequest) (dto.SwapResponse, error)
	Delete(ctx context.Context, hy models.HalfYear, date, lessonID string) error
	MarkAbsent(ctx context.Context, hy models.HalfYear, req dto.AbsenceRequest) (dto.AbsenceResponse, error)
	MonthlyLoad(ctx context.Context, hy models.HalfYear, query dto.MonthlyLoadQuery) ([]models.TeacherLoad, error)
}

type substitutionExporter interface {
	DailySubstitutions(ctx context.Context, hy models.HalfYear, date string, format service.ExportFormat) (*service.ExportFile, error)
}

// SubstitutionHandler serves day-level substitutions, swaps and absences.
type SubstitutionHandler struct {
	service  substitutionService
	exporter substitutionExporter
}

// NewSubstitutionHandler constructs a SubstitutionHandler.
func NewSubstitutionHandler(svc substitutionService, exporter substitutionExporter) *SubstitutionHandler {
	return &SubstitutionHandler{service: svc, exporter: exporter}
}

// Daily godoc
// @Summary Substitutions of a date
// @Tags Substitutions
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions [get]
func (h *SubstitutionHandler) Daily(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	subs, err := h.service.Daily(c.Request.Context(), hy, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, map[string]interface{}{"date": date, "count": len(subs)})
}

// Candidates godoc
// @Summary Ranked substitute candidates for an uncovered lesson
// @Tags Substitutions
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param lessonId query string true "Lesson ID"
// @Param q query string false "Teacher name filter"
// @Param declined query []string false "Teacher IDs that already declined"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/candidates [get]
func (h *SubstitutionHandler) Candidates(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.CandidateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid candidate query"))
		return
	}
	query.Declined = splitList(c.QueryArray("declined"))
	candidates, err := h.service.Candidates(c.Request.Context(), hy, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, map[string]interface{}{"count": len(candidates)})
}

// Assign godoc
// @Summary Resolve an uncovered lesson
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.AssignSubstitutionRequest true "Replacement outcome"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions [post]
func (h *SubstitutionHandler) Assign(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AssignSubstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitution payload"))
		return
	}
	result, err := h.service.Assign(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, warnings(result.Advisories))
}

// Swap godoc
// @Summary Swap two lessons of one teacher on a date
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.SwapRequest true "Swap payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/swap [post]
func (h *SubstitutionHandler) Swap(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap payload"))
		return
	}
	result, err := h.service.Swap(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, warnings(result.Advisories))
}

// Absence godoc
// @Summary Mark a teacher absent for a date
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.AbsenceRequest true "Absence payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/absences [post]
func (h *SubstitutionHandler) Absence(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	result, err := h.service.MarkAbsent(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, writeMeta(c))
}

// Delete godoc
// @Summary Remove the substitution of a lesson on a date
// @Tags Substitutions
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param lessonId path string true "Lesson ID"
// @Success 204 {string} string ""
// @Router /timetables/{halfYear}/substitutions/{date}/{lessonId} [delete]
func (h *SubstitutionHandler) Delete(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), hy, c.Param("date"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MonthlyLoad godoc
// @Summary Substitutions per teacher in a month
// @Tags Substitutions
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/load [get]
func (h *SubstitutionHandler) MonthlyLoad(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.MonthlyLoadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid month query"))
		return
	}
	loads, err := h.service.MonthlyLoad(c.Request.Context(), hy, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loads, map[string]interface{}{"month": query.Month})
}

// Export godoc
// @Summary Download the substitution sheet of a date
// @Tags Substitutions
// @Produce text/csv
// @Produce application/pdf
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/{halfYear}/substitutions/export [get]
func (h *SubstitutionHandler) Export(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exporter.DailySubstitutions(c.Request.Context(), hy, query.Date, service.ExportFormat(query.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
