package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableService interface {
	ListLessons(ctx context.Context, hy models.HalfYear) ([]models.LessonSlot, error)
	CreateLesson(ctx context.Context, hy models.HalfYear, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error)
	UpdateLesson(ctx context.Context, hy models.HalfYear, id string, req dto.LessonRequest) (models.LessonSlot, []models.Advisory, error)
	DeleteLesson(ctx context.Context, hy models.HalfYear, id string) error
	CheckLesson(ctx context.Context, hy models.HalfYear, req dto.LessonCheckRequest) (dto.LessonCheckResponse, error)
	Conflicts(ctx context.Context, hy models.HalfYear) ([]models.LessonConflict, error)
	ListTeachers(ctx context.Context, hy models.HalfYear) ([]models.Teacher, error)
	UpsertTeacher(ctx context.Context, hy models.HalfYear, id string, req dto.TeacherRequest) (models.Teacher, error)
	DeleteTeacher(ctx context.Context, hy models.HalfYear, id string) error
	History(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error)
	Undo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error)
	Redo(ctx context.Context, hy models.HalfYear) (dto.HistoryResponse, error)
}

// TimetableHandler serves the recurring timetable of a half-year.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs a TimetableHandler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// ListLessons godoc
// @Summary List lessons
// @Tags Timetable
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/lessons [get]
func (h *TimetableHandler) ListLessons(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	lessons, err := h.service.ListLessons(c.Request.Context(), hy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons)
}

// CreateLesson godoc
// @Summary Create lesson
// @Tags Timetable
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.LessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/{halfYear}/lessons [post]
func (h *TimetableHandler) CreateLesson(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, advisories, err := h.service.CreateLesson(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, lesson, warnings(advisories))
}

// UpdateLesson godoc
// @Summary Replace lesson
// @Tags Timetable
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param id path string true "Lesson ID"
// @Param payload body dto.LessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/lessons/{id} [put]
func (h *TimetableHandler) UpdateLesson(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, advisories, err := h.service.UpdateLesson(c.Request.Context(), hy, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, lesson, warnings(advisories))
}

// DeleteLesson godoc
// @Summary Delete lesson and its substitutions
// @Tags Timetable
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param id path string true "Lesson ID"
// @Success 204 {string} string ""
// @Router /timetables/{halfYear}/lessons/{id} [delete]
func (h *TimetableHandler) DeleteLesson(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteLesson(c.Request.Context(), hy, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CheckLesson godoc
// @Summary Check a draft lesson for conflicts
// @Tags Timetable
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param payload body dto.LessonCheckRequest true "Draft lesson, with lessonId when editing"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/lessons/check [post]
func (h *TimetableHandler) CheckLesson(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LessonCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	result, err := h.service.CheckLesson(c.Request.Context(), hy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Conflicts godoc
// @Summary Grid conflict map
// @Tags Timetable
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
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

// ListTeachers godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/teachers [get]
func (h *TimetableHandler) ListTeachers(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teachers, err := h.service.ListTeachers(c.Request.Context(), hy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers)
}

// UpsertTeacher godoc
// @Summary Create or replace teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param id path string true "Teacher ID"
// @Param payload body dto.TeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/teachers/{id} [put]
func (h *TimetableHandler) UpsertTeacher(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}
	teacher, err := h.service.UpsertTeacher(c.Request.Context(), hy, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, writeMeta(c))
}

// DeleteTeacher godoc
// @Summary Delete teacher
// @Tags Teachers
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Param id path string true "Teacher ID"
// @Success 204 {string} string ""
// @Router /timetables/{halfYear}/teachers/{id} [delete]
func (h *TimetableHandler) DeleteTeacher(c *gin.Context) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteTeacher(c.Request.Context(), hy, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Undo and redo depths
// @Tags Timetable
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Router /timetables/{halfYear}/history [get]
func (h *TimetableHandler) History(c *gin.Context) {
	h.travel(c, h.service.History)
}

// Undo godoc
// @Summary Undo the latest write
// @Tags Timetable
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/undo [post]
func (h *TimetableHandler) Undo(c *gin.Context) {
	h.travel(c, h.service.Undo)
}

// Redo godoc
// @Summary Redo the latest undone write
// @Tags Timetable
// @Produce json
// @Param halfYear path string true "Half-year (H1 or H2)"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetables/{halfYear}/substitutions/redo [post]
func (h *TimetableHandler) Redo(c *gin.Context) {
	h.travel(c, h.service.Redo)
}

func (h *TimetableHandler) travel(c *gin.Context, step func(context.Context, models.HalfYear) (dto.HistoryResponse, error)) {
	hy, err := halfYearParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := step(c.Request.Context(), hy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
