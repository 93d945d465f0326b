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

type bellService interface {
	Status(ctx context.Context) (models.PeriodStatus, error)
	ListPresets(ctx context.Context) ([]models.BellPreset, error)
	CreatePreset(ctx context.Context, req dto.BellPresetRequest) (*models.BellPreset, error)
	Activate(ctx context.Context, id string) ([]models.BellSlot, error)
}

// BellHandler exposes the bell schedule and the live period clock.
type BellHandler struct {
	service bellService
}

// NewBellHandler constructs a BellHandler.
func NewBellHandler(svc bellService) *BellHandler {
	return &BellHandler{service: svc}
}

// Status godoc
// @Summary Current period state
// @Tags Bells
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bells/status [get]
func (h *BellHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// ListPresets godoc
// @Summary List bell presets
// @Tags Bells
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bells/presets [get]
func (h *BellHandler) ListPresets(c *gin.Context) {
	presets, err := h.service.ListPresets(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presets)
}

// CreatePreset godoc
// @Summary Create bell preset
// @Tags Bells
// @Accept json
// @Produce json
// @Param payload body dto.BellPresetRequest true "Preset payload"
// @Success 201 {object} response.Envelope
// @Router /bells/presets [post]
func (h *BellHandler) CreatePreset(c *gin.Context) {
	var req dto.BellPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bell preset payload"))
		return
	}
	preset, err := h.service.CreatePreset(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, preset)
}

// Activate godoc
// @Summary Activate bell preset
// @Description Replaces the live bell schedule with the preset's slots.
// @Tags Bells
// @Produce json
// @Param id path string true "Preset ID"
// @Success 200 {object} response.Envelope
// @Router /bells/presets/{id}/activate [post]
func (h *BellHandler) Activate(c *gin.Context) {
	slots, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, writeMeta(c))
}
