package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/infopanel-api/internal/dto"
	"github.com/noah-isme/infopanel-api/internal/models"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
	"github.com/noah-isme/infopanel-api/pkg/response"
)

type importRunner interface {
	Run(ctx context.Context) models.ImportSummary
}

type scheduleReader interface {
	Schedule() models.RefreshSchedule
}

// ImportHandler exposes the manual import trigger.
type ImportHandler struct {
	importer  importRunner
	scheduler scheduleReader
}

// NewImportHandler constructs the handler. scheduler may be nil when the
// background refresh is disabled.
func NewImportHandler(importer importRunner, scheduler scheduleReader) *ImportHandler {
	return &ImportHandler{importer: importer, scheduler: scheduler}
}

// Refresh godoc
// @Summary Re-import the timetable
// @Description Runs the import pipeline now and returns its summary. success=false reports a failed run.
// @Tags Import
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events/refresh [post]
func (h *ImportHandler) Refresh(c *gin.Context) {
	summary := h.importer.Run(c.Request.Context())
	response.JSON(c, http.StatusOK, summary)
}

// Schedule godoc
// @Summary Next scheduled import
// @Tags Import
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /events/refresh/schedule [get]
func (h *ImportHandler) Schedule(c *gin.Context) {
	if h.scheduler == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "scheduled import is disabled"))
		return
	}
	schedule := h.scheduler.Schedule()
	response.JSON(c, http.StatusOK, dto.RefreshScheduleResponse{
		RefreshTime: schedule.ConfiguredTime.String(),
		NextFireAt:  schedule.NextFireAt.Format(time.RFC3339),
	})
}
