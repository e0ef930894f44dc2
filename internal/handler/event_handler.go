package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/infopanel-api/internal/dto"
	"github.com/noah-isme/infopanel-api/internal/models"
	"github.com/noah-isme/infopanel-api/internal/service"
	appErrors "github.com/noah-isme/infopanel-api/pkg/errors"
	"github.com/noah-isme/infopanel-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context) ([]models.Event, error)
	Filter(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	ByTime(ctx context.Context, from, to *models.LocalDateTime) ([]models.Event, error)
	Get(ctx context.Context, id uint64) (*models.Event, error)
	Create(ctx context.Context, req dto.CreateEventRequest, actor string) (*models.Event, error)
	Delete(ctx context.Context, id uint64) (*models.Event, error)
}

type eventExporter interface {
	Export(ctx context.Context, filter models.EventFilter, format string) (*service.ExportFile, error)
}

// EventHandler serves the timetable read and edit endpoints.
type EventHandler struct {
	events   eventService
	exporter eventExporter
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventService, exporter eventExporter) *EventHandler {
	return &EventHandler{events: events, exporter: exporter}
}

// List godoc
// @Summary List events
// @Description Returns every event ordered by start time
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, events, len(events))
}

// Filter godoc
// @Summary Filter events
// @Description Equality filters over department, class, subject, teacher, room, building and visibility
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param department query string false "Department"
// @Param class_name query string false "Class name"
// @Param subject query string false "Subject"
// @Param teacher query string false "Teacher"
// @Param room query string false "Room"
// @Param building query string false "Building"
// @Param visible query bool false "Visibility"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/filter [get]
func (h *EventHandler) Filter(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	filter.From, filter.To = nil, nil
	events, err := h.events.Filter(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, events, len(events))
}

// ByTime godoc
// @Summary Events in a time window
// @Description Events starting at or after from_datetime and ending at or before to_datetime
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param from_datetime query string false "Lower bound, 2006-01-02T15:04:05"
// @Param to_datetime query string false "Upper bound, 2006-01-02T15:04:05"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events/bytime [get]
func (h *EventHandler) ByTime(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	events, err := h.events.ByTime(c.Request.Context(), filter.From, filter.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, events, len(events))
}

// Export godoc
// @Summary Export events
// @Description Renders the filtered events as CSV in the timetable layout or as PDF
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
	var query dto.EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	filter, err := query.Filter()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), filter, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Create godoc
// @Summary Create event
// @Description Adds a manually maintained event. Requires the admin role.
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	actor := ""
	if claims := claimsFromContext(c); claims != nil {
		actor = claims.Username
	}
	event, err := h.events.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Delete godoc
// @Summary Delete event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.events.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

func bindFilter(c *gin.Context) (models.EventFilter, bool) {
	var query dto.EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return models.EventFilter{}, false
	}
	filter, err := query.Filter()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return models.EventFilter{}, false
	}
	return filter, true
}

func eventID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "event id must be a positive integer"))
		return 0, false
	}
	return id, true
}
