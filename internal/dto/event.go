package dto

import (
	"github.com/noah-isme/infopanel-api/internal/models"
)

// EventQuery captures the filter query string of GET /events/filter,
// /events/bytime and /events/export.
type EventQuery struct {
	Department   *string `form:"department"`
	ClassName    *string `form:"class_name"`
	Subject      *string `form:"subject"`
	Teacher      *string `form:"teacher"`
	Room         *string `form:"room"`
	Building     *string `form:"building"`
	Visible      *bool   `form:"visible"`
	FromDatetime *string `form:"from_datetime"`
	ToDatetime   *string `form:"to_datetime"`
	Format       string  `form:"format"`
}

// Filter converts the query into a domain filter.
func (q EventQuery) Filter() (models.EventFilter, error) {
	filter := models.EventFilter{
		Department: q.Department,
		ClassName:  q.ClassName,
		Subject:    q.Subject,
		Teacher:    q.Teacher,
		Room:       q.Room,
		Building:   q.Building,
		Visible:    q.Visible,
	}
	var err error
	if filter.From, err = parseBound(q.FromDatetime); err != nil {
		return models.EventFilter{}, err
	}
	if filter.To, err = parseBound(q.ToDatetime); err != nil {
		return models.EventFilter{}, err
	}
	return filter, nil
}

func parseBound(raw *string) (*models.LocalDateTime, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := models.ParseLocalDateTime(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateEventRequest is the payload of POST /events.
type CreateEventRequest struct {
	FromDatetime *models.LocalDateTime `json:"from_datetime" validate:"required"`
	ToDatetime   *models.LocalDateTime `json:"to_datetime" validate:"required"`
	Department   string                `json:"department" validate:"required,max=255"`
	ClassName    string                `json:"class_name" validate:"required,max=255"`
	Subject      string                `json:"subject" validate:"required,max=255"`
	Teacher      string                `json:"teacher" validate:"required,max=255"`
	Room         string                `json:"room" validate:"required,max=255"`
	Building     string                `json:"building" validate:"required,max=255"`
	Visible      *bool                 `json:"visible"`
	ModifiedBy   *string               `json:"modified_by" validate:"omitempty,max=255"`
}

// RefreshScheduleResponse describes the pending daily import.
type RefreshScheduleResponse struct {
	RefreshTime string `json:"refresh_time"`
	NextFireAt  string `json:"next_fire_at"`
}
