package dto

import (
	"time"

	"github.com/yigit/ekklesia/internal/app/models"
)

// RecurrenceRequest describes how an event repeats
type RecurrenceRequest struct {
	Frequency models.RecurrenceFrequency `json:"frequency" binding:"required,oneof=daily weekly monthly" example:"weekly"`
	Interval  int                        `json:"interval" binding:"omitempty,min=1,max=52" example:"1"`
	Until     *time.Time                 `json:"until"`
}

// EventRequest creates or replaces an event. New events start as drafts.
type EventRequest struct {
	Title           string             `json:"title" binding:"required,notblank,max=200"`
	Description     *string            `json:"description"`
	Location        *string            `json:"location" binding:"omitempty,max=200"`
	StartDate       time.Time          `json:"startDate" binding:"required"`
	EndDate         *time.Time         `json:"endDate"`
	MaxParticipants *int               `json:"maxParticipants" binding:"omitempty,min=1"`
	Recurrence      *RecurrenceRequest `json:"recurrence"`
	TeamIDs         []int64            `json:"teamIds" binding:"omitempty,dive,gt=0"`
}

// EventRegistrationRequest is the body of a registration
type EventRegistrationRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=500"`
}

// EventFilterRequest holds the query parameters of the event listing
type EventFilterRequest struct {
	Search string `form:"search"`
	TeamID *int64 `form:"teamId" binding:"omitempty,gt=0"`
	// Past includes events that already ended
	Past bool `form:"past"`
	// Status filters by status. Only honoured for admins; everyone else sees published events.
	Status models.EventStatus `form:"status" binding:"omitempty,oneof=draft published cancelled"`
}

// EventDetailResponse is an event with its upcoming occurrences
type EventDetailResponse struct {
	Event           *models.Event `json:"event"`
	NextOccurrences []time.Time   `json:"nextOccurrences,omitempty"`
}

// RegistrationFilterRequest filters registrations by status
type RegistrationFilterRequest struct {
	Status models.RegistrationStatus `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}
