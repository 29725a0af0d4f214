package models

import "time"

// EventStatus is the publication state of an event
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

// RecurrenceFrequency is the unit of a recurrence rule
type RecurrenceFrequency string

const (
	RecurrenceDaily   RecurrenceFrequency = "daily"
	RecurrenceWeekly  RecurrenceFrequency = "weekly"
	RecurrenceMonthly RecurrenceFrequency = "monthly"
)

// Recurrence describes how an event repeats
type Recurrence struct {
	Frequency RecurrenceFrequency `json:"frequency" example:"weekly"`
	Interval  int                 `json:"interval" example:"1"`
	Until     *time.Time          `json:"until,omitempty"`
}

func (r *Recurrence) step(t time.Time) time.Time {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	switch r.Frequency {
	case RecurrenceDaily:
		return t.AddDate(0, 0, interval)
	case RecurrenceMonthly:
		return t.AddDate(0, interval, 0)
	default:
		return t.AddDate(0, 0, 7*interval)
	}
}

// Occurrences returns up to limit start times of the series that are not before from
func (r *Recurrence) Occurrences(start, from time.Time, limit int) []time.Time {
	var out []time.Time
	for t := start; len(out) < limit; t = r.step(t) {
		if r.Until != nil && t.After(*r.Until) {
			break
		}
		if !t.Before(from) {
			out = append(out, t)
		}
	}
	return out
}

// Event is a scheduled gathering members can register for
type Event struct {
	ID                int64       `json:"id" db:"id"`
	Title             string      `json:"title" db:"title" example:"Retiro de jóvenes"`
	Description       *string     `json:"description,omitempty" db:"description"`
	Location          *string     `json:"location,omitempty" db:"location"`
	StartDate         time.Time   `json:"startDate" db:"start_date"`
	EndDate           *time.Time  `json:"endDate,omitempty" db:"end_date"`
	MaxParticipants   *int        `json:"maxParticipants,omitempty" db:"max_participants"`
	Status            EventStatus `json:"status" db:"status" example:"published"`
	Recurrence        *Recurrence `json:"recurrence,omitempty"`
	ImageURL          *string     `json:"imageUrl,omitempty" db:"image_url"`
	TeamIDs           []int64     `json:"teamIds"`
	CreatedBy         *int64      `json:"createdBy,omitempty" db:"created_by"`
	RegistrationCount int         `json:"registrationCount"` // pending registrations
	CreatedAt         time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time   `json:"updatedAt" db:"updated_at"`
}

// HasEnded reports whether the event is over at now. The end date is used when present,
// otherwise the start date.
func (e *Event) HasEnded(now time.Time) bool {
	cutoff := e.StartDate
	if e.EndDate != nil {
		cutoff = *e.EndDate
	}
	return now.After(cutoff)
}

// HasTeam reports whether teamID is associated with the event
func (e *Event) HasTeam(teamID int64) bool {
	for _, id := range e.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// RegistrationStatus is the approval state of an event registration
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// EventRegistration links a profile to an event. At most one row exists per (event, profile).
type EventRegistration struct {
	ID        int64              `json:"id" db:"id"`
	EventID   int64              `json:"eventId" db:"event_id"`
	ProfileID int64              `json:"profileId" db:"profile_id"`
	Status    RegistrationStatus `json:"status" db:"status"`
	Notes     *string            `json:"notes,omitempty" db:"notes"`
	DecidedBy *int64             `json:"decidedBy,omitempty" db:"decided_by"`
	DecidedAt *time.Time         `json:"decidedAt,omitempty" db:"decided_at"`
	CreatedAt time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time          `json:"updatedAt" db:"updated_at"`

	// Related entities
	Profile *Profile `json:"profile,omitempty"`
	Event   *Event   `json:"event,omitempty"`
}
