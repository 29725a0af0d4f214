package models

import "time"

// AttendanceRecord holds the headcount of one service date
type AttendanceRecord struct {
	ID         int64     `json:"id" db:"id"`
	Date       time.Time `json:"date" db:"service_date" example:"2024-01-05T00:00:00Z"`
	Adults     int       `json:"adults" db:"adults"`
	Teens      int       `json:"teens" db:"teens"`
	Kids       int       `json:"kids" db:"kids"`
	Babies     int       `json:"babies" db:"babies"`
	NewPeople  int       `json:"newPeople" db:"new_people"`
	Total      int       `json:"total" db:"total"`
	RecordedBy *int64    `json:"recordedBy,omitempty" db:"recorded_by"`
	Notes      *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// ComputeTotal sums the age bands. New people are already counted in the bands.
func (r *AttendanceRecord) ComputeTotal() int {
	return r.Adults + r.Teens + r.Kids + r.Babies
}

// UpsertOutcome reports what an import did with one row
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
	OutcomeSkipped
)
