package dto

import (
	"github.com/yigit/ekklesia/internal/app/models"
	"github.com/yigit/ekklesia/internal/pkg/csvimport"
)

// AttendanceRequest creates or replaces the record of one service date.
// Date accepts YYYY-MM-DD or DD/MM/YY[YY].
type AttendanceRequest struct {
	Date      string  `json:"date" binding:"required,notblank" example:"2024-01-05"`
	Adults    int     `json:"adults" binding:"min=0"`
	Teens     int     `json:"teens" binding:"min=0"`
	Kids      int     `json:"kids" binding:"min=0"`
	Babies    int     `json:"babies" binding:"min=0"`
	NewPeople int     `json:"newPeople" binding:"min=0"`
	Notes     *string `json:"notes" binding:"omitempty,max=500"`
}

// AttendanceFilterRequest limits listings to a date range
type AttendanceFilterRequest struct {
	From string `form:"from" example:"2024-01-01"`
	To   string `form:"to" example:"2024-12-31"`
}

// ImportResultResponse summarizes a CSV import
type ImportResultResponse struct {
	Inserted int                   `json:"inserted"`
	Updated  int                   `json:"updated"`
	Skipped  int                   `json:"skipped"`
	Errors   []csvimport.LineError `json:"errors"`
}

// AttendanceStatsResponse holds the derived attendance figures
type AttendanceStatsResponse struct {
	Window         int     `json:"window" example:"4"`
	RollingAverage float64 `json:"rollingAverage" example:"182.5"`
	// WeekOverWeekGrowth is the percent change of the latest total against the one before it
	WeekOverWeekGrowth *float64                 `json:"weekOverWeekGrowth,omitempty" example:"12.5"`
	RecordHigh         *models.AttendanceRecord `json:"recordHigh,omitempty"`
	Latest             *models.AttendanceRecord `json:"latest,omitempty"`
}
