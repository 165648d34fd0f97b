package models

import "time"

// DayStatus is the derived attendance status for one person on one date.
type DayStatus string

const (
	DayStatusPresent    DayStatus = "present"
	DayStatusLate       DayStatus = "late"
	DayStatusAbsent     DayStatus = "absent"
	DayStatusIncomplete DayStatus = "incomplete"
	DayStatusExcused    DayStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s DayStatus) Valid() bool {
	switch s {
	case DayStatusPresent, DayStatusLate, DayStatusAbsent, DayStatusIncomplete, DayStatusExcused:
		return true
	default:
		return false
	}
}

// DailyStatus is the reconciled attendance outcome for one person and one
// calendar date. FirstEntry/LastExit follow the first-in/last-out policy;
// scans between them are kept for audit but do not change the duration.
type DailyStatus struct {
	PersonID        string     `json:"person_id"`
	Date            time.Time  `json:"date"`
	Status          DayStatus  `json:"status"`
	DivisionID      *string    `json:"division_id,omitempty"`
	FirstEntry      *time.Time `json:"first_entry_time,omitempty"`
	LastExit        *time.Time `json:"last_exit_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Verified        bool       `json:"verified"`
	Overridden      bool       `json:"overridden,omitempty"`
}
