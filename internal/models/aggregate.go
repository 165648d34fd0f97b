package models

import "time"

// DivisionDayAggregate is the rollup of daily statuses for one division and
// one date. Every person enrolled on that date contributes exactly one bucket,
// so Present+Late+Absent+Incomplete+Excused == TotalEnrolled.
type DivisionDayAggregate struct {
	DivisionID           string    `json:"division_id"`
	Date                 time.Time `json:"date"`
	Present              int       `json:"present"`
	Late                 int       `json:"late"`
	Absent               int       `json:"absent"`
	Incomplete           int       `json:"incomplete"`
	Excused              int       `json:"excused"`
	TotalEnrolled        int       `json:"total_enrolled"`
	AttendancePercentage int       `json:"attendance_percentage"`
}

// RangeTrend is an ordered sequence of division-day aggregates across a date
// range. It is always assembled from cached day aggregates and never stored.
type RangeTrend struct {
	DivisionID        string                 `json:"division_id"`
	DateFrom          time.Time              `json:"date_from"`
	DateTo            time.Time              `json:"date_to"`
	Days              []DivisionDayAggregate `json:"days"`
	AveragePercentage int                    `json:"average_percentage"`
}
