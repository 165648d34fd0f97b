package models

import "time"

// EventKind distinguishes the direction of a biometric scan. Override events
// carry a manually asserted day status instead of a scan direction.
type EventKind string

const (
	EventKindEntry    EventKind = "entry"
	EventKindExit     EventKind = "exit"
	EventKindOverride EventKind = "override"
)

// Valid returns true when the kind is a supported value.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindEntry, EventKindExit, EventKindOverride:
		return true
	default:
		return false
	}
}

// EventSource identifies who produced an event.
type EventSource string

const (
	EventSourceDevice EventSource = "device"
	EventSourceManual EventSource = "manual"
)

// Valid returns true when the source is a supported value.
func (s EventSource) Valid() bool {
	switch s {
	case EventSourceDevice, EventSourceManual:
		return true
	default:
		return false
	}
}

// AttendanceEvent is an immutable entry/exit fact. Events are never deleted;
// corrections mark them invalidated so the audit trail survives.
type AttendanceEvent struct {
	ID             string      `db:"id" json:"id"`
	PersonID       string      `db:"person_id" json:"person_id"`
	DeviceID       string      `db:"device_id" json:"device_id"`
	Timestamp      time.Time   `db:"timestamp" json:"timestamp"`
	Kind           EventKind   `db:"kind" json:"kind"`
	Verified       bool        `db:"verified" json:"verified"`
	Source         EventSource `db:"source" json:"source"`
	OverrideStatus *DayStatus  `db:"override_status" json:"override_status,omitempty"`
	Invalidated    bool        `db:"invalidated" json:"invalidated"`
	RecordedAt     time.Time   `db:"recorded_at" json:"recorded_at"`
}

// AppendResult reports the outcome of an append. Duplicate is true when the
// event collapsed onto an already recorded logical event.
type AppendResult struct {
	Event     *AttendanceEvent `json:"event"`
	Duplicate bool             `json:"duplicate"`
}
