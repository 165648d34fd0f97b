package models

import "time"

// EnrollmentRecord maps a person to a division for a date range. Owned by the
// academic system; the engine only reads it. EffectiveTo is nil while the
// enrollment is current.
type EnrollmentRecord struct {
	ID            string     `db:"id" json:"id"`
	PersonID      string     `db:"person_id" json:"person_id"`
	DivisionID    string     `db:"division_id" json:"division_id"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
}
