package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-engine/internal/models"
)

// EnrollmentRepository reads the division membership supplied by the academic
// system. The engine never writes enrollment.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// DivisionOf resolves the division a person belonged to on the given date.
// The second return value is false when no enrollment covers the date.
func (r *EnrollmentRepository) DivisionOf(ctx context.Context, personID string, date time.Time) (string, bool, error) {
	query := `SELECT division_id FROM enrollments
WHERE person_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)
ORDER BY effective_from DESC
LIMIT 1`
	var divisionID string
	if err := r.db.GetContext(ctx, &divisionID, query, personID, date); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve division: %w", err)
	}
	return divisionID, true, nil
}

// EnrolledOn returns the ids of every person enrolled in the division on the
// given date.
func (r *EnrollmentRepository) EnrolledOn(ctx context.Context, divisionID string, date time.Time) ([]string, error) {
	query := `SELECT person_id FROM enrollments
WHERE division_id = $1 AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)
ORDER BY person_id`
	var personIDs []string
	if err := r.db.SelectContext(ctx, &personIDs, query, divisionID, date); err != nil {
		return nil, fmt.Errorf("list enrolled persons: %w", err)
	}
	return personIDs, nil
}

// RecordsFor returns the raw enrollment rows covering a person, newest first.
// Used by audit views to explain division resolution.
func (r *EnrollmentRepository) RecordsFor(ctx context.Context, personID string) ([]models.EnrollmentRecord, error) {
	query := `SELECT id, person_id, division_id, effective_from, effective_to FROM enrollments
WHERE person_id = $1
ORDER BY effective_from DESC`
	var rows []models.EnrollmentRecord
	if err := r.db.SelectContext(ctx, &rows, query, personID); err != nil {
		return nil, fmt.Errorf("list enrollment records: %w", err)
	}
	return rows, nil
}
