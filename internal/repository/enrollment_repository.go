package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

// EnrollmentRepository handles persistence of the enrollment ledger. Every
// state transition is a single atomic statement; the composite primary key
// on (user_id, course_id) guarantees at most one row per pair under
// concurrent requests.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Find returns the enrollment row for a pair, or sql.ErrNoRows.
func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT user_id, course_id, enrolled_at, status FROM enrollments WHERE user_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// Insert conditionally creates an enrolled row for the pair. It reports
// false without error when a row already exists, leaving the existing row
// untouched. ON CONFLICT makes the existence check and the insert one
// atomic statement, closing the double-submit race window.
func (r *EnrollmentRepository) Insert(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	const query = `INSERT INTO enrollments (user_id, course_id, enrolled_at, status)
        VALUES (:user_id, :course_id, :enrolled_at, :status)
        ON CONFLICT (user_id, course_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, enrollment)
	if err != nil {
		return false, fmt.Errorf("insert enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert enrollment rows: %w", err)
	}
	return rows > 0, nil
}

// Reactivate flips a finished row back to enrolled with a fresh timestamp.
// It reports false when the pair has no finished row.
func (r *EnrollmentRepository) Reactivate(ctx context.Context, userID, courseID string, enrolledAt time.Time) (bool, error) {
	const query = `UPDATE enrollments SET status = $3, enrolled_at = $4 WHERE user_id = $1 AND course_id = $2 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, userID, courseID, models.EnrollmentStatusEnrolled, enrolledAt, models.EnrollmentStatusFinished)
	if err != nil {
		return false, fmt.Errorf("reactivate enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reactivate enrollment rows: %w", err)
	}
	return rows > 0, nil
}

// Delete removes the row for the pair regardless of status. It reports
// whether a row was removed; removing nothing is not an error.
func (r *EnrollmentRepository) Delete(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment rows: %w", err)
	}
	return rows > 0, nil
}

// MarkFinished transitions an enrolled row to finished. It reports false
// when no row with status enrolled exists for the pair; callers distinguish
// already-finished from not-enrolled with Find.
func (r *EnrollmentRepository) MarkFinished(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `UPDATE enrollments SET status = $3 WHERE user_id = $1 AND course_id = $2 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, userID, courseID, models.EnrollmentStatusFinished, models.EnrollmentStatusEnrolled)
	if err != nil {
		return false, fmt.Errorf("mark enrollment finished: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark enrollment finished rows: %w", err)
	}
	return rows > 0, nil
}
