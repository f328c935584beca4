package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

// CourseRepository reads the static course catalog and the per-user course
// partitions derived from the enrollment ledger.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a single course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// ListByStatus returns the courses a user holds an enrollment row for with
// the given status.
func (r *CourseRepository) ListByStatus(ctx context.Context, userID string, status models.EnrollmentStatus) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.description
        FROM courses c
        JOIN enrollments e ON e.course_id = c.id
        WHERE e.user_id = $1 AND e.status = $2
        ORDER BY c.name`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, userID, status); err != nil {
		return nil, fmt.Errorf("list courses by status: %w", err)
	}
	return courses, nil
}

// ListAvailable returns catalog courses the user holds no enrollment row
// for, regardless of status. Together with ListByStatus this partitions the
// catalog per user.
func (r *CourseRepository) ListAvailable(ctx context.Context, userID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.name, c.description
        FROM courses c
        WHERE NOT EXISTS (
            SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.user_id = $1
        )
        ORDER BY c.name`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, userID); err != nil {
		return nil, fmt.Errorf("list available courses: %w", err)
	}
	return courses, nil
}
