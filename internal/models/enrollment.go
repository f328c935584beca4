package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment row.
type EnrollmentStatus string

// Possible enrollment statuses. Absence of a row is the implicit third
// state: the course is available to the user.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
	EnrollmentStatusFinished EnrollmentStatus = "finished"
)

// Enrollment links one user to one course with a status. The (user_id,
// course_id) pair is the identity; at most one row may exist per pair.
type Enrollment struct {
	UserID     string           `db:"user_id" json:"userId"`
	CourseID   string           `db:"course_id" json:"courseId"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolledAt"`
	Status     EnrollmentStatus `db:"status" json:"status"`
}
