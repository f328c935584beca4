package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/config"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

const dashboardKeyPrefix = "dashboard:"

type enrollmentRepository interface {
	Find(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	Insert(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	Reactivate(ctx context.Context, userID, courseID string, enrolledAt time.Time) (bool, error)
	Delete(ctx context.Context, userID, courseID string) (bool, error)
	MarkFinished(ctx context.Context, userID, courseID string) (bool, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByStatus(ctx context.Context, userID string, status models.EnrollmentStatus) ([]models.Course, error)
	ListAvailable(ctx context.Context, userID string) ([]models.Course, error)
}

type enrollmentNotifier interface {
	EnrollmentConfirmed(student models.UserInfo, course models.Course)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FinishResult reports the outcome of marking a course finished.
type FinishResult struct {
	AlreadyFinished bool
}

// EnrollmentService applies state transitions to the enrollment ledger.
// It never assumes exclusivity across check-then-act sequences: every
// transition is a single conditional statement in the repository, and the
// composite key on (user_id, course_id) settles concurrent enrolls.
type EnrollmentService struct {
	repo     enrollmentRepository
	courses  courseReader
	notifier enrollmentNotifier
	cache    dashboardCache
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      config.EnrollmentConfig
	cacheTTL time.Duration
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, notifier enrollmentNotifier, cache dashboardCache, metrics *MetricsService, logger *zap.Logger, cfg config.EnrollmentConfig, cacheTTL time.Duration) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, notifier: notifier, cache: cache, metrics: metrics, logger: logger, cfg: cfg, cacheTTL: cacheTTL}
}

// Enroll creates an enrolled row for the (student, course) pair. The insert
// is atomic; when it conflicts the existing row decides the outcome.
func (s *EnrollmentService) Enroll(ctx context.Context, student models.UserInfo, courseID string) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}

	enrollment := &models.Enrollment{UserID: student.ID, CourseID: course.ID}
	inserted, err := s.repo.Insert(ctx, enrollment)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if inserted {
		s.afterTransition(ctx, student, course, "enrolled")
		if s.notifier != nil {
			s.notifier.EnrollmentConfirmed(student, *course)
		}
		return nil
	}

	existing, err := s.repo.Find(ctx, student.ID, course.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The conflicting row was deleted between the insert and this
			// read; the client can simply retry.
			return appErrors.Clone(appErrors.ErrConflict, "enrollment changed concurrently, please retry")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if existing.Status == models.EnrollmentStatusFinished && s.cfg.AllowReenrollAfterFinished {
		reactivated, err := s.repo.Reactivate(ctx, student.ID, course.ID, time.Now().UTC())
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-enroll")
		}
		if !reactivated {
			return appErrors.Clone(appErrors.ErrConflict, "enrollment changed concurrently, please retry")
		}
		s.afterTransition(ctx, student, course, "re-enrolled")
		if s.notifier != nil {
			s.notifier.EnrollmentConfirmed(student, *course)
		}
		return nil
	}

	if existing.Status == models.EnrollmentStatusFinished {
		return appErrors.Clone(appErrors.ErrConflict, "course already finished")
	}
	return appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
}

// Disenroll removes the row for the pair regardless of status. Removing a
// row that does not exist is success: the desired end state already holds.
func (s *EnrollmentService) Disenroll(ctx context.Context, student models.UserInfo, courseID string) (bool, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return false, err
	}

	removed, err := s.repo.Delete(ctx, student.ID, course.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	if removed {
		s.afterTransition(ctx, student, course, "disenrolled")
	}
	return removed, nil
}

// Finish transitions an enrolled row to finished. Finishing a finished
// course is an idempotent success; finishing a course with no row fails.
func (s *EnrollmentService) Finish(ctx context.Context, student models.UserInfo, courseID string) (*FinishResult, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkFinished(ctx, student.ID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark course finished")
	}
	if updated {
		s.afterTransition(ctx, student, course, "finished")
		return &FinishResult{}, nil
	}

	existing, err := s.repo.Find(ctx, student.ID, course.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if existing.Status == models.EnrollmentStatusFinished {
		return &FinishResult{AlreadyFinished: true}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment changed concurrently, please retry")
}

// Dashboard returns the student's partition of the course catalog, serving
// a cached payload when one is fresh. The second return reports a cache hit.
func (s *EnrollmentService) Dashboard(ctx context.Context, student models.UserInfo) (*models.Dashboard, bool, error) {
	key := dashboardKeyPrefix + student.ID

	if s.cache != nil {
		var cached models.Dashboard
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("user_id", student.ID), zap.Error(err))
		}
		s.metrics.RecordCacheLookup(false)
	}

	enrolled, err := s.courses.ListByStatus(ctx, student.ID, models.EnrollmentStatusEnrolled)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled courses")
	}
	finished, err := s.courses.ListByStatus(ctx, student.ID, models.EnrollmentStatusFinished)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list finished courses")
	}
	available, err := s.courses.ListAvailable(ctx, student.ID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available courses")
	}

	dashboard := &models.Dashboard{
		Student:   student,
		Enrolled:  enrolled,
		Available: available,
		Finished:  finished,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("user_id", student.ID), zap.Error(err))
		}
	}

	return dashboard, false, nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing courseId")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *EnrollmentService) afterTransition(ctx context.Context, student models.UserInfo, course *models.Course, action string) {
	s.logger.Info("enrollment transition",
		zap.String("user_id", student.ID),
		zap.String("course_id", course.ID),
		zap.String("action", action),
	)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardKeyPrefix+student.ID); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("user_id", student.ID), zap.Error(err))
	}
}
