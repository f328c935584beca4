package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/config"
	"github.com/noah-isme/student-portal-api/pkg/jobs"
	"github.com/noah-isme/student-portal-api/pkg/mailer"
)

const jobTypeEnrollmentEmail = "enrollment_confirmation"

type mailSender interface {
	Configured() bool
	Send(msg mailer.Message) error
}

type enrollmentEmailPayload struct {
	Recipient   string
	StudentName string
	CourseName  string
}

// NotificationService delivers enrollment confirmation emails off the
// request path. Delivery is best-effort: terminal failures are logged and
// counted, never surfaced to the triggering request.
type NotificationService struct {
	queue   *jobs.Queue
	mail    mailSender
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(mail mailSender, metrics *MetricsService, logger *zap.Logger, cfg config.NotificationsConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &NotificationService{
		mail:    mail,
		metrics: metrics,
		logger:  logger,
		enabled: cfg.Enabled,
	}

	s.queue = jobs.NewQueue(jobTypeEnrollmentEmail, s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnrollmentConfirmed queues a confirmation email for a fresh enrollment.
// When the relay is not configured the notification is skipped, matching
// the portal's behaviour in environments without SMTP credentials.
func (s *NotificationService) EnrollmentConfirmed(student models.UserInfo, course models.Course) {
	if !s.enabled {
		return
	}
	if s.mail == nil || !s.mail.Configured() {
		s.logger.Warn("smtp settings incomplete, skipping enrollment email",
			zap.String("user_id", student.ID),
			zap.String("course_id", course.ID),
		)
		return
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: jobTypeEnrollmentEmail,
		Payload: enrollmentEmailPayload{
			Recipient:   student.Email,
			StudentName: student.Name,
			CourseName:  course.Name,
		},
	})
	if err != nil {
		s.logger.Error("failed to queue enrollment email", zap.String("user_id", student.ID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(_ context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(enrollmentEmailPayload)
	if !ok {
		s.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	msg := mailer.EnrollmentConfirmation(payload.Recipient, payload.StudentName, payload.CourseName)
	if err := s.mail.Send(msg); err != nil {
		s.metrics.RecordMailDelivery(false)
		return fmt.Errorf("send enrollment email: %w", err)
	}

	s.metrics.RecordMailDelivery(true)
	s.logger.Info("enrollment email sent", zap.String("recipient", payload.Recipient))
	return nil
}
