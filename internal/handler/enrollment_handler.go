package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, student models.UserInfo, courseID string) error
	Disenroll(ctx context.Context, student models.UserInfo, courseID string) (bool, error)
	Finish(ctx context.Context, student models.UserInfo, courseID string) (*service.FinishResult, error)
	Dashboard(ctx context.Context, student models.UserInfo) (*models.Dashboard, bool, error)
}

// EnrollmentHandler wires the enrollment lifecycle to HTTP endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

type courseRequest struct {
	CourseID string `json:"courseId"`
}

// Dashboard returns the student's view of the catalog.
func (h *EnrollmentHandler) Dashboard(c *gin.Context) {
	student, ok := currentStudent(c)
	if !ok {
		return
	}

	dashboard, _, err := h.service.Dashboard(c.Request.Context(), student)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dashboard)
}

// Enroll enrolls the current user in a course.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	student, ok := currentStudent(c)
	if !ok {
		return
	}
	courseID, ok := bindCourseID(c)
	if !ok {
		return
	}

	if err := h.service.Enroll(c.Request.Context(), student, courseID); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "Enrollment successful"})
}

// Disenroll removes the current user's enrollment in a course. Removing an
// enrollment that does not exist succeeds.
func (h *EnrollmentHandler) Disenroll(c *gin.Context) {
	student, ok := currentStudent(c)
	if !ok {
		return
	}
	courseID, ok := bindCourseID(c)
	if !ok {
		return
	}

	removed, err := h.service.Disenroll(c.Request.Context(), student, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Successfully disenrolled"
	if !removed {
		message = "No enrollment to remove"
	}
	response.JSON(c, http.StatusOK, gin.H{"message": message})
}

// Finish marks a course as finished for the current user.
func (h *EnrollmentHandler) Finish(c *gin.Context) {
	student, ok := currentStudent(c)
	if !ok {
		return
	}
	courseID, ok := bindCourseID(c)
	if !ok {
		return
	}

	result, err := h.service.Finish(c.Request.Context(), student, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Course marked as finished"
	if result.AlreadyFinished {
		message = "Course was already marked as finished"
	}
	response.JSON(c, http.StatusOK, gin.H{"message": message, "alreadyFinished": result.AlreadyFinished})
}

func currentStudent(c *gin.Context) (models.UserInfo, bool) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.UserInfo{}, false
	}
	return models.UserInfo{ID: claims.UserID, Email: claims.Email, Name: claims.Name}, true
}

func bindCourseID(c *gin.Context) (string, bool) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing courseId"))
		return "", false
	}
	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing courseId"))
		return "", false
	}
	return courseID, true
}
