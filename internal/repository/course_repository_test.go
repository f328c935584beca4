package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/models"
)

func TestCourseRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description"}).
		AddRow("course-1", "Databases and SQL", "Relational modelling")
	mock.ExpectQuery("SELECT c.id, c.name, c.description").
		WithArgs("user-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)

	courses, err := repo.ListByStatus(context.Background(), "user-1", models.EnrollmentStatusEnrolled)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "Databases and SQL", courses[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByStatusEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT c.id, c.name, c.description").
		WithArgs("user-1", models.EnrollmentStatusFinished).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))

	courses, err := repo.ListByStatus(context.Background(), "user-1", models.EnrollmentStatusFinished)
	require.NoError(t, err)
	require.NotNil(t, courses)
	require.Empty(t, courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "description"}).
		AddRow("course-2", "Linear Algebra", "Vectors and matrices").
		AddRow("course-3", "Web Application Development", "HTTP services")
	mock.ExpectQuery(regexp.QuoteMeta("NOT EXISTS")).
		WithArgs("user-1").
		WillReturnRows(rows)

	courses, err := repo.ListAvailable(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
