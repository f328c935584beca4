package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/student-portal-api/pkg/config"
)

func TestConfigured(t *testing.T) {
	complete := config.SMTPConfig{
		Host:        "smtp.example.com",
		Username:    "mailer",
		Password:    "hunter2",
		SenderEmail: "portal@example.com",
	}
	assert.True(t, NewClient(complete).Configured())

	for _, tc := range []struct {
		name   string
		mutate func(*config.SMTPConfig)
	}{
		{"no host", func(c *config.SMTPConfig) { c.Host = "" }},
		{"no username", func(c *config.SMTPConfig) { c.Username = "" }},
		{"no password", func(c *config.SMTPConfig) { c.Password = "" }},
		{"no sender", func(c *config.SMTPConfig) { c.SenderEmail = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := complete
			tc.mutate(&cfg)
			assert.False(t, NewClient(cfg).Configured())
		})
	}
}

func TestSendRejectsIncompleteConfig(t *testing.T) {
	err := NewClient(config.SMTPConfig{}).Send(Message{To: "jane@example.com"})
	assert.Error(t, err)
}

func TestRenderHeadersAndBody(t *testing.T) {
	payload := string(Render("portal@example.com", Message{
		To:      "jane@example.com",
		Subject: "Course Enrollment Confirmation: Databases and SQL",
		Body:    "Hi Jane,",
	}))

	headers, body, found := strings.Cut(payload, "\r\n\r\n")
	assert.True(t, found)
	assert.Contains(t, headers, "From: portal@example.com")
	assert.Contains(t, headers, "To: jane@example.com")
	assert.Contains(t, headers, "Subject: Course Enrollment Confirmation: Databases and SQL")
	assert.Contains(t, headers, "Content-Type: text/plain; charset=UTF-8")
	assert.Equal(t, "Hi Jane,", body)
}

func TestEnrollmentConfirmation(t *testing.T) {
	msg := EnrollmentConfirmation("jane@example.com", "Jane", "Linear Algebra")

	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "Course Enrollment Confirmation: Linear Algebra", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Jane,")
	assert.Contains(t, msg.Body, "enrolled in the course: Linear Algebra")
}
