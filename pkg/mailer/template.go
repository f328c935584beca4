package mailer

import "fmt"

// EnrollmentConfirmation builds the confirmation message sent after a
// successful course enrollment.
func EnrollmentConfirmation(recipient, studentName, courseName string) Message {
	body := fmt.Sprintf(`Hi %s,

You have successfully enrolled in the course: %s.

You can find the course materials in the student portal.

Happy learning!

Student Portal Team
`, studentName, courseName)

	return Message{
		To:      recipient,
		Subject: fmt.Sprintf("Course Enrollment Confirmation: %s", courseName),
		Body:    body,
	}
}
