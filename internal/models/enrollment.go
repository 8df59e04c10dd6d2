package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentScope is the stored enrollment classification.
type EnrollmentScope string

const (
	EnrollmentOpen   EnrollmentScope = "open"
	EnrollmentCredit EnrollmentScope = "credit"
)

// Enrollment links a user to a course.
type Enrollment struct {
	CourseID   uuid.UUID       `json:"course_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Username   string          `json:"username"`
	Role       Role            `json:"role"`
	Scope      EnrollmentScope `json:"scope"`
	EnrolledAt time.Time       `json:"enrolled_at"`
}
