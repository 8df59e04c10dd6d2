package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a unit of enrollment that owns resources and videos.
type Course struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourseResource is an addressable piece of course content.
type CourseResource struct {
	ID        string    `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	Title     string    `json:"title"`
	Kind      EventKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}
