package enrollments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/coursestats/internal/models"
)

// Repository reads course enrollments and instructor assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an enrollments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByCourse returns every enrollment of a course with the user's name and role.
func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Enrollment, error) {
	const q = `SELECT e.course_id, e.user_id, u.username, u.role, e.scope, e.enrolled_at
		FROM enrollments e JOIN users u ON u.id = e.user_id
		WHERE e.course_id = $1 ORDER BY u.username`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()
	var list []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		var role, scope string
		if err := rows.Scan(&e.CourseID, &e.UserID, &e.Username, &role, &scope, &e.EnrolledAt); err != nil {
			return nil, err
		}
		e.Role = models.Role(role)
		e.Scope = models.EnrollmentScope(scope)
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListInstructors returns the usernames assigned as instructors of a course.
func (r *Repository) ListInstructors(ctx context.Context, courseID uuid.UUID) ([]string, error) {
	const q = `SELECT u.username FROM course_instructors ci JOIN users u ON u.id = ci.user_id WHERE ci.course_id = $1`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("query instructors: %w", err)
	}
	defer rows.Close()
	var list []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		list = append(list, name)
	}
	return list, rows.Err()
}

// IsEnrolled reports whether the user holds any enrollment in the course.
func (r *Repository) IsEnrolled(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok)
	return ok, err
}

// IsInstructor reports whether the user is assigned as instructor of the course.
func (r *Repository) IsInstructor(ctx context.Context, courseID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM course_instructors WHERE course_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok)
	return ok, err
}
