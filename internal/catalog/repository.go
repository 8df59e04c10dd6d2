package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/coursestats/internal/models"
)

// ErrCourseNotFound is returned when a course id does not resolve.
var ErrCourseNotFound = errors.New("course not found")

// ErrResourceNotFound is returned when a resource is not part of the course.
var ErrResourceNotFound = errors.New("resource not found")

// Repository reads courses and their content titles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCourse returns a course by ID.
func (r *Repository) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	const q = `SELECT id, title, created_at, updated_at FROM courses WHERE id = $1`
	var c models.Course
	err := r.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolveTitle returns the title of a resource. ok is false when the resource
// has been removed from the catalog.
func (r *Repository) ResolveTitle(ctx context.Context, resourceID string) (string, bool, error) {
	const q = `SELECT title FROM course_resources WHERE id = $1`
	var title string
	err := r.pool.QueryRow(ctx, q, resourceID).Scan(&title)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return title, true, nil
}

// ListResources returns a course's content of one kind, ordered by title.
func (r *Repository) ListResources(ctx context.Context, courseID uuid.UUID, kind models.EventKind) ([]models.CourseResource, error) {
	const q = `SELECT id, course_id, title, kind, created_at FROM course_resources
		WHERE course_id = $1 AND kind = $2 ORDER BY title, id`
	rows, err := r.pool.Query(ctx, q, courseID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CourseResource
	for rows.Next() {
		var res models.CourseResource
		var k string
		if err := rows.Scan(&res.ID, &res.CourseID, &res.Title, &k, &res.CreatedAt); err != nil {
			return nil, err
		}
		res.Kind = models.EventKind(k)
		list = append(list, res)
	}
	return list, rows.Err()
}

// RenameResource sets the display title of one of a course's resources.
func (r *Repository) RenameResource(ctx context.Context, courseID uuid.UUID, resourceID, title string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE course_resources SET title = $3 WHERE course_id = $1 AND id = $2`, courseID, resourceID, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResourceNotFound
	}
	return nil
}
