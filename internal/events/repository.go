package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/usagestats"
)

// Repository reads and records interaction events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const (
	resourceColumns = `e.resource_id, e.session_id, e.duration, e.created_at, u.id, u.username, u.full_name, u.role`
	videoColumns    = resourceColumns + `, e.watch_type, e.max_duration, e.video_end_time`
)

// FetchEvents returns every event of q.Kind for the course. Events whose user
// no longer exists come back with a nil User.
func (r *Repository) FetchEvents(ctx context.Context, q usagestats.Query) ([]models.Event, error) {
	var table, columns string
	switch q.Kind {
	case models.KindResources:
		table, columns = "resource_view_events", resourceColumns
	case models.KindVideos:
		table, columns = "video_events", videoColumns
	default:
		return nil, fmt.Errorf("%w: %q", usagestats.ErrUnknownKind, q.Kind)
	}

	where, args := filter(q)
	sql := `SELECT ` + columns + ` FROM ` + table + ` e LEFT JOIN users u ON u.id = e.user_id WHERE ` + where
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows, q.Kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}

// filter renders the WHERE clause for q. Placeholders are numbered in the
// order args are appended.
func filter(q usagestats.Query) (string, []any) {
	conds := []string{"e.course_id = $1"}
	args := []any{q.CourseID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.Username != "" {
		add("LOWER(u.username) = LOWER($%d)", q.Username)
	}
	if q.Since != nil {
		add("e.created_at >= $%d", *q.Since)
	}
	if q.Until != nil {
		add("e.created_at < $%d", *q.Until)
	}
	return strings.Join(conds, " AND "), args
}

func scanEvent(rows pgx.Rows, kind models.EventKind) (models.Event, error) {
	var (
		h        models.EventHeader
		userID   *uuid.UUID
		username *string
		fullName *string
		role     *string
	)
	dest := []any{&h.ResourceID, &h.SessionID, &h.Duration, &h.Timestamp, &userID, &username, &fullName, &role}

	var (
		watchType   string
		maxDuration *float64
		endTime     *float64
	)
	if kind == models.KindVideos {
		dest = append(dest, &watchType, &maxDuration, &endTime)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	if userID != nil && username != nil {
		u := &models.User{ID: *userID, Username: *username}
		if fullName != nil {
			u.FullName = *fullName
		}
		if role != nil {
			u.Role = models.Role(*role)
		}
		h.User = u
	}

	if kind == models.KindVideos {
		return models.VideoWatch{
			EventHeader:  h,
			WatchType:    models.WatchType(watchType),
			MaxDuration:  maxDuration,
			VideoEndTime: endTime,
		}, nil
	}
	return models.ResourceView{EventHeader: h}, nil
}

// InsertResourceView records a resource view for ev.User.
func (r *Repository) InsertResourceView(ctx context.Context, courseID uuid.UUID, ev *models.ResourceView) error {
	const q = `INSERT INTO resource_view_events (course_id, user_id, resource_id, session_id, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q, courseID, ev.User.ID, ev.ResourceID, ev.SessionID, ev.Duration, timestampOrNow(ev.Timestamp))
	return err
}

// InsertVideoWatch records a video watch segment for ev.User.
func (r *Repository) InsertVideoWatch(ctx context.Context, courseID uuid.UUID, ev *models.VideoWatch) error {
	const q = `INSERT INTO video_events (course_id, user_id, resource_id, session_id, watch_type, duration, max_duration, video_end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, courseID, ev.User.ID, ev.ResourceID, ev.SessionID, string(ev.WatchType),
		ev.Duration, ev.MaxDuration, ev.VideoEndTime, timestampOrNow(ev.Timestamp))
	return err
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
