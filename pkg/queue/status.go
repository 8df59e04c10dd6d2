package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// State is the lifecycle position of an export job.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Status is the externally visible state of a job, kept in a Redis hash.
type Status struct {
	JobID     string    `json:"job_id"`
	State     State     `json:"state"`
	ObjectKey string    `json:"object_key,omitempty"`
	Rows      int       `json:"rows"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func statusKey(jobID string) string {
	return "export:" + jobID
}

func (s Status) fields() map[string]any {
	return map[string]any{
		"state":      string(s.State),
		"object_key": s.ObjectKey,
		"rows":       s.Rows,
		"error":      s.Error,
		"updated_at": s.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseStatus(jobID string, m map[string]string) (*Status, error) {
	if len(m) == 0 {
		return nil, ErrJobNotFound
	}
	s := &Status{
		JobID:     jobID,
		State:     State(m["state"]),
		ObjectKey: m["object_key"],
		Error:     m["error"],
	}
	if v := m["rows"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse rows %q: %w", v, err)
		}
		s.Rows = n
	}
	if v := m["updated_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at %q: %w", v, err)
		}
		s.UpdatedAt = t
	}
	return s, nil
}

// SetStatus overwrites a job's status and refreshes its expiry.
func (q *Queue) SetStatus(ctx context.Context, s Status) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	key := statusKey(s.JobID)
	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, key, s.fields())
	pipe.Expire(ctx, key, StatusTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set status %s: %w", s.JobID, err)
	}
	return nil
}

// Status returns a job's status, or ErrJobNotFound.
func (q *Queue) Status(ctx context.Context, jobID string) (*Status, error) {
	m, err := q.client.HGetAll(ctx, statusKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", jobID, err)
	}
	return parseStatus(jobID, m)
}
