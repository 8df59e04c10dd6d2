// Package worker renders queued stats exports to CSV and stores them.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-webinar/coursestats/internal/analytics"
	"github.com/aura-webinar/coursestats/internal/metrics"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/report"
	"github.com/aura-webinar/coursestats/pkg/queue"
	"github.com/aura-webinar/coursestats/pkg/storage"
)

// DequeueTimeout bounds each blocking pop so workers notice shutdown.
const DequeueTimeout = 5 * time.Second

// Jobs is the queue side the processor consumes.
type Jobs interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
	SetStatus(ctx context.Context, s queue.Status) error
}

// ReportStore persists rendered reports.
type ReportStore interface {
	UploadReport(ctx context.Context, key string, body io.Reader) error
}

// ExportProcessor processes stats export jobs: build stats, render CSV, upload, record status.
type ExportProcessor struct {
	svc     *analytics.Service
	store   ReportStore
	jobs    Jobs
	backoff time.Duration
	logger  *zap.Logger
}

// NewExportProcessor creates an export processor.
func NewExportProcessor(svc *analytics.Service, store ReportStore, jobs Jobs, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{svc: svc, store: store, jobs: jobs, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one export job and returns the object key it wrote.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) (string, int, error) {
	if job.Type != queue.JobTypeStatsExport {
		return "", 0, fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.ExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", 0, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.jobs.SetStatus(ctx, queue.Status{JobID: job.ID, State: queue.StateRunning}); err != nil {
		p.logger.Warn("set running status failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	var buf bytes.Buffer
	rows, err := p.render(ctx, payload, &buf)
	if err != nil {
		return "", 0, err
	}

	key := storage.ExportKey(payload.CourseID.String(), payload.Kind, job.ID)
	if err := p.store.UploadReport(ctx, key, &buf); err != nil {
		return "", 0, fmt.Errorf("store report: %w", err)
	}
	p.logger.Info("export completed",
		zap.String("job_id", job.ID),
		zap.String("course_id", payload.CourseID.String()),
		zap.String("kind", payload.Kind),
		zap.Int("rows", rows),
		zap.String("key", key),
	)
	return key, rows, nil
}

func (p *ExportProcessor) render(ctx context.Context, payload queue.ExportPayload, w io.Writer) (int, error) {
	if payload.CourseID == uuid.Nil {
		return 0, fmt.Errorf("export payload has no course id")
	}
	b, err := p.svc.Builders(ctx, payload.CourseID, analytics.Window{})
	if err != nil {
		return 0, err
	}
	switch models.EventKind(payload.Kind) {
	case models.KindResources:
		recs, err := b.Resources.Stats(ctx, payload.Scope)
		if err != nil {
			return 0, err
		}
		return len(recs), report.WriteResourcesCSV(w, recs)
	case models.KindVideos:
		recs, err := b.Videos.Stats(ctx, payload.Scope)
		if err != nil {
			return 0, err
		}
		return len(recs), report.WriteVideosCSV(w, recs)
	default:
		return 0, fmt.Errorf("unknown export kind %q", payload.Kind)
	}
}

// Handle processes a job and records its outcome: done, re-queued or failed.
func (p *ExportProcessor) Handle(ctx context.Context, job *queue.Job) {
	key, rows, err := p.Process(ctx, job)
	if err == nil {
		metrics.ExportJobs.WithLabelValues(string(queue.StateDone)).Inc()
		p.setStatus(ctx, queue.Status{JobID: job.ID, State: queue.StateDone, ObjectKey: key, Rows: rows})
		return
	}

	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	dead, reErr := p.jobs.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
		dead = true
	}
	state := queue.StateQueued
	if dead {
		state = queue.StateFailed
		metrics.ExportJobs.WithLabelValues(string(queue.StateFailed)).Inc()
	}
	p.setStatus(ctx, queue.Status{JobID: job.ID, State: state, Error: err.Error()})
}

func (p *ExportProcessor) setStatus(ctx context.Context, s queue.Status) {
	if err := p.jobs.SetStatus(ctx, s); err != nil {
		p.logger.Error("set status failed", zap.String("job_id", s.JobID), zap.String("state", string(s.State)), zap.Error(err))
	}
}

// Run starts n worker loops and blocks until ctx is cancelled.
func (p *ExportProcessor) Run(ctx context.Context, n int) error {
	if n <= 0 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		id := i
		g.Go(func() error {
			p.loop(ctx, id)
			return nil
		})
	}
	return g.Wait()
}

func (p *ExportProcessor) loop(ctx context.Context, id int) {
	logger := p.logger.With(zap.Int("worker", id))
	for {
		if ctx.Err() != nil {
			logger.Info("export worker stopping")
			return
		}
		job, err := p.jobs.Dequeue(ctx, DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		p.Handle(ctx, job)
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.backoff):
	}
}
