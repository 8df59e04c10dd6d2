package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aura-webinar/coursestats/internal/analytics"
	"github.com/aura-webinar/coursestats/internal/models"
	"github.com/aura-webinar/coursestats/internal/report"
	"github.com/aura-webinar/coursestats/internal/usagestats"
)

type statsOptions struct {
	course string
	scope  string
	top    int
	user   string
	since  string
	until  string
	format string
}

func newStatsCmd(root *rootOptions, kind models.EventKind) *cobra.Command {
	opts := &statsOptions{}
	short := "Show per-resource usage"
	if kind == models.KindVideos {
		short = "Show per-video usage, completion and fall-off"
	}
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), root, opts, kind, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.course, "course", "", "course id (required)")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "enrollment scope: all, public or forcredit")
	cmd.Flags().IntVar(&opts.top, "top", 0, "only the N records with the most sessions")
	cmd.Flags().StringVar(&opts.user, "user", "", "report one user's own activity")
	cmd.Flags().StringVar(&opts.since, "since", "", "start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&opts.until, "until", "", "end date, exclusive (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table or csv")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func runStats(ctx context.Context, root *rootOptions, opts *statsOptions, kind models.EventKind, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	courseID, err := uuid.Parse(opts.course)
	if err != nil {
		return fmt.Errorf("invalid --course value: %w", err)
	}
	format := strings.ToLower(opts.format)
	if format != "table" && format != "csv" {
		return fmt.Errorf("invalid --format value %q", opts.format)
	}
	if opts.top < 0 {
		return fmt.Errorf("--top must not be negative")
	}
	var w analytics.Window
	if w.Since, err = parseDate("--since", opts.since); err != nil {
		return err
	}
	if w.Until, err = parseDate("--until", opts.until); err != nil {
		return err
	}

	be, err := root.open(ctx, root.logger)
	if err != nil {
		return err
	}
	defer be.close()

	var user *models.User
	if opts.user != "" {
		user, err = be.users.GetByUsername(ctx, opts.user)
		if err != nil || user == nil {
			return fmt.Errorf("user %q not found", opts.user)
		}
	}

	b, err := be.svc.Builders(ctx, courseID, w)
	if err != nil {
		return fmt.Errorf("failed to prepare stats: %w", err)
	}

	switch kind {
	case models.KindVideos:
		recs, err := collect[usagestats.VideoInfo](ctx, b.Videos, opts, user)
		if err != nil {
			return err
		}
		if format == "csv" {
			return report.WriteVideosCSV(out, recs)
		}
		return writeTable(out, report.Videos(recs))
	default:
		recs, err := collect[usagestats.ResourceInfo](ctx, b.Resources, opts, user)
		if err != nil {
			return err
		}
		if format == "csv" {
			return report.WriteResourcesCSV(out, recs)
		}
		return writeTable(out, report.Resources(recs))
	}
}

type statsBuilder[R any] interface {
	Stats(ctx context.Context, scope string) ([]R, error)
	TopStats(ctx context.Context, n int, scope string) ([]R, error)
	StatsForUser(ctx context.Context, user *models.User) ([]R, error)
}

// collect runs the build the flags ask for. A user report ignores --scope and --top.
func collect[R any](ctx context.Context, b statsBuilder[R], opts *statsOptions, user *models.User) ([]R, error) {
	var (
		recs []R
		err  error
	)
	switch {
	case user != nil:
		recs, err = b.StatsForUser(ctx, user)
	case opts.top > 0:
		recs, err = b.TopStats(ctx, opts.top, opts.scope)
	default:
		recs, err = b.Stats(ctx, opts.scope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build stats: %w", err)
	}
	return recs, nil
}

func writeTable(out io.Writer, t report.Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(out, "no usage recorded")
		return err
	}
	if _, err := fmt.Fprint(out, t.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func parseDate(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", flag, err)
	}
	return &t, nil
}
