package usagestats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/coursestats/internal/metrics"
	"github.com/aura-webinar/coursestats/internal/models"
)

// DefaultTopN is the number of records TopStats returns when n <= 0.
const DefaultTopN = 6

// ErrUnknownKind is returned for an event kind other than resources or videos.
var ErrUnknownKind = errors.New("unknown event kind")

// Query selects the events a build reads.
type Query struct {
	CourseID uuid.UUID
	Kind     models.EventKind
	// Username restricts the fetch to one user's events when non-empty.
	Username string
	Since    *time.Time
	Until    *time.Time
}

// EventSource returns every event matching q, in any order.
type EventSource interface {
	FetchEvents(ctx context.Context, q Query) ([]models.Event, error)
}

// ScopeResolver returns the enrollment scopes of a course with staff already removed.
type ScopeResolver interface {
	ResolveScopes(ctx context.Context, courseID uuid.UUID) (Scopes, error)
}

// TitleResolver looks up a display title. ok is false for deleted or orphaned content.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, resourceID string) (title string, ok bool, err error)
}

// ExcludeFunc reports whether a user's events must be left out of course-wide stats.
type ExcludeFunc func(u *models.User) bool

// Config wires a Builder to its collaborators. Source is required. A nil
// Scopes disables scope filtering, a nil Titles uses resource ids as titles,
// and a nil Exclude keeps everyone.
type Config struct {
	Source  EventSource
	Scopes  ScopeResolver
	Titles  TitleResolver
	Exclude ExcludeFunc
	Logger  *zap.Logger
}

type record interface {
	sortTitle() string
	sessions() int
}

type buildResult[R record] struct {
	records []R
	users   map[string]struct{}
}

// Builder computes usage records for one course. A Builder belongs to one
// logical request: results are cached per canonical scope name for its
// lifetime and never invalidated. It is not safe for concurrent use.
type Builder[R record] struct {
	kind      models.EventKind
	courseID  uuid.UUID
	cfg       Config
	logger    *zap.Logger
	since     *time.Time
	until     *time.Time
	transform func(stat *ResourceStat, title string, userCount int) R

	scopes       Scopes
	scopesLoaded bool
	cache        map[string]*buildResult[R]
}

// NewResourceBuilder returns a builder over resource view events.
func NewResourceBuilder(courseID uuid.UUID, cfg Config) *Builder[ResourceInfo] {
	return newBuilder(models.KindResources, courseID, cfg, newResourceInfo)
}

// NewVideoBuilder returns a builder over video watch events.
func NewVideoBuilder(courseID uuid.UUID, cfg Config) *Builder[VideoInfo] {
	return newBuilder(models.KindVideos, courseID, cfg, newVideoInfo)
}

func newBuilder[R record](kind models.EventKind, courseID uuid.UUID, cfg Config, transform func(*ResourceStat, string, int) R) *Builder[R] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder[R]{
		kind:      kind,
		courseID:  courseID,
		cfg:       cfg,
		logger:    logger.With(zap.String("kind", string(kind)), zap.String("course_id", courseID.String())),
		transform: transform,
		cache:     make(map[string]*buildResult[R]),
	}
}

// WithWindow limits the builder to events between since and until; either may be nil.
// It must be called before the first build.
func (b *Builder[R]) WithWindow(since, until *time.Time) *Builder[R] {
	b.since, b.until = since, until
	return b
}

// Stats returns one record per titled resource, sorted by title, for the
// users in scope. Repeated calls for the same canonical scope reuse the
// first result.
func (b *Builder[R]) Stats(ctx context.Context, scope string) ([]R, error) {
	res, err := b.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// TopStats returns at most n records with the highest session counts.
// Ties keep title order. n <= 0 means DefaultTopN.
func (b *Builder[R]) TopStats(ctx context.Context, n int, scope string) ([]R, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	recs, err := b.Stats(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make([]R, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].sessions() > out[j].sessions()
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// StatsForUser rebuilds stats from one user's own events. Staff exclusion
// does not apply and nothing is cached.
func (b *Builder[R]) StatsForUser(ctx context.Context, user *models.User) ([]R, error) {
	if user == nil {
		return []R{}, nil
	}
	q := b.query()
	q.Username = user.Username
	res, err := b.build(ctx, q, NewUserSet(user.Username), nil)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// HasStats reports whether username contributed any event to the scope's build,
// answered from the per-user buckets of the accumulator.
func (b *Builder[R]) HasStats(ctx context.Context, scope, username string) (bool, error) {
	res, err := b.scoped(ctx, scope)
	if err != nil {
		return false, err
	}
	_, ok := res.users[strings.ToLower(username)]
	return ok, nil
}

func (b *Builder[R]) query() Query {
	return Query{CourseID: b.courseID, Kind: b.kind, Since: b.since, Until: b.until}
}

func (b *Builder[R]) scoped(ctx context.Context, scope string) (*buildResult[R], error) {
	name := ScopeName(scope)
	if res, ok := b.cache[name]; ok {
		metrics.StatsScopeCacheHits.WithLabelValues(string(b.kind)).Inc()
		b.logger.Debug("stats served from scope cache", zap.String("scope", name))
		return res, nil
	}
	included, err := b.includedUsers(ctx, name)
	if err != nil {
		return nil, err
	}
	res, err := b.build(ctx, b.query(), included, b.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	b.cache[name] = res
	return res, nil
}

func (b *Builder[R]) includedUsers(ctx context.Context, name string) (UserSet, error) {
	if b.cfg.Scopes == nil {
		return nil, nil
	}
	if !b.scopesLoaded {
		scopes, err := b.cfg.Scopes.ResolveScopes(ctx, b.courseID)
		if err != nil {
			return nil, fmt.Errorf("resolve scopes: %w", err)
		}
		b.scopes = scopes
		b.scopesLoaded = true
	}
	set, ok := b.scopes[name]
	if !ok {
		return nil, nil
	}
	return set, nil
}

func (b *Builder[R]) build(ctx context.Context, q Query, included UserSet, exclude ExcludeFunc) (*buildResult[R], error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, q.Kind)
	}
	start := time.Now()
	kind := string(q.Kind)

	events, err := b.cfg.Source.FetchEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s events: %w", kind, err)
	}

	acc := NewAccumulator()
	var noUser, excluded, outOfScope int
	for _, ev := range events {
		u := ev.Header().User
		switch {
		case u == nil:
			noUser++
		case exclude != nil && exclude(u):
			excluded++
		case included != nil && !included.Contains(u.Username):
			outOfScope++
		default:
			acc.Accumulate(ev)
		}
	}

	userCount := acc.UserCount()
	if included != nil {
		userCount = len(included)
	}

	ids := make([]string, 0, len(acc.Resources()))
	for id := range acc.Resources() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]R, 0, len(ids))
	untitled := 0
	for _, id := range ids {
		title, ok := id, true
		if b.cfg.Titles != nil {
			title, ok, err = b.cfg.Titles.ResolveTitle(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve title %s: %w", id, err)
			}
		}
		if !ok {
			untitled++
			continue
		}
		stat, _ := acc.Resource(id)
		records = append(records, b.transform(stat, title, userCount))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].sortTitle() < records[j].sortTitle()
	})

	users := make(map[string]struct{}, acc.UserCount())
	for _, name := range acc.Usernames() {
		users[strings.ToLower(name)] = struct{}{}
	}

	folded := len(events) - noUser - excluded - outOfScope
	metrics.StatsEventsFolded.WithLabelValues(kind).Add(float64(folded))
	metrics.StatsEventsSkipped.WithLabelValues(kind, "no_user").Add(float64(noUser))
	metrics.StatsEventsSkipped.WithLabelValues(kind, "excluded").Add(float64(excluded))
	metrics.StatsEventsSkipped.WithLabelValues(kind, "out_of_scope").Add(float64(outOfScope))
	metrics.StatsResourcesDropped.WithLabelValues(kind).Add(float64(untitled))
	metrics.StatsBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	b.logger.Debug("stats built",
		zap.Int("events", len(events)),
		zap.Int("folded", folded),
		zap.Int("skipped_no_user", noUser),
		zap.Int("skipped_excluded", excluded),
		zap.Int("skipped_out_of_scope", outOfScope),
		zap.Int("user_count", userCount),
		zap.Int("records", len(records)),
		zap.Int("untitled", untitled),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &buildResult[R]{records: records, users: users}, nil
}
