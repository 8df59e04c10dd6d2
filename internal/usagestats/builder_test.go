package usagestats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aura-webinar/coursestats/internal/models"
)

func excludeInstructors(u *models.User) bool {
	return u.Role == models.RoleInstructor
}

func enrolled(names ...string) *fakeScopes {
	entries := make([]ScopeEntry, len(names))
	for i, n := range names {
		entries[i] = ScopeEntry{Username: n}
	}
	return &fakeScopes{scopes: BuildScopes(entries, nil)}
}

func TestStatsSingleEvent(t *testing.T) {
	names := usernames("u", 10)
	src := &fakeSource{events: []models.Event{view(student(names[0]), "r1", "1", 20, 0)}}
	b := NewResourceBuilder(testCourse, Config{
		Source: src,
		Scopes: enrolled(names...),
		Titles: fakeTitles{"r1": "Syllabus"},
	})

	recs, err := b.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.SessionCount != 1 || r.EventCount != 1 {
		t.Fatalf("expected 1 session and 1 event, got %d / %d", r.SessionCount, r.EventCount)
	}
	if r.WatchTimes.AverageTotal != "0:02" {
		t.Fatalf("expected average total 0:02, got %q", r.WatchTimes.AverageTotal)
	}
	if r.WatchTimes.AverageSession != "0:20" {
		t.Fatalf("expected average session 0:20, got %q", r.WatchTimes.AverageSession)
	}
	if r.Title != "Syllabus" || r.ResourceID != "r1" {
		t.Fatalf("unexpected record identity: %+v", r)
	}
}

func TestStatsExcludesInstructor(t *testing.T) {
	prof := &models.User{Username: "prof", Role: models.RoleInstructor}
	src := &fakeSource{events: []models.Event{
		view(student("u1"), "r1", "s1", 10, 0),
		view(student("u1"), "r1", "s1", 10, 1),
		view(student("u2"), "r1", "s2", 10, 2),
		view(student("u3"), "r1", "s3", 20, 3),
		view(student("u4"), "r1", "s4", 30, 4),
		view(student("u5"), "r1", "s5", 40, 5),
		view(prof, "r1", "s6", 40, 6),
	}}
	b := NewResourceBuilder(testCourse, Config{Source: src, Exclude: excludeInstructors})

	recs, err := b.Stats(context.Background(), "all")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.SessionCount != 5 {
		t.Fatalf("expected 5 sessions, got %d", r.SessionCount)
	}
	if r.EventCount != 6 {
		t.Fatalf("expected 6 events, got %d", r.EventCount)
	}
	if r.TotalViewTime != 120 {
		t.Fatalf("expected 120s total, got %v", r.TotalViewTime)
	}
	// No scope resolver: averages are over the 5 distinct users seen.
	if r.WatchTimes.AverageTotal != "0:24" {
		t.Fatalf("expected 0:24 average per user, got %q", r.WatchTimes.AverageTotal)
	}
	if ok, _ := b.HasStats(context.Background(), "", "prof"); ok {
		t.Fatalf("excluded instructor must not have stats")
	}
}

func TestStatsDropsUntitledResources(t *testing.T) {
	u := student("u1")
	var events []models.Event
	for i := 0; i < 5; i++ {
		events = append(events, view(u, "orphan", "s1", 1, i))
	}
	events = append(events, view(u, "r1", "s1", 1, 0), view(u, "r2", "s2", 1, 0))
	b := NewResourceBuilder(testCourse, Config{
		Source: &fakeSource{events: events},
		Titles: fakeTitles{"r1": "Beta", "r2": "Alpha"},
	})

	recs, err := b.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected the untitled resource to be dropped, got %d records", len(recs))
	}
	if recs[0].Title != "Alpha" || recs[1].Title != "Beta" {
		t.Fatalf("expected records sorted by title, got %q, %q", recs[0].Title, recs[1].Title)
	}
}

func TestStatsSkipsEventsWithoutUser(t *testing.T) {
	orphan := view(nil, "r1", "s0", 100, 0)
	src := &fakeSource{events: []models.Event{orphan, view(student("u1"), "r1", "s1", 5, 1)}}
	b := NewResourceBuilder(testCourse, Config{Source: src})
	recs, err := b.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if recs[0].EventCount != 1 || recs[0].TotalViewTime != 5 {
		t.Fatalf("expected anonymous event to be skipped, got %+v", recs[0])
	}
}

func TestStatsFiltersByScope(t *testing.T) {
	scopes := &fakeScopes{scopes: BuildScopes([]ScopeEntry{
		{Username: "open1"},
		{Username: "open2"},
		{Username: "paid1", ForCredit: true},
	}, nil)}
	src := &fakeSource{events: []models.Event{
		view(student("open1"), "r1", "s1", 10, 0),
		view(student("Paid1"), "r1", "s2", 30, 0),
		view(student("stranger"), "r1", "s3", 99, 0),
	}}
	b := NewResourceBuilder(testCourse, Config{Source: src, Scopes: scopes})
	ctx := context.Background()

	public, err := b.Stats(ctx, "public")
	if err != nil {
		t.Fatalf("public stats: %v", err)
	}
	if public[0].TotalViewTime != 10 || public[0].WatchTimes.AverageTotal != "0:05" {
		t.Fatalf("unexpected public record: %+v", public[0])
	}

	credit, err := b.Stats(ctx, "forcredit")
	if err != nil {
		t.Fatalf("credit stats: %v", err)
	}
	if credit[0].TotalViewTime != 30 {
		t.Fatalf("expected for-credit user only, got %+v", credit[0])
	}

	all, err := b.Stats(ctx, "")
	if err != nil {
		t.Fatalf("all stats: %v", err)
	}
	if all[0].TotalViewTime != 40 || all[0].SessionCount != 2 {
		t.Fatalf("expected enrolled users only, got %+v", all[0])
	}
	if all[0].WatchTimes.AverageTotal != "0:13" {
		t.Fatalf("expected 40s over 3 enrolled users, got %q", all[0].WatchTimes.AverageTotal)
	}
	if scopes.calls != 1 {
		t.Fatalf("expected scopes resolved once, got %d", scopes.calls)
	}
}

func TestStatsCachedPerScope(t *testing.T) {
	src := &fakeSource{events: []models.Event{view(student("u1"), "r1", "s1", 10, 0)}}
	b := NewResourceBuilder(testCourse, Config{Source: src, Scopes: enrolled("u1")})
	ctx := context.Background()

	first, err := b.Stats(ctx, "public")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, err := b.Stats(ctx, "open"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, err := b.TopStats(ctx, 0, "Public"); err != nil {
		t.Fatalf("top stats: %v", err)
	}
	if len(src.queries) != 1 {
		t.Fatalf("expected one fetch for the public scope, got %d", len(src.queries))
	}

	src.events = append(src.events, view(student("u1"), "r1", "s2", 10, 1))
	again, err := b.Stats(ctx, "public")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if again[0].SessionCount != first[0].SessionCount {
		t.Fatalf("cached result changed after new events arrived")
	}

	if _, err := b.Stats(ctx, ""); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(src.queries) != 2 {
		t.Fatalf("expected a second fetch for AllUsers, got %d", len(src.queries))
	}
}

func TestTopStats(t *testing.T) {
	u := student("u1")
	titles := fakeTitles{}
	var events []models.Event
	// Resource i gets sessions[i] distinct sessions.
	sessions := []int{1, 4, 2, 4, 7, 3, 1, 5}
	for i, n := range sessions {
		id := fmt.Sprintf("r%d", i)
		titles[id] = fmt.Sprintf("Title %d", i)
		for s := 0; s < n; s++ {
			events = append(events, view(u, id, fmt.Sprintf("%s-s%d", id, s), 1, s))
		}
	}
	b := NewResourceBuilder(testCourse, Config{Source: &fakeSource{events: events}, Titles: titles})
	ctx := context.Background()

	top, err := b.TopStats(ctx, 0, "")
	if err != nil {
		t.Fatalf("top stats: %v", err)
	}
	if len(top) != DefaultTopN {
		t.Fatalf("expected %d records, got %d", DefaultTopN, len(top))
	}
	want := []string{"r4", "r7", "r1", "r3", "r5", "r2"}
	for i, id := range want {
		if top[i].ResourceID != id {
			t.Fatalf("position %d: got %s, want %s", i, top[i].ResourceID, id)
		}
	}

	top2, err := b.TopStats(ctx, 2, "")
	if err != nil {
		t.Fatalf("top stats: %v", err)
	}
	if len(top2) != 2 || top2[0].ResourceID != "r4" {
		t.Fatalf("unexpected top 2: %+v", top2)
	}

	all, _ := b.Stats(ctx, "")
	if all[0].ResourceID != "r0" {
		t.Fatalf("TopStats must not reorder the cached title-sorted list")
	}

	many, err := b.TopStats(ctx, 50, "")
	if err != nil {
		t.Fatalf("top stats: %v", err)
	}
	if len(many) != len(sessions) {
		t.Fatalf("expected all %d records, got %d", len(sessions), len(many))
	}
}

func TestStatsForUser(t *testing.T) {
	prof := &models.User{Username: "prof", Role: models.RoleInstructor}
	src := &fakeSource{events: []models.Event{
		view(prof, "r1", "s1", 30, 0),
		view(student("u1"), "r1", "s2", 10, 0),
	}}
	b := NewResourceBuilder(testCourse, Config{
		Source:  src,
		Scopes:  enrolled("u1"),
		Exclude: excludeInstructors,
	})
	ctx := context.Background()

	recs, err := b.StatsForUser(ctx, prof)
	if err != nil {
		t.Fatalf("stats for user: %v", err)
	}
	if len(recs) != 1 || recs[0].TotalViewTime != 30 {
		t.Fatalf("expected the instructor's own event, got %+v", recs)
	}
	if recs[0].WatchTimes.AverageTotal != "0:30" {
		t.Fatalf("expected per-user average over one user, got %q", recs[0].WatchTimes.AverageTotal)
	}
	if src.queries[0].Username != "prof" {
		t.Fatalf("expected a user-restricted fetch, got %+v", src.queries[0])
	}

	if _, err := b.StatsForUser(ctx, prof); err != nil {
		t.Fatalf("stats for user: %v", err)
	}
	if len(src.queries) != 2 {
		t.Fatalf("per-user stats must not be cached, got %d fetches", len(src.queries))
	}

	none, err := b.StatsForUser(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result for nil user, got %v, %v", none, err)
	}
}

func TestHasStats(t *testing.T) {
	src := &fakeSource{events: []models.Event{view(student("Alice"), "r1", "s1", 10, 0)}}
	b := NewResourceBuilder(testCourse, Config{Source: src})
	ctx := context.Background()

	for _, name := range []string{"Alice", "alice"} {
		ok, err := b.HasStats(ctx, "", name)
		if err != nil {
			t.Fatalf("has stats: %v", err)
		}
		if !ok {
			t.Fatalf("expected %s to have stats", name)
		}
	}
	if ok, _ := b.HasStats(ctx, "", "bob"); ok {
		t.Fatalf("bob never contributed an event")
	}
}

func TestStatsEmptySource(t *testing.T) {
	b := NewVideoBuilder(testCourse, Config{Source: &fakeSource{}, Scopes: enrolled()})
	recs, err := b.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
	top, err := b.TopStats(context.Background(), 3, "")
	if err != nil || len(top) != 0 {
		t.Fatalf("expected empty top list, got %v, %v", top, err)
	}
}

func TestStatsMissingScopeAppliesNoFilter(t *testing.T) {
	scopes := &fakeScopes{scopes: Scopes{ScopeAllUsers: NewUserSet("u1")}}
	src := &fakeSource{events: []models.Event{
		view(student("u1"), "r1", "s1", 10, 0),
		view(student("u2"), "r1", "s2", 10, 0),
	}}
	b := NewResourceBuilder(testCourse, Config{Source: src, Scopes: scopes})
	recs, err := b.Stats(context.Background(), "public")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if recs[0].SessionCount != 2 {
		t.Fatalf("expected both users when the scope is not configured, got %+v", recs[0])
	}
}

func TestVideoBuilder(t *testing.T) {
	length := models.Seconds(60)
	src := &fakeSource{events: []models.Event{
		watch(student("u1"), "v1", "s1", 60, 60, length),
		watch(student("u2"), "v1", "s2", 10, 10, length),
	}}
	b := NewVideoBuilder(testCourse, Config{
		Source: src,
		Scopes: enrolled("u1", "u2", "u3", "u4"),
		Titles: fakeTitles{"v1": "Welcome"},
	})
	recs, err := b.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	v := recs[0]
	if v.VideoDuration != "1:00" {
		t.Fatalf("expected 1:00, got %q", v.VideoDuration)
	}
	if v.NumberWatchedCompletely != 1 || v.PercentageWatchedCompletely != "25%" {
		t.Fatalf("expected 1 of 4 complete, got %d / %s", v.NumberWatchedCompletely, v.PercentageWatchedCompletely)
	}
	if v.FalloffRate.Quartiles[0].Count != 1 || v.FalloffRate.Quartiles[3].Count != 1 {
		t.Fatalf("unexpected fall-off: %+v", v.FalloffRate)
	}
	if src.queries[0].Kind != models.KindVideos {
		t.Fatalf("expected a video fetch, got %q", src.queries[0].Kind)
	}
}

func TestStatsPropagatesSourceError(t *testing.T) {
	boom := errors.New("connection reset")
	b := NewResourceBuilder(testCourse, Config{Source: &fakeSource{err: boom}})
	if _, err := b.Stats(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if _, err := b.TopStats(context.Background(), 0, ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}
