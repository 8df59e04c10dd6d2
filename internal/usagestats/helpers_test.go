package usagestats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/coursestats/internal/models"
)

var (
	testCourse = uuid.MustParse("6f1c2b9e-0c3a-4d8e-9a57-3b2f1e0d4c5a")
	baseTime   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func student(name string) *models.User {
	return &models.User{Username: name, Role: models.RoleStudent}
}

func view(u *models.User, resource, session string, dur float64, minute int) models.ResourceView {
	return models.ResourceView{EventHeader: models.EventHeader{
		User:       u,
		ResourceID: resource,
		SessionID:  session,
		Duration:   models.Seconds(dur),
		Timestamp:  baseTime.Add(time.Duration(minute) * time.Minute),
	}}
}

func watch(u *models.User, resource, session string, dur, end float64, maxDuration *float64) models.VideoWatch {
	return models.VideoWatch{
		EventHeader: models.EventHeader{
			User:       u,
			ResourceID: resource,
			SessionID:  session,
			Duration:   models.Seconds(dur),
			Timestamp:  baseTime,
		},
		WatchType:    models.WatchTypeWatch,
		MaxDuration:  maxDuration,
		VideoEndTime: models.Seconds(end),
	}
}

type fakeSource struct {
	events  []models.Event
	queries []Query
	err     error
}

func (f *fakeSource) FetchEvents(_ context.Context, q Query) ([]models.Event, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if q.Username == "" {
		return f.events, nil
	}
	var out []models.Event
	for _, ev := range f.events {
		if u := ev.Header().User; u != nil && u.Username == q.Username {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeScopes struct {
	scopes Scopes
	calls  int
}

func (f *fakeScopes) ResolveScopes(context.Context, uuid.UUID) (Scopes, error) {
	f.calls++
	return f.scopes, nil
}

type fakeTitles map[string]string

func (f fakeTitles) ResolveTitle(_ context.Context, id string) (string, bool, error) {
	t, ok := f[id]
	return t, ok, nil
}

func usernames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i))
	}
	return out
}
