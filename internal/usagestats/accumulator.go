// Package usagestats folds course interaction events into per-resource and
// per-video usage statistics.
package usagestats

import (
	"time"

	"github.com/aura-webinar/coursestats/internal/models"
)

// ViewStat accumulates watch time for one (resource, session) or one
// (resource, user) pair.
type ViewStat struct {
	TotalViewTime float64
	MaxEndTime    float64
}

func (s *ViewStat) add(duration, endTime *float64) {
	if duration != nil {
		s.TotalViewTime += *duration
	}
	if endTime != nil && *endTime > s.MaxEndTime {
		s.MaxEndTime = *endTime
	}
}

// ResourceStat is the running aggregate for one resource (or, in the
// per-user bucket, for everything one user touched).
type ResourceStat struct {
	ResourceID    string
	EventCount    int
	TotalViewTime float64
	Sessions      map[string]*ViewStat
	Users         map[string]*ViewStat
	// MaxDuration is the first non-nil video length observed; nil while unknown.
	MaxDuration  *float64
	LastViewTime time.Time
}

func newResourceStat(id string) *ResourceStat {
	return &ResourceStat{
		ResourceID: id,
		Sessions:   make(map[string]*ViewStat),
		Users:      make(map[string]*ViewStat),
	}
}

// SessionCount returns the number of distinct sessions folded.
func (r *ResourceStat) SessionCount() int {
	return len(r.Sessions)
}

func (r *ResourceStat) fold(h models.EventHeader, maxDuration, endTime *float64) {
	r.EventCount++
	if h.Duration != nil {
		r.TotalViewTime += *h.Duration
	}

	sess, ok := r.Sessions[h.SessionID]
	if !ok {
		sess = &ViewStat{}
		r.Sessions[h.SessionID] = sess
	}
	sess.add(h.Duration, endTime)

	user, ok := r.Users[h.User.Username]
	if !ok {
		user = &ViewStat{}
		r.Users[h.User.Username] = user
	}
	user.add(h.Duration, endTime)

	if r.MaxDuration == nil && maxDuration != nil {
		v := *maxDuration
		r.MaxDuration = &v
	}
	if h.Timestamp.After(r.LastViewTime) {
		r.LastViewTime = h.Timestamp
	}
}

// Accumulator buckets events by resource and by user. It is owned by a
// single build and is not safe for concurrent use.
type Accumulator struct {
	resources map[string]*ResourceStat
	users     map[string]*ResourceStat
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		resources: make(map[string]*ResourceStat),
		users:     make(map[string]*ResourceStat),
	}
}

// Accumulate folds one event. The event must carry a non-nil user.
func (a *Accumulator) Accumulate(ev models.Event) {
	h := ev.Header()
	var maxDuration, endTime *float64
	if v, ok := ev.(models.VideoWatch); ok {
		maxDuration, endTime = v.MaxDuration, v.VideoEndTime
	} else if v, ok := ev.(*models.VideoWatch); ok {
		maxDuration, endTime = v.MaxDuration, v.VideoEndTime
	}

	res, ok := a.resources[h.ResourceID]
	if !ok {
		res = newResourceStat(h.ResourceID)
		a.resources[h.ResourceID] = res
	}
	res.fold(h, maxDuration, endTime)

	user, ok := a.users[h.User.Username]
	if !ok {
		user = newResourceStat("")
		a.users[h.User.Username] = user
	}
	user.fold(h, maxDuration, endTime)
}

// Resource returns the aggregate for a resource id.
func (a *Accumulator) Resource(id string) (*ResourceStat, bool) {
	r, ok := a.resources[id]
	return r, ok
}

// Resources returns every resource aggregate keyed by resource id.
func (a *Accumulator) Resources() map[string]*ResourceStat {
	return a.resources
}

// User returns the cross-resource aggregate for a username.
func (a *Accumulator) User(username string) (*ResourceStat, bool) {
	u, ok := a.users[username]
	return u, ok
}

// UserCount returns the number of distinct users folded.
func (a *Accumulator) UserCount() int {
	return len(a.users)
}

// Usernames returns the distinct usernames folded, in no particular order.
func (a *Accumulator) Usernames() []string {
	out := make([]string, 0, len(a.users))
	for name := range a.users {
		out = append(out, name)
	}
	return out
}
