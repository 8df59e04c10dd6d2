package models

import "time"

// EventKind selects which event stream a stats build reads.
type EventKind string

const (
	KindResources EventKind = "resources"
	KindVideos    EventKind = "videos"
)

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	return k == KindResources || k == KindVideos
}

// WatchType distinguishes played segments from skipped ones on video events.
type WatchType string

const (
	WatchTypeWatch WatchType = "watch"
	WatchTypeSkip  WatchType = "skip"
)

// Event is either a ResourceView or a VideoWatch.
type Event interface {
	Header() EventHeader
}

// EventHeader holds the fields shared by every interaction event.
// User is nil when the acting user no longer resolves.
type EventHeader struct {
	User       *User
	ResourceID string
	SessionID  string
	Duration   *float64 // seconds
	Timestamp  time.Time
}

// Header returns the shared event fields.
func (h EventHeader) Header() EventHeader { return h }

// ResourceView is a view of a reading or other non-video asset.
type ResourceView struct {
	EventHeader
}

// VideoWatch is a watched (or skipped) video segment.
type VideoWatch struct {
	EventHeader
	WatchType    WatchType
	MaxDuration  *float64 // total video length, seconds
	VideoEndTime *float64 // playhead position when the segment ended, seconds
}

// Seconds is a helper for building optional second values.
func Seconds(v float64) *float64 {
	return &v
}
