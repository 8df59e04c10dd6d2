package usagestats

import (
	"encoding/json"
	"fmt"
)

// CompletionThreshold is the fraction of a video's length a user must both
// watch in total and reach with the playhead to count as having finished it.
const CompletionThreshold = 0.9

// Quartile is one fall-off bucket.
type Quartile struct {
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// FalloffRate buckets sessions by how far into the video they got:
// [0,25%], (25%,50%], (50%,75%], (75%,100%]. When the video length is unknown
// the zero value (EmptyFalloff) is used, which is distinct from four empty
// buckets.
type FalloffRate struct {
	Known     bool
	Quartiles [4]Quartile
}

// EmptyFalloff marks a video whose length never arrived with its events.
var EmptyFalloff = FalloffRate{}

var quartileLabels = [4]string{"0-25%", "25-50%", "50-75%", "75-100%"}

// QuartileLabels returns the bucket names in order.
func QuartileLabels() []string {
	return quartileLabels[:]
}

// Total returns the number of sessions across all buckets.
func (f FalloffRate) Total() int {
	n := 0
	for _, q := range f.Quartiles {
		n += q.Count
	}
	return n
}

// Cells renders each bucket as "count (pct%)", or "-" when unknown.
func (f FalloffRate) Cells() []string {
	out := make([]string, len(f.Quartiles))
	for i, q := range f.Quartiles {
		if !f.Known {
			out[i] = "-"
			continue
		}
		out[i] = fmt.Sprintf("%d (%d%%)", q.Count, q.Percentage)
	}
	return out
}

type falloffJSON struct {
	Known     bool        `json:"known"`
	Quartiles []*Quartile `json:"quartiles"`
}

// MarshalJSON encodes unknown fall-off with null buckets rather than zeros.
func (f FalloffRate) MarshalJSON() ([]byte, error) {
	out := falloffJSON{Known: f.Known, Quartiles: make([]*Quartile, len(f.Quartiles))}
	if f.Known {
		for i := range f.Quartiles {
			q := f.Quartiles[i]
			out.Quartiles[i] = &q
		}
	}
	return json.Marshal(out)
}

// NewFalloffRate buckets every session of stat by its furthest playhead
// position relative to the video length.
func NewFalloffRate(stat *ResourceStat) FalloffRate {
	if stat.MaxDuration == nil || *stat.MaxDuration <= 0 {
		return EmptyFalloff
	}
	length := *stat.MaxDuration
	f := FalloffRate{Known: true}
	for _, sess := range stat.Sessions {
		switch end := sess.MaxEndTime; {
		case end <= length*0.25:
			f.Quartiles[0].Count++
		case end <= length*0.5:
			f.Quartiles[1].Count++
		case end <= length*0.75:
			f.Quartiles[2].Count++
		default:
			f.Quartiles[3].Count++
		}
	}
	total := stat.SessionCount()
	for i := range f.Quartiles {
		f.Quartiles[i].Percentage = roundedPercent(f.Quartiles[i].Count, total)
	}
	return f
}

// WatchedCompletely counts users whose total watch time and furthest
// playhead position both reach CompletionThreshold of the video length.
// Re-watching the opening repeatedly does not count.
func WatchedCompletely(stat *ResourceStat) int {
	if stat.MaxDuration == nil {
		return 0
	}
	threshold := *stat.MaxDuration * CompletionThreshold
	n := 0
	for _, u := range stat.Users {
		if u.TotalViewTime >= threshold && u.MaxEndTime >= threshold {
			n++
		}
	}
	return n
}

// VideoInfo is the display record for one video.
type VideoInfo struct {
	ResourceInfo
	// VideoDuration is the formatted video length, empty when unknown.
	VideoDuration               string      `json:"video_duration"`
	PercentageWatchedCompletely string      `json:"percentage_watched_completely"`
	NumberWatchedCompletely     int         `json:"number_watched_completely"`
	FalloffRate                 FalloffRate `json:"falloff_rate"`
}

func newVideoInfo(stat *ResourceStat, title string, userCount int) VideoInfo {
	info := VideoInfo{
		ResourceInfo: newResourceInfo(stat, title, userCount),
		FalloffRate:  NewFalloffRate(stat),
	}
	if stat.MaxDuration != nil {
		info.VideoDuration = FormatMMSS(*stat.MaxDuration)
	}
	info.NumberWatchedCompletely = WatchedCompletely(stat)
	info.PercentageWatchedCompletely = truncatedPercent(info.NumberWatchedCompletely, userCount)
	return info
}
