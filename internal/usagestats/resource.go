package usagestats

import "time"

// WatchTimes holds the two formatted averages shown next to a resource.
type WatchTimes struct {
	// AverageTotal is total view time divided by the number of users in scope.
	AverageTotal string `json:"average_total"`
	// AverageSession is total view time divided by the session count.
	AverageSession string `json:"average_session"`
}

// ResourceInfo is the display record for one resource.
type ResourceInfo struct {
	Title         string     `json:"title"`
	ResourceID    string     `json:"resource_id"`
	SessionCount  int        `json:"session_count"`
	EventCount    int        `json:"event_count"`
	TotalViewTime float64    `json:"total_view_time"`
	LastViewTime  time.Time  `json:"last_view_time"`
	WatchTimes    WatchTimes `json:"watch_times"`
}

func (r ResourceInfo) sortTitle() string { return r.Title }
func (r ResourceInfo) sessions() int    { return r.SessionCount }

func newResourceInfo(stat *ResourceStat, title string, userCount int) ResourceInfo {
	return ResourceInfo{
		Title:         title,
		ResourceID:    stat.ResourceID,
		SessionCount:  stat.SessionCount(),
		EventCount:    stat.EventCount,
		TotalViewTime: stat.TotalViewTime,
		LastViewTime:  stat.LastViewTime,
		WatchTimes: WatchTimes{
			AverageTotal:   averageMMSS(stat.TotalViewTime, userCount),
			AverageSession: averageMMSS(stat.TotalViewTime, stat.SessionCount()),
		},
	}
}
