package report

import (
	"strconv"
	"time"

	"github.com/aura-webinar/coursestats/internal/usagestats"
)

const timeLayout = "2006-01-02 15:04"

var resourceHeaders = []string{"Title", "Sessions", "Events", "Avg/User", "Avg/Session", "Last Viewed"}

// Resources lays resource records out as a table.
func Resources(recs []usagestats.ResourceInfo) Table {
	t := Table{
		Headers:    resourceHeaders,
		RightAlign: map[int]bool{1: true, 2: true, 3: true, 4: true},
	}
	for _, r := range recs {
		t.Rows = append(t.Rows, resourceCells(r))
	}
	return t
}

func resourceCells(r usagestats.ResourceInfo) []string {
	return []string{
		r.Title,
		strconv.Itoa(r.SessionCount),
		strconv.Itoa(r.EventCount),
		r.WatchTimes.AverageTotal,
		r.WatchTimes.AverageSession,
		formatTime(r.LastViewTime),
	}
}

// Videos lays video records out as a table, one column per fall-off quartile.
func Videos(recs []usagestats.VideoInfo) Table {
	headers := append([]string{}, resourceHeaders...)
	headers = append(headers, "Length", "Completed", "Completed %")
	headers = append(headers, usagestats.QuartileLabels()...)

	right := make(map[int]bool)
	for i := 1; i < len(headers); i++ {
		if i != len(resourceHeaders)-1 {
			right[i] = true
		}
	}
	t := Table{Headers: headers, RightAlign: right}
	for _, v := range recs {
		t.Rows = append(t.Rows, videoCells(v))
	}
	return t
}

func videoCells(v usagestats.VideoInfo) []string {
	length := v.VideoDuration
	if length == "" {
		length = "-"
	}
	row := resourceCells(v.ResourceInfo)
	row = append(row, length, strconv.Itoa(v.NumberWatchedCompletely), v.PercentageWatchedCompletely)
	return append(row, v.FalloffRate.Cells()...)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
