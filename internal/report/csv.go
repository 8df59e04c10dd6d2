package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aura-webinar/coursestats/internal/usagestats"
)

// WriteResourcesCSV writes one CSV row per resource record, with a header.
// Unlike the text table it carries the resource id and raw total seconds.
func WriteResourcesCSV(w io.Writer, recs []usagestats.ResourceInfo) error {
	cw := csv.NewWriter(w)
	header := append([]string{"resource_id"}, resourceHeaders...)
	header = append(header, "Total Seconds")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		row := append([]string{r.ResourceID}, resourceCells(r)...)
		row = append(row, seconds(r.TotalViewTime))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.ResourceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVideosCSV writes one CSV row per video record, with a header.
func WriteVideosCSV(w io.Writer, recs []usagestats.VideoInfo) error {
	cw := csv.NewWriter(w)
	header := append([]string{"resource_id"}, Videos(nil).Headers...)
	header = append(header, "Total Seconds")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, v := range recs {
		row := append([]string{v.ResourceID}, videoCells(v)...)
		row = append(row, seconds(v.TotalViewTime))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", v.ResourceID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
