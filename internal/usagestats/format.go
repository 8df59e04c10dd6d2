package usagestats

import (
	"fmt"
	"math"
)

// FormatMMSS renders seconds as "m:ss", truncating any fractional part.
func FormatMMSS(seconds float64) string {
	s := int64(seconds)
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// averageMMSS divides total by n and formats the result; n <= 0 yields "0:00".
func averageMMSS(total float64, n int) string {
	if n <= 0 {
		return FormatMMSS(0)
	}
	return FormatMMSS(total / float64(n))
}

// truncatedPercent renders part/whole as an integer percentage, truncating.
func truncatedPercent(part, whole int) string {
	if whole <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", part*100/whole)
}

// roundedPercent returns part/whole*100 rounded half-to-even.
func roundedPercent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(part) / float64(whole) * 100))
}
