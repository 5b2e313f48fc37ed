package pipeline

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// parseAbsolute handles sources that publish a real timestamp string
// (RSS pubDate and friends) instead of a relative label.
func parseAbsolute(label string) (time.Time, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
