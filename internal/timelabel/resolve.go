package timelabel

import (
	"strconv"
	"strings"
	"time"
)

// Resolver converts recognized time labels into absolute timestamps in a
// fixed civil timezone. The offset never shifts for DST; reproducible runs
// matter more here than absolute wall-clock accuracy.
type Resolver struct {
	loc *time.Location
}

func NewResolver(offsetMinutes int) *Resolver {
	return &Resolver{loc: time.FixedZone("fixed", offsetMinutes*60)}
}

// Resolve parses a time label against ref. The boolean is false when no
// rule matches; that is an expected outcome, not an error, and callers keep
// processing.
func (r *Resolver) Resolve(text string, ref time.Time, locale Locale) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	ref = ref.In(r.loc)

	// Bare clock: today's date relative to ref, seconds zeroed.
	if m := clockRe.FindString(s); m == s {
		hour, minute, ok := splitClock(s)
		if !ok {
			return time.Time{}, false
		}
		return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, r.loc), true
	}

	table, ok := locales[locale]
	if !ok {
		table = locales[LocaleEnglish]
	}
	lower := strings.ToLower(s)

	// "yesterday", optionally with a clock fragment.
	for _, word := range table.yesterday {
		if !strings.Contains(lower, word) {
			continue
		}
		yesterday := ref.AddDate(0, 0, -1)
		if frag := clockAnyRe.FindString(s); frag != "" {
			if hour, minute, ok := splitClock(frag); ok {
				return time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), hour, minute, 0, 0, r.loc), true
			}
		}
		return yesterday.Truncate(time.Second), true
	}

	// "<prefix> [N] <unit>". Longest unit forms are listed first so duals
	// win over their substrings.
	for _, uw := range table.units {
		if !strings.Contains(lower, uw.word) {
			continue
		}
		n := uw.implicitCount
		if digits := firstIntRe.FindString(s); digits != "" {
			parsed, err := strconv.Atoi(digits)
			if err == nil && parsed > 0 {
				n = parsed
			}
		}
		var delta time.Duration
		switch uw.unit {
		case UnitMinute:
			delta = time.Duration(n) * time.Minute
		case UnitHour:
			delta = time.Duration(n) * time.Hour
		case UnitDay:
			delta = time.Duration(n) * 24 * time.Hour
		}
		return ref.Add(-delta).Truncate(time.Second), true
	}

	return time.Time{}, false
}

func splitClock(s string) (hour, minute int, ok bool) {
	sep := strings.IndexAny(s, ":.")
	if sep < 0 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(s[:sep])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(s[sep+1:])
	if err != nil || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
