// Package timelabel recognizes the short "posted at" fragments Israeli
// news sites render instead of real timestamps ("10:22", "לפני 3 שעות",
// "אתמול 21:00", "5 minutes ago") and resolves them against a reference
// instant.
package timelabel

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Locale string

const (
	LocaleHebrew  Locale = "he"
	LocaleEnglish Locale = "en"
)

type Unit int

const (
	UnitMinute Unit = iota
	UnitHour
	UnitDay
)

// unitWord maps one surface form to a unit. Idiomatic dual forms carry an
// implicit count ("שעתיים" is two hours without any digit).
type unitWord struct {
	word          string
	unit          Unit
	implicitCount int
}

type localeTable struct {
	yesterday []string
	agoTokens []string
	units     []unitWord
}

var locales = map[Locale]localeTable{
	LocaleHebrew: {
		yesterday: []string{"אתמול"},
		agoTokens: []string{"לפני"},
		units: []unitWord{
			{word: "שעתיים", unit: UnitHour, implicitCount: 2},
			{word: "יומיים", unit: UnitDay, implicitCount: 2},
			{word: "כשעה", unit: UnitHour, implicitCount: 1},
			{word: "דקות", unit: UnitMinute, implicitCount: 1},
			{word: "דקה", unit: UnitMinute, implicitCount: 1},
			{word: "שעות", unit: UnitHour, implicitCount: 1},
			{word: "שעה", unit: UnitHour, implicitCount: 1},
			{word: "ימים", unit: UnitDay, implicitCount: 1},
			{word: "יום", unit: UnitDay, implicitCount: 1},
		},
	},
	LocaleEnglish: {
		yesterday: []string{"yesterday"},
		agoTokens: []string{"ago"},
		units: []unitWord{
			{word: "minutes", unit: UnitMinute, implicitCount: 1},
			{word: "minute", unit: UnitMinute, implicitCount: 1},
			{word: "mins", unit: UnitMinute, implicitCount: 1},
			{word: "min", unit: UnitMinute, implicitCount: 1},
			{word: "hours", unit: UnitHour, implicitCount: 1},
			{word: "hour", unit: UnitHour, implicitCount: 1},
			{word: "hrs", unit: UnitHour, implicitCount: 1},
			{word: "hr", unit: UnitHour, implicitCount: 1},
			{word: "days", unit: UnitDay, implicitCount: 1},
			{word: "day", unit: UnitDay, implicitCount: 1},
		},
	},
}

var (
	clockRe      = regexp.MustCompile(`^\d{1,2}[:.]\d{2}$`)
	clockAnyRe   = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.]([0-5]\d)\b`)
	shortLabelRe = regexp.MustCompile(`^[\s\d:.\-/]+$`)
	firstIntRe   = regexp.MustCompile(`\d+`)
)

// GuessLocale is crude but effective: any Hebrew-range character means
// Hebrew, otherwise English.
func GuessLocale(s string) Locale {
	for _, r := range s {
		if r >= 0x0590 && r <= 0x05FF {
			return LocaleHebrew
		}
	}
	return LocaleEnglish
}

// IsTimeLabel reports whether text looks like a posted-time label rather
// than article content. Total over any string; first matching rule wins.
func IsTimeLabel(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}

	if clockRe.MatchString(s) {
		return true
	}
	if utf8.RuneCountInString(s) <= 10 && shortLabelRe.MatchString(s) {
		return true
	}

	table := locales[GuessLocale(s)]
	lower := strings.ToLower(s)
	for _, word := range table.yesterday {
		if strings.Contains(lower, word) {
			return true
		}
	}

	hasNum := firstIntRe.MatchString(s)
	hasUnit := false
	for _, uw := range table.units {
		if strings.Contains(lower, uw.word) {
			hasUnit = true
			break
		}
	}
	agoHit := false
	for _, tok := range table.agoTokens {
		if strings.Contains(lower, tok) {
			agoHit = true
			break
		}
	}

	if agoHit && (hasNum || hasUnit) {
		return true
	}
	return hasNum && hasUnit
}
