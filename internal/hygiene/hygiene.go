// Package hygiene cleans a full record set: section-label rows dropped,
// per-source boilerplate summaries blanked, duplicate articles removed,
// derived fields rebuilt. It is the one core stage with record-set-wide
// scope, because boilerplate detection needs cross-record statistics.
package hygiene

import (
	"strings"

	"github.com/Omeraluf/israeli-media-monitor/internal/derive"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
)

type Config struct {
	SectionLabels       []string
	BoilerplateMinCount int
	BoilerplateMinRatio float64
}

type Engine struct {
	sectionLabels map[string]struct{}
	minCount      int
	minRatio      float64
	deriver       *derive.Deriver
}

func NewEngine(cfg Config, deriver *derive.Deriver) *Engine {
	labels := make(map[string]struct{}, len(cfg.SectionLabels))
	for _, label := range cfg.SectionLabels {
		label = strings.TrimSpace(label)
		if label != "" {
			labels[label] = struct{}{}
		}
	}
	minCount := cfg.BoilerplateMinCount
	if minCount < 1 {
		minCount = 5
	}
	minRatio := cfg.BoilerplateMinRatio
	if minRatio <= 0 || minRatio > 1 {
		minRatio = 0.5
	}
	return &Engine{
		sectionLabels: labels,
		minCount:      minCount,
		minRatio:      minRatio,
		deriver:       deriver,
	}
}

// Apply runs the hygiene pipeline over the whole record set and returns a
// new collection; the input is never mutated. Applying it twice yields the
// same result as applying it once.
func (e *Engine) Apply(records []*record.Record) []*record.Record {
	out := make([]*record.Record, 0, len(records))
	for _, rec := range records {
		clone := rec.Clone()
		e.deriver.Apply(clone)
		out = append(out, clone)
	}

	out = e.dropSectionRows(out)
	e.blankBoilerplate(out)
	out = dropDuplicates(out)

	// Blanking and dedup may have changed inputs of derived fields.
	for _, rec := range out {
		e.deriver.Apply(rec)
	}
	return out
}

func (e *Engine) dropSectionRows(records []*record.Record) []*record.Record {
	kept := records[:0]
	for _, rec := range records {
		title := strings.TrimSpace(rec.TitleDisplay)
		if title == "" {
			continue
		}
		if _, isLabel := e.sectionLabels[title]; isLabel {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// blankBoilerplate blanks (not drops) summaries that recur so often within
// one source that they are template noise: count >= minCount AND share of
// that source's non-empty summaries >= minRatio.
func (e *Engine) blankBoilerplate(records []*record.Record) {
	type sourceStats struct {
		total  int
		counts map[string]int
	}
	stats := make(map[string]*sourceStats)
	for _, rec := range records {
		summary := strings.TrimSpace(rec.SummaryDisplay)
		if summary == "" {
			continue
		}
		st := stats[rec.Source]
		if st == nil {
			st = &sourceStats{counts: make(map[string]int)}
			stats[rec.Source] = st
		}
		st.total++
		st.counts[summary]++
	}

	for _, rec := range records {
		summary := strings.TrimSpace(rec.SummaryDisplay)
		if summary == "" {
			continue
		}
		st := stats[rec.Source]
		count := st.counts[summary]
		if count >= e.minCount && float64(count)/float64(st.total) >= e.minRatio {
			rec.Summary = ""
			rec.SummaryDisplay = ""
			rec.SummaryCluster = ""
		}
	}
}

// dropDuplicates keeps the first occurrence per identity key and per exact
// URL, preserving the original relative order. Records without a URL are
// never considered duplicates of each other.
func dropDuplicates(records []*record.Record) []*record.Record {
	seenKey := make(map[string]struct{}, len(records))
	seenURL := make(map[string]struct{}, len(records))
	kept := records[:0]
	for _, rec := range records {
		if rec.IdentityKey != "" {
			if _, dup := seenKey[rec.IdentityKey]; dup {
				continue
			}
		}
		url := rec.URLCanonical
		if url == "" {
			url = strings.TrimSpace(rec.URL)
		}
		if url != "" {
			if _, dup := seenURL[url]; dup {
				continue
			}
		}
		if rec.IdentityKey != "" {
			seenKey[rec.IdentityKey] = struct{}{}
		}
		if url != "" {
			seenURL[url] = struct{}{}
		}
		kept = append(kept, rec)
	}
	return kept
}
