// Package cluster groups near-duplicate stories: word and character
// n-gram TF-IDF over the pre-normalized cluster text, pairwise cosine
// distance, then average-linkage agglomerative clustering cut at a
// distance threshold.
package cluster

import (
	"errors"
	"fmt"

	"github.com/Omeraluf/israeli-media-monitor/internal/record"
)

// ErrTooManyRecords reports a corpus above the configured cost ceiling.
// The full distance matrix is O(n^2) memory, so the ceiling is a hard
// scale limit, not a tunable preference.
var ErrTooManyRecords = errors.New("record count exceeds clustering cap")

type Config struct {
	// Threshold is the cosine distance at or below which two groups still
	// merge. Higher means fewer, larger clusters; lower means more,
	// smaller ones.
	Threshold float64

	WordNgramMin int
	WordNgramMax int
	CharNgramMin int
	CharNgramMax int

	MinDocumentFreq     int
	MaxDocumentFreqFrac float64
	StopWords           []string

	MaxRecords      int
	TruncateOverCap bool
}

func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0,1], got %v", c.Threshold)
	}
	if c.WordNgramMin < 1 || c.WordNgramMax < c.WordNgramMin {
		return fmt.Errorf("invalid word ngram range [%d,%d]", c.WordNgramMin, c.WordNgramMax)
	}
	if c.CharNgramMin < 1 || c.CharNgramMax < c.CharNgramMin {
		return fmt.Errorf("invalid char ngram range [%d,%d]", c.CharNgramMin, c.CharNgramMax)
	}
	if c.MinDocumentFreq < 1 {
		return fmt.Errorf("min document frequency must be >= 1")
	}
	if c.MaxDocumentFreqFrac <= 0 || c.MaxDocumentFreqFrac > 1 {
		return fmt.Errorf("max document frequency fraction must be in (0,1]")
	}
	if c.MaxRecords < 1 {
		return fmt.Errorf("max records must be >= 1")
	}
	return nil
}

type Result struct {
	Clustered  int
	Skipped    int // empty cluster text, cannot be vectorized
	Truncated  int // over the cap, left unassigned
	Clusters   int
	Singletons int
}

// Assign computes cluster ids for every vectorizable record, in place.
// Records with empty cluster text keep a nil cluster id. Given identical
// input order and configuration the assignment is deterministic.
func Assign(records []*record.Record, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("clustering configuration: %w", err)
	}

	var result Result
	eligible := make([]int, 0, len(records))
	for i, rec := range records {
		rec.ClusterID = nil
		if rec.ClusterText() == "" {
			result.Skipped++
			continue
		}
		eligible = append(eligible, i)
	}

	if len(eligible) > cfg.MaxRecords {
		if !cfg.TruncateOverCap {
			return Result{}, fmt.Errorf("%w: %d > %d", ErrTooManyRecords, len(eligible), cfg.MaxRecords)
		}
		result.Truncated = len(eligible) - cfg.MaxRecords
		eligible = eligible[:cfg.MaxRecords]
	}
	if len(eligible) == 0 {
		return result, nil
	}

	texts := make([]string, len(eligible))
	for i, idx := range eligible {
		texts[i] = records[idx].ClusterText()
	}

	vectors := vectorize(texts, cfg)
	distances := distanceMatrix(vectors)
	labels := agglomerate(distances, len(eligible), cfg.Threshold)

	sizes := make(map[int]int)
	for i, idx := range eligible {
		label := labels[i]
		records[idx].ClusterID = &label
		sizes[label]++
	}

	result.Clustered = len(eligible)
	result.Clusters = len(sizes)
	for _, size := range sizes {
		if size == 1 {
			result.Singletons++
		}
	}
	return result, nil
}
