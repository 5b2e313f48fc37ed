// Package pipeline wires the stages together: ingest, timestamp
// resolution, identity derivation, normalization, hygiene and clustering.
// One run is a synchronous batch over an in-memory record set.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Omeraluf/israeli-media-monitor/internal/cluster"
	"github.com/Omeraluf/israeli-media-monitor/internal/config"
	"github.com/Omeraluf/israeli-media-monitor/internal/derive"
	"github.com/Omeraluf/israeli-media-monitor/internal/hygiene"
	"github.com/Omeraluf/israeli-media-monitor/internal/langdetect"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/textnorm"
	"github.com/Omeraluf/israeli-media-monitor/internal/timelabel"
	"github.com/Omeraluf/israeli-media-monitor/internal/urlkey"
)

type Pipeline struct {
	logger     zerolog.Logger
	resolver   *timelabel.Resolver
	deriver    *derive.Deriver
	hygiene    *hygiene.Engine
	clusterCfg cluster.Config
}

type RunResult struct {
	RunID      string
	Records    []*record.Record
	Ingested   int
	Dropped    map[string]int
	Clustering cluster.Result
}

// New validates the rules and builds a pipeline. Configuration errors fail
// here, before any per-record work.
func New(rules *config.Rules, logger zerolog.Logger) (*Pipeline, error) {
	if rules == nil {
		return nil, fmt.Errorf("pipeline rules are required")
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline rules: %w", err)
	}

	urls, err := urlkey.New(urlkey.Config{
		StripQueryHosts: rules.URLs.StripQueryHosts,
		SiteIDPatterns:  rules.URLs.SiteIDPatterns,
		HostSources:     rules.URLs.HostSources,
	})
	if err != nil {
		return nil, fmt.Errorf("url resolver: %w", err)
	}

	normalizer := textnorm.New(textnorm.Config{
		CTAPrefixes:  rules.Text.CTAPrefixes,
		SiteSuffixes: rules.Text.SiteSuffixes,
	})
	deriver := derive.New(normalizer, urls)

	return &Pipeline{
		logger:   logger,
		resolver: timelabel.NewResolver(rules.TimezoneOffsetMinutes),
		deriver:  deriver,
		hygiene: hygiene.NewEngine(hygiene.Config{
			SectionLabels:       rules.SectionLabels,
			BoilerplateMinCount: rules.Boilerplate.MinCount,
			BoilerplateMinRatio: rules.Boilerplate.MinRatio,
		}, deriver),
		clusterCfg: cluster.Config{
			Threshold:           rules.Clustering.Threshold,
			WordNgramMin:        rules.Clustering.WordNgram.Min,
			WordNgramMax:        rules.Clustering.WordNgram.Max,
			CharNgramMin:        rules.Clustering.CharNgram.Min,
			CharNgramMax:        rules.Clustering.CharNgram.Max,
			MinDocumentFreq:     rules.Clustering.MinDocumentFreq,
			MaxDocumentFreqFrac: rules.Clustering.MaxDocumentFreqFrac,
			StopWords:           rules.Clustering.StopWords,
			MaxRecords:          rules.Clustering.MaxRecords,
			TruncateOverCap:     rules.Clustering.TruncateOverCap,
		},
	}, nil
}

// Run executes the full batch: raw payloads in, enriched and clustered
// records out. Individual bad records are dropped and counted, never
// fatal; configuration and scale violations fail the whole run.
func (p *Pipeline) Run(payloads []json.RawMessage) (*RunResult, error) {
	result := &RunResult{
		RunID:   uuid.NewString(),
		Dropped: make(map[string]int),
	}

	records := make([]*record.Record, 0, len(payloads))
	for i, payload := range payloads {
		rec, err := record.FromRaw(payload)
		if err != nil {
			reason := record.DropReason(err)
			result.Dropped[reason]++
			p.logger.Debug().
				Err(err).
				Int("index", i).
				Str("reason", reason).
				Msg("dropped raw record at ingest")
			continue
		}
		records = append(records, rec)
	}
	result.Ingested = len(records)

	for _, rec := range records {
		p.enrich(rec)
	}

	before := len(records)
	records = p.hygiene.Apply(records)
	if dropped := before - len(records); dropped > 0 {
		result.Dropped["hygiene"] += dropped
	}

	clustering, err := cluster.Assign(records, p.clusterCfg)
	if err != nil {
		return nil, fmt.Errorf("cluster records: %w", err)
	}

	result.Records = records
	result.Clustering = clustering
	p.logger.Info().
		Str("run_id", result.RunID).
		Int("ingested", result.Ingested).
		Int("kept", len(records)).
		Int("clusters", clustering.Clusters).
		Int("singletons", clustering.Singletons).
		Int("truncated", clustering.Truncated).
		Msg("pipeline run complete")
	return result, nil
}

// Cluster reruns only the clustering stage over already-processed records,
// with an optional threshold override.
func (p *Pipeline) Cluster(records []*record.Record, threshold float64) (cluster.Result, error) {
	cfg := p.clusterCfg
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	return cluster.Assign(records, cfg)
}

// enrich fills timestamps, language and derived identity/text fields on
// one record.
func (p *Pipeline) enrich(rec *record.Record) {
	// Some sources render the posted-time label where the summary should
	// be. Reclaim it as a publication label rather than clustering on it.
	if rec.PublishedLabel == "" && timelabel.IsTimeLabel(rec.Summary) {
		rec.PublishedLabel = strings.TrimSpace(rec.Summary)
		rec.Summary = ""
	}

	rec.PublishedAt = nil
	if label := rec.PublishedLabel; label != "" {
		if timelabel.IsTimeLabel(label) {
			locale := timelabel.GuessLocale(label)
			if resolved, ok := p.resolver.Resolve(label, rec.ScrapedAt, locale); ok {
				rec.PublishedAt = &resolved
			}
		} else if parsed, ok := parseAbsolute(label); ok {
			rec.PublishedAt = &parsed
		}
		// Neither shape matched: published_at stays absent, the record
		// stays in the pipeline.
	}

	rec.Language = langdetect.DetectISO6391(rec.Title + " " + rec.Summary)
	p.deriver.Apply(rec)
}
