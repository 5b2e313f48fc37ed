package config

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules carries every tunable list and threshold the pipeline consumes.
// It is loaded once at startup and passed explicitly through the entry
// points; no package keeps ambient copies.
type Rules struct {
	// Fixed civil UTC offset (minutes) used when resolving relative time
	// labels. Deliberately not system-local and with no DST logic, so runs
	// are reproducible.
	TimezoneOffsetMinutes int `yaml:"timezone_offset_minutes"`

	SectionLabels []string `yaml:"section_labels"`

	Boilerplate BoilerplateRules `yaml:"boilerplate"`
	URLs        URLRules         `yaml:"urls"`
	Text        TextRules        `yaml:"text"`
	Clustering  ClusteringRules  `yaml:"clustering"`
}

type BoilerplateRules struct {
	MinCount int     `yaml:"min_count"`
	MinRatio float64 `yaml:"min_ratio"`
}

type URLRules struct {
	// Hosts known to append non-identifying tracking parameters; query and
	// fragment are dropped for these, preserved for everyone else.
	StripQueryHosts []string `yaml:"strip_query_hosts"`
	// Per-source regex with one capture group extracting the article id.
	SiteIDPatterns map[string]string `yaml:"site_id_patterns"`
	// Host substring -> source tag, for records whose source field is blank
	// or inconsistent with the URL.
	HostSources map[string]string `yaml:"host_sources"`
}

type TextRules struct {
	CTAPrefixes  []string `yaml:"cta_prefixes"`
	SiteSuffixes []string `yaml:"site_suffixes"`
}

type NgramRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type ClusteringRules struct {
	Threshold           float64    `yaml:"threshold"`
	WordNgram           NgramRange `yaml:"word_ngram"`
	CharNgram           NgramRange `yaml:"char_ngram"`
	MinDocumentFreq     int        `yaml:"min_document_frequency"`
	MaxDocumentFreqFrac float64    `yaml:"max_document_frequency_fraction"`
	MaxRecords          int        `yaml:"max_records"`
	TruncateOverCap     bool       `yaml:"truncate_over_cap"`
	StopWords           []string   `yaml:"stop_words"`
}

// LoadRules reads the rules file at path, or the embedded defaults when
// path is empty. Invalid rules fail the whole run before any per-record
// work happens.
func LoadRules(path string) (*Rules, error) {
	raw := defaultRulesYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		raw = data
	}

	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules YAML: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules validation failed: %w", err)
	}
	return &rules, nil
}

func (r *Rules) Validate() error {
	if r.TimezoneOffsetMinutes < -14*60 || r.TimezoneOffsetMinutes > 14*60 {
		return fmt.Errorf("timezone_offset_minutes %d is out of range", r.TimezoneOffsetMinutes)
	}
	if r.Boilerplate.MinCount < 1 {
		return fmt.Errorf("boilerplate.min_count must be >= 1")
	}
	if r.Boilerplate.MinRatio <= 0 || r.Boilerplate.MinRatio > 1 {
		return fmt.Errorf("boilerplate.min_ratio must be in (0,1]")
	}
	for source, pattern := range r.URLs.SiteIDPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("site_id_patterns[%s]: %w", source, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("site_id_patterns[%s]: pattern needs one capture group", source)
		}
	}
	return r.Clustering.Validate()
}

func (c *ClusteringRules) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("clustering.threshold must be in (0,1], got %v", c.Threshold)
	}
	if err := c.WordNgram.validate("word_ngram"); err != nil {
		return err
	}
	if err := c.CharNgram.validate("char_ngram"); err != nil {
		return err
	}
	if c.MinDocumentFreq < 1 {
		return fmt.Errorf("clustering.min_document_frequency must be >= 1")
	}
	if c.MaxDocumentFreqFrac <= 0 || c.MaxDocumentFreqFrac > 1 {
		return fmt.Errorf("clustering.max_document_frequency_fraction must be in (0,1]")
	}
	if c.MaxRecords < 1 {
		return fmt.Errorf("clustering.max_records must be >= 1")
	}
	return nil
}

func (n NgramRange) validate(name string) error {
	if n.Min < 1 {
		return fmt.Errorf("clustering.%s.min must be >= 1", name)
	}
	if n.Max < n.Min {
		return fmt.Errorf("clustering.%s.max (%d) cannot be below min (%d)", name, n.Max, n.Min)
	}
	return nil
}
