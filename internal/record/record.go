// Package record defines the news item shape shared by every pipeline
// stage and owns the ingestion boundary where raw scraper output becomes
// a validated Record.
package record

import "time"

// Record is one news item. Raw fields come from the scrapers; derived
// fields are filled stage by stage (timestamps, identity key, normalized
// text, cluster id). Optional values are pointers so "absent" is never a
// sentinel string.
type Record struct {
	Title        string `json:"title"`
	TitleDisplay string `json:"title_display,omitempty"`
	TitleCluster string `json:"title_cluster,omitempty"`

	Summary        string `json:"summary,omitempty"`
	SummaryDisplay string `json:"summary_display,omitempty"`
	SummaryCluster string `json:"summary_cluster,omitempty"`

	URL          string  `json:"url,omitempty"`
	URLCanonical string  `json:"url_canonical,omitempty"`
	URLID        *string `json:"url_id,omitempty"`

	Source   string `json:"source"`
	Language string `json:"language,omitempty"`

	PublishedLabel string     `json:"published_label,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ScrapedAt      time.Time  `json:"scraped_at"`

	IdentityKey string `json:"identity_key,omitempty"`
	ClusterID   *int   `json:"cluster_id,omitempty"`
}

// ClusterText is the fixed pre-normalized text the similarity model sees.
func (r *Record) ClusterText() string {
	switch {
	case r.TitleCluster == "":
		return r.SummaryCluster
	case r.SummaryCluster == "":
		return r.TitleCluster
	default:
		return r.TitleCluster + " " + r.SummaryCluster
	}
}

// Clone returns a shallow copy with fresh pointer fields, so hygiene can
// rebuild a record set without mutating its input.
func (r *Record) Clone() *Record {
	clone := *r
	if r.URLID != nil {
		v := *r.URLID
		clone.URLID = &v
	}
	if r.PublishedAt != nil {
		v := *r.PublishedAt
		clone.PublishedAt = &v
	}
	if r.ClusterID != nil {
		v := *r.ClusterID
		clone.ClusterID = &v
	}
	return &clone
}
