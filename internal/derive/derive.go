// Package derive recomputes every derived Record field from the raw ones.
// Both the normalization stage and the hygiene engine go through it, so
// downstream stages never see stale derived data.
package derive

import (
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/textnorm"
	"github.com/Omeraluf/israeli-media-monitor/internal/urlkey"
)

type Deriver struct {
	norm *textnorm.Normalizer
	urls *urlkey.Resolver
}

func New(norm *textnorm.Normalizer, urls *urlkey.Resolver) *Deriver {
	return &Deriver{norm: norm, urls: urls}
}

// Apply rebuilds canonical URL, site id, identity key and the normalized
// text fields in place.
func (d *Deriver) Apply(rec *record.Record) {
	rec.URLCanonical = d.urls.Canonicalize(rec.URL)

	rec.URLID = nil
	if id, ok := d.urls.ExtractSiteID(rec.URLCanonical, rec.Source); ok {
		rec.URLID = &id
	}
	siteID := ""
	if rec.URLID != nil {
		siteID = *rec.URLID
	}
	// A record with no URL at all gets no identity key; hygiene must not
	// treat two URL-less records as the same article.
	rec.IdentityKey = ""
	if rec.URLCanonical != "" || siteID != "" {
		rec.IdentityKey = d.urls.IdentityKey(rec.Source, rec.URLCanonical, siteID)
	}

	rec.TitleDisplay = textnorm.Display(rec.Title)
	rec.TitleCluster = d.norm.Cluster(rec.Title)
	rec.SummaryDisplay = textnorm.Display(rec.Summary)
	rec.SummaryCluster = d.norm.Cluster(rec.Summary)
}
