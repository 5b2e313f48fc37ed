package derive

import (
	"testing"

	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/textnorm"
	"github.com/Omeraluf/israeli-media-monitor/internal/urlkey"
)

func newTestDeriver(t *testing.T) *Deriver {
	t.Helper()
	urls, err := urlkey.New(urlkey.Config{
		StripQueryHosts: []string{"c14.co.il"},
		SiteIDPatterns:  map[string]string{"c14": `/article/(\d+)`},
	})
	if err != nil {
		t.Fatalf("build url resolver: %v", err)
	}
	return New(textnorm.New(textnorm.Config{}), urls)
}

func TestApplyDerivesEverything(t *testing.T) {
	t.Parallel()

	d := newTestDeriver(t)
	rec := &record.Record{
		Title:   "צה\"ל תקף 5 מטרות",
		Summary: "פרטים נוספים בהמשך...",
		Source:  "c14",
		URL:     "https://www.c14.co.il/article/55/?utm=x",
	}
	d.Apply(rec)

	if rec.URLCanonical != "https://www.c14.co.il/article/55" {
		t.Fatalf("unexpected canonical URL: %q", rec.URLCanonical)
	}
	if rec.URLID == nil || *rec.URLID != "55" {
		t.Fatalf("unexpected site id: %v", rec.URLID)
	}
	if rec.IdentityKey != "c14:55" {
		t.Fatalf("unexpected identity key: %q", rec.IdentityKey)
	}
	if rec.TitleDisplay == "" || rec.TitleCluster == "" {
		t.Fatalf("title derivations missing: %+v", rec)
	}
	if rec.SummaryDisplay == "" || rec.SummaryCluster == "" {
		t.Fatalf("summary derivations missing: %+v", rec)
	}
}

func TestApplyWithoutURL(t *testing.T) {
	t.Parallel()

	d := newTestDeriver(t)
	rec := &record.Record{Title: "כותרת ללא קישור", Source: "walla"}
	d.Apply(rec)

	if rec.URLCanonical != "" {
		t.Fatalf("unexpected canonical URL: %q", rec.URLCanonical)
	}
	if rec.URLID != nil {
		t.Fatalf("unexpected site id: %v", *rec.URLID)
	}
	if rec.IdentityKey != "" {
		t.Fatalf("URL-less record must not get an identity key: %q", rec.IdentityKey)
	}
}

func TestApplyClearsStaleDerivations(t *testing.T) {
	t.Parallel()

	d := newTestDeriver(t)
	stale := "99"
	rec := &record.Record{
		Title:          "כותרת מעודכנת",
		Source:         "walla",
		URLID:          &stale,
		IdentityKey:    "walla:stale",
		SummaryCluster: "שריד ישן",
	}
	d.Apply(rec)

	if rec.URLID != nil {
		t.Fatalf("stale site id survived: %v", *rec.URLID)
	}
	if rec.IdentityKey != "" {
		t.Fatalf("stale identity key survived: %q", rec.IdentityKey)
	}
	if rec.SummaryCluster != "" {
		t.Fatalf("stale summary cluster survived: %q", rec.SummaryCluster)
	}
}
