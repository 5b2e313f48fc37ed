package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Omeraluf/israeli-media-monitor/internal/config"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	rules, err := config.LoadRules("")
	if err != nil {
		t.Fatalf("load default rules: %v", err)
	}
	p, err := New(rules, zerolog.Nop())
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	return p
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	payloads := []json.RawMessage{
		// Section label row, dropped by hygiene.
		json.RawMessage(`{"title":"תרבות","source":"c14","scraped_at":"2025-01-02T10:00:00Z"}`),
		// Real article whose summary slot carries the posted-time label.
		json.RawMessage(`{"title":"כותרת אמיתית לבדיקת הצינור","summary":"לפני שעה","url":"https://www.c14.co.il/article/55?utm_source=x","source":"C14","scraped_at":"2025-01-02T10:00:00Z"}`),
		// Schema violation, dropped at ingest.
		json.RawMessage(`{"title":"חסר מקור"}`),
		// Two near-identical stories from different outlets.
		json.RawMessage(`{"title":"ראש הממשלה נפגש עם נשיא ארצות הברית בוושינגטון","source":"n12","url":"https://www.mako.co.il/news-q1/Article-abc11.htm","scraped_at":"2025-01-02T10:00:00Z"}`),
		json.RawMessage(`{"title":"ראש הממשלה נפגש עם נשיא ארצות הברית בוושינגטון","source":"c14","url":"https://www.c14.co.il/article/77","scraped_at":"2025-01-02T10:05:00Z"}`),
	}

	result, err := p.Run(payloads)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}
	if result.Ingested != 4 {
		t.Fatalf("expected 4 ingested records, got %d", result.Ingested)
	}
	if result.Dropped["schema"] != 1 {
		t.Fatalf("expected 1 schema drop, got %d", result.Dropped["schema"])
	}
	if result.Dropped["hygiene"] != 1 {
		t.Fatalf("expected 1 hygiene drop, got %d", result.Dropped["hygiene"])
	}
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 surviving records, got %d", len(result.Records))
	}

	var article *record.Record
	for _, rec := range result.Records {
		if rec.IdentityKey == "c14:55" {
			article = rec
		}
	}
	if article == nil {
		t.Fatalf("expected a record with identity key c14:55, got %+v", result.Records)
	}

	if article.URLCanonical != "https://www.c14.co.il/article/55" {
		t.Fatalf("unexpected canonical URL: %q", article.URLCanonical)
	}
	if article.URLID == nil || *article.URLID != "55" {
		t.Fatalf("unexpected site id: %v", article.URLID)
	}
	if article.Summary != "" || article.SummaryCluster != "" {
		t.Fatalf("time-label summary should be reclaimed, got %q", article.Summary)
	}
	if article.PublishedLabel != "לפני שעה" {
		t.Fatalf("unexpected published label: %q", article.PublishedLabel)
	}
	if article.PublishedAt == nil {
		t.Fatalf("expected a resolved publication time")
	}
	if want := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC); !article.PublishedAt.Equal(want) {
		t.Fatalf("unexpected publication time: %v", article.PublishedAt)
	}
	if article.Language != "he" {
		t.Fatalf("unexpected language: %q", article.Language)
	}

	// The near-identical pair lands in one cluster, the lone article in
	// another.
	var pair []*record.Record
	for _, rec := range result.Records {
		if rec.IdentityKey != "c14:55" {
			pair = append(pair, rec)
		}
	}
	if len(pair) != 2 {
		t.Fatalf("expected 2 paired records, got %d", len(pair))
	}
	if pair[0].ClusterID == nil || pair[1].ClusterID == nil || article.ClusterID == nil {
		t.Fatalf("expected cluster ids on all surviving records")
	}
	if *pair[0].ClusterID != *pair[1].ClusterID {
		t.Fatalf("identical stories split into clusters %d and %d", *pair[0].ClusterID, *pair[1].ClusterID)
	}
	if *article.ClusterID == *pair[0].ClusterID {
		t.Fatalf("unrelated story merged into cluster %d", *article.ClusterID)
	}
}

func TestRunAbsoluteTimestamp(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	payloads := []json.RawMessage{
		json.RawMessage(`{"title":"ידיעה עם חותמת זמן מלאה","source":"walla","url":"https://walla.co.il/item/1","published":"2025-01-01T08:30:00Z","scraped_at":"2025-01-02T10:00:00Z"}`),
	}

	result, err := p.Run(payloads)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	rec := result.Records[0]
	if rec.PublishedAt == nil {
		t.Fatalf("expected parsed publication time")
	}
	if want := time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC); !rec.PublishedAt.Equal(want) {
		t.Fatalf("unexpected publication time: %v", rec.PublishedAt)
	}
}

func TestRunUnresolvableLabelKeepsRecord(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	payloads := []json.RawMessage{
		json.RawMessage(`{"title":"ידיעה עם תווית זמן שאינה ניתנת לפענוח","source":"walla","url":"https://walla.co.il/item/2","published":"מעודכן לאחרונה","scraped_at":"2025-01-02T10:00:00Z"}`),
	}

	result, err := p.Run(payloads)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("record with an unresolvable label must survive, got %d records", len(result.Records))
	}
	rec := result.Records[0]
	if rec.PublishedAt != nil {
		t.Fatalf("expected absent publication time, got %v", rec.PublishedAt)
	}
	if rec.PublishedLabel != "מעודכן לאחרונה" {
		t.Fatalf("label should be preserved: %q", rec.PublishedLabel)
	}
}

func TestClusterThresholdOverride(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t)

	records := []*record.Record{
		{TitleCluster: "אירוע ביטחוני חמור בגבול הצפון הערב"},
		{TitleCluster: "אירוע ביטחוני חמור בגבול הצפון הערב"},
		{TitleCluster: "completely unrelated local sports story"},
	}

	// Even at a strict threshold exact duplicates still merge.
	result, err := p.Cluster(records, 0.5)
	if err != nil {
		t.Fatalf("cluster failed: %v", err)
	}
	if result.Clusters != 2 {
		t.Fatalf("expected the duplicate pair plus one singleton, got %d clusters", result.Clusters)
	}
	if records[0].ClusterID == nil || records[1].ClusterID == nil {
		t.Fatalf("expected cluster ids on the duplicate pair")
	}
	if *records[0].ClusterID != *records[1].ClusterID {
		t.Fatalf("identical texts split at threshold override")
	}
}
