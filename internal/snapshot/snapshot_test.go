package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Omeraluf/israeli-media-monitor/internal/globaltime"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 1, 2, 12, 30, 45, 0, time.UTC))
	defer globaltime.ResetTime()

	outDir := t.TempDir()
	clusterID := 0
	published := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	records := []*record.Record{
		{
			Title:        "כותרת ראשונה",
			TitleDisplay: "כותרת ראשונה",
			Source:       "c14",
			URL:          "https://www.c14.co.il/article/55",
			IdentityKey:  "c14:55",
			PublishedAt:  &published,
			ScrapedAt:    time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
			ClusterID:    &clusterID,
		},
		{
			Title:        "כותרת שנייה",
			TitleDisplay: "כותרת שנייה",
			Source:       "n12",
			IdentityKey:  "n12:abc",
			ScrapedAt:    time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
			ClusterID:    &clusterID,
		},
	}

	dir, err := Save(outDir, records, RunMeta{RunID: "run-1", Ingested: 2, Kept: 2, Threshold: 0.85, Clusters: 1})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(dir) != "2025-01-02_12-30-45" {
		t.Fatalf("unexpected snapshot dir name: %q", dir)
	}

	for _, name := range []string{"articles.json", "articles.csv", "clusters.jsonl", "run.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing snapshot file %s: %v", name, err)
		}
	}

	loaded, err := LoadRecords(dir)
	if err != nil {
		t.Fatalf("load records failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].IdentityKey != "c14:55" {
		t.Fatalf("unexpected first record: %+v", loaded[0])
	}
	if loaded[0].ClusterID == nil || *loaded[0].ClusterID != 0 {
		t.Fatalf("cluster id lost in round trip: %+v", loaded[0])
	}
	if loaded[0].PublishedAt == nil || !loaded[0].PublishedAt.Equal(published) {
		t.Fatalf("publication time lost in round trip: %+v", loaded[0])
	}

	meta, err := LoadMeta(dir)
	if err != nil {
		t.Fatalf("load meta failed: %v", err)
	}
	if meta.RunID != "run-1" || meta.Clusters != 1 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be stamped")
	}
}

func TestLatestDir(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	for _, name := range []string{"2025-01-01_10-00-00", "2025-01-02_09-00-00", "2025-01-02_11-00-00"} {
		if err := os.Mkdir(filepath.Join(outDir, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	latest, err := LatestDir(outDir)
	if err != nil {
		t.Fatalf("latest dir failed: %v", err)
	}
	if filepath.Base(latest) != "2025-01-02_11-00-00" {
		t.Fatalf("unexpected latest dir: %q", latest)
	}
}

func TestLatestDirEmpty(t *testing.T) {
	t.Parallel()

	if _, err := LatestDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty snapshot root")
	}
}

func TestLoadRaw(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	arr := `[{"title":"a","source":"s","scraped_at":"2025-01-02T10:00:00Z"},{"title":"b","source":"s","scraped_at":"2025-01-02T10:00:00Z"}]`
	if err := os.WriteFile(filepath.Join(dir, "batch.json"), []byte(arr), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	lines := strings.Join([]string{
		`{"title":"c","source":"s","scraped_at":"2025-01-02T10:00:00Z"}`,
		"",
		`{"title":"d","source":"s","scraped_at":"2025-01-02T10:00:00Z"}`,
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "stream.jsonl"), []byte(lines), 0o644); err != nil {
		t.Fatalf("write stream: %v", err)
	}

	payloads, err := LoadRaw(dir)
	if err != nil {
		t.Fatalf("load raw failed: %v", err)
	}
	if len(payloads) != 4 {
		t.Fatalf("expected 4 payloads, got %d", len(payloads))
	}
	for i, payload := range payloads {
		var probe map[string]any
		if err := json.Unmarshal(payload, &probe); err != nil {
			t.Fatalf("payload %d is not valid JSON: %v", i, err)
		}
	}
}

func TestLoadRawEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadRaw(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory without raw files")
	}
}
