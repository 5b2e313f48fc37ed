package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/Omeraluf/israeli-media-monitor/internal/globaltime"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
)

// RunMeta is written next to the records so a snapshot is self-describing.
type RunMeta struct {
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Ingested   int            `json:"ingested"`
	Kept       int            `json:"kept"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	Threshold  float64        `json:"threshold"`
	Clusters   int            `json:"clusters"`
	Singletons int            `json:"singletons"`
	Truncated  int            `json:"truncated,omitempty"`
}

type clusterGroup struct {
	ClusterID int              `json:"cluster_id"`
	Size      int              `json:"size"`
	Items     []*record.Record `json:"items"`
}

// Save writes one timestamped snapshot directory under outDir:
// articles.json, articles.csv, clusters.jsonl and run.json. Returns the
// snapshot directory path.
func Save(outDir string, records []*record.Record, meta RunMeta) (string, error) {
	stamp := globaltime.Now().Format("2006-01-02_15-04-05")
	dir := filepath.Join(outDir, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "articles.json"), records); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(dir, "articles.csv"), records); err != nil {
		return "", err
	}
	if err := writeClusters(filepath.Join(dir, "clusters.jsonl"), records); err != nil {
		return "", err
	}
	meta.CreatedAt = globaltime.UTC()
	if err := writeJSON(filepath.Join(dir, "run.json"), meta); err != nil {
		return "", err
	}
	return dir, nil
}

// LoadRecords reads the articles.json of an existing snapshot directory.
func LoadRecords(dir string) ([]*record.Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, "articles.json"))
	if err != nil {
		return nil, fmt.Errorf("read snapshot records: %w", err)
	}
	var records []*record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot records: %w", err)
	}
	return records, nil
}

// LoadMeta reads the run.json of an existing snapshot directory.
func LoadMeta(dir string) (*RunMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	if err != nil {
		return nil, fmt.Errorf("read snapshot meta: %w", err)
	}
	var meta RunMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse snapshot meta: %w", err)
	}
	return &meta, nil
}

// LatestDir returns the newest snapshot directory under outDir.
func LatestDir(outDir string) (string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read snapshot root: %w", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no snapshots under %s", outDir)
	}
	sort.Strings(dirs)
	return filepath.Join(outDir, dirs[len(dirs)-1]), nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeCSV(path string, records []*record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"cluster_id", "identity_key", "source", "published_at", "title", "summary", "url"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		clusterID := ""
		if rec.ClusterID != nil {
			clusterID = strconv.Itoa(*rec.ClusterID)
		}
		publishedAt := ""
		if rec.PublishedAt != nil {
			publishedAt = rec.PublishedAt.Format(time.RFC3339)
		}
		row := []string{clusterID, rec.IdentityKey, rec.Source, publishedAt, rec.TitleDisplay, rec.SummaryDisplay, rec.URLCanonical}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func writeClusters(path string, records []*record.Record) error {
	groups := make(map[int]*clusterGroup)
	for _, rec := range records {
		if rec.ClusterID == nil {
			continue
		}
		id := *rec.ClusterID
		group := groups[id]
		if group == nil {
			group = &clusterGroup{ClusterID: id}
			groups[id] = group
		}
		group.Items = append(group.Items, rec)
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create clusters file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, id := range ids {
		group := groups[id]
		group.Size = len(group.Items)
		if err := encoder.Encode(group); err != nil {
			return fmt.Errorf("encode cluster %d: %w", id, err)
		}
	}
	return nil
}
