package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Omeraluf/israeli-media-monitor/internal/globaltime"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/snapshot"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	globaltime.SetMockTime(time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC))
	t.Cleanup(globaltime.ResetTime)

	root := t.TempDir()
	cluster0, cluster1 := 0, 1
	published := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	records := []*record.Record{
		{Title: "כותרת ראשונה", TitleDisplay: "כותרת ראשונה", Source: "c14", IdentityKey: "c14:55", PublishedAt: &published, ScrapedAt: published, ClusterID: &cluster0},
		{Title: "כותרת ראשונה בניסוח אחר", TitleDisplay: "כותרת ראשונה בניסוח אחר", Source: "n12", IdentityKey: "n12:abc", ScrapedAt: published, ClusterID: &cluster0},
		{Title: "כותרת שנייה", TitleDisplay: "כותרת שנייה", Source: "walla", IdentityKey: "walla:x", ScrapedAt: published, ClusterID: &cluster1},
	}
	if _, err := snapshot.Save(root, records, snapshot.RunMeta{RunID: "run-1", Ingested: 3, Kept: 3, Threshold: 0.85, Clusters: 2}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	return NewServer(zerolog.Nop(), Options{SnapshotRoot: root})
}

func invoke(t *testing.T, handler echo.HandlerFunc, target string, pathParams map[string]string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range pathParams {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var body jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleHealth, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if body.Status != "success" {
		t.Fatalf("unexpected jsend status: %q", body.Status)
	}
}

func TestHandleRun(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleRun, "/api/v1/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", body.Data)
	}
	run, ok := data["run"].(map[string]any)
	if !ok {
		t.Fatalf("missing run meta: %v", data)
	}
	if run["run_id"] != "run-1" {
		t.Fatalf("unexpected run id: %v", run["run_id"])
	}
}

func TestHandleClusters(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleClusters, "/api/v1/clusters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := body.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["size"].(float64) != 2 {
		t.Fatalf("unexpected first cluster size: %v", first["size"])
	}
	sources := first["sources"].([]any)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources in first cluster, got %v", sources)
	}
}

func TestHandleClustersMinSize(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleClusters, "/api/v1/clusters?min_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := body.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected only the multi-source cluster, got %d", len(items))
	}
}

func TestHandleClusterDetail(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleClusterDetail, "/api/v1/clusters/0", map[string]string{"cluster_id": "0"})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := body.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 members, got %d", len(items))
	}

	rec, body = invoke(t, s.handleClusterDetail, "/api/v1/clusters/99", map[string]string{"cluster_id": "99"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown cluster, got %d", rec.Code)
	}
	if body.Status != "fail" {
		t.Fatalf("unexpected jsend status: %q", body.Status)
	}
}

func TestHandleArticlesPagination(t *testing.T) {
	s := newTestServer(t)

	rec, body := invoke(t, s.handleArticles, "/api/v1/articles?page=1&page_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data := body.Data.(map[string]any)
	items := data["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items on page 1, got %d", len(items))
	}
	pagination := data["pagination"].(map[string]any)
	if pagination["total_items"].(float64) != 3 {
		t.Fatalf("unexpected total: %v", pagination["total_items"])
	}
	if pagination["total_pages"].(float64) != 2 {
		t.Fatalf("unexpected page count: %v", pagination["total_pages"])
	}

	rec, body = invoke(t, s.handleArticles, "/api/v1/articles?source=walla", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	data = body.Data.(map[string]any)
	items = data["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 walla article, got %d", len(items))
	}

	rec, _ = invoke(t, s.handleArticles, "/api/v1/articles?page=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", rec.Code)
	}
}

func TestHandlersWithoutSnapshot(t *testing.T) {
	s := NewServer(zerolog.Nop(), Options{SnapshotRoot: t.TempDir()})

	rec, body := invoke(t, s.handleClusters, "/api/v1/clusters", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without snapshots, got %d", rec.Code)
	}
	if body.Status != "fail" {
		t.Fatalf("unexpected jsend status: %q", body.Status)
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 25, 1, 200); err != nil || got != 25 {
		t.Fatalf("unexpected default: %d %v", got, err)
	}
	if got, err := parsePositiveInt(" 50 ", 25, 1, 200); err != nil || got != 50 {
		t.Fatalf("unexpected parse: %d %v", got, err)
	}
	if _, err := parsePositiveInt("0", 25, 1, 200); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := parsePositiveInt("abc", 25, 1, 200); err == nil {
		t.Fatalf("expected parse error")
	}
}
