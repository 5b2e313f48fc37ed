package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Omeraluf/israeli-media-monitor/internal/globaltime"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/snapshot"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type Options struct {
	Host            string
	Port            int
	SnapshotRoot    string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	logger zerolog.Logger
	opts   Options
}

type clusterListItem struct {
	ClusterID int       `json:"cluster_id"`
	Size      int       `json:"size"`
	Sources   []string  `json:"sources"`
	Title     string    `json:"title"`
	NewestAt  time.Time `json:"newest_at,omitempty"`
}

type clusterDetail struct {
	Cluster clusterListItem  `json:"cluster"`
	Items   []*record.Record `json:"items"`
}

func NewServer(logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			SnapshotRoot:    opts.SnapshotRoot,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || strings.TrimSpace(s.opts.SnapshotRoot) == "" {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/run", s.handleRun)
	api.GET("/clusters", s.handleClusters)
	api.GET("/clusters/:cluster_id", s.handleClusterDetail)
	api.GET("/articles", s.handleArticles)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Str("snapshots", s.opts.SnapshotRoot).Msg("media monitor server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("media monitor server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "media-monitor",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleRun(c echo.Context) error {
	dir, meta, _, err := s.loadLatest()
	if err != nil {
		return s.snapshotError(c, err)
	}
	return success(c, map[string]any{
		"snapshot_dir": dir,
		"run":          meta,
	})
}

func (s *Server) handleClusters(c echo.Context) error {
	minSize, err := parsePositiveInt(c.QueryParam("min_size"), 1, 1, 10_000)
	if err != nil {
		return failValidation(c, map[string]string{"min_size": err.Error()})
	}
	source := strings.TrimSpace(strings.ToLower(c.QueryParam("source")))

	_, _, records, err := s.loadLatest()
	if err != nil {
		return s.snapshotError(c, err)
	}

	items := buildClusterList(records)
	filtered := items[:0]
	for _, item := range items {
		if item.Size < minSize {
			continue
		}
		if source != "" && !containsString(item.Sources, source) {
			continue
		}
		filtered = append(filtered, item)
	}

	return success(c, map[string]any{
		"items": filtered,
		"total": len(filtered),
	})
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	clusterID, err := strconv.Atoi(strings.TrimSpace(c.Param("cluster_id")))
	if err != nil {
		return failValidation(c, map[string]string{"cluster_id": "must be an integer"})
	}

	_, _, records, err := s.loadLatest()
	if err != nil {
		return s.snapshotError(c, err)
	}

	var members []*record.Record
	for _, rec := range records {
		if rec.ClusterID != nil && *rec.ClusterID == clusterID {
			members = append(members, rec)
		}
	}
	if len(members) == 0 {
		return failNotFound(c, "Cluster not found")
	}

	return success(c, clusterDetail{
		Cluster: summarizeCluster(clusterID, members),
		Items:   members,
	})
}

func (s *Server) handleArticles(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}
	source := strings.TrimSpace(strings.ToLower(c.QueryParam("source")))

	_, _, records, err := s.loadLatest()
	if err != nil {
		return s.snapshotError(c, err)
	}

	filtered := records
	if source != "" {
		filtered = make([]*record.Record, 0, len(records))
		for _, rec := range records {
			if strings.ToLower(rec.Source) == source {
				filtered = append(filtered, rec)
			}
		}
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return success(c, map[string]any{
		"items": filtered[start:end],
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
	})
}

func (s *Server) loadLatest() (string, *snapshot.RunMeta, []*record.Record, error) {
	dir, err := snapshot.LatestDir(s.opts.SnapshotRoot)
	if err != nil {
		return "", nil, nil, err
	}
	meta, err := snapshot.LoadMeta(dir)
	if err != nil {
		return "", nil, nil, err
	}
	records, err := snapshot.LoadRecords(dir)
	if err != nil {
		return "", nil, nil, err
	}
	return dir, meta, records, nil
}

func (s *Server) snapshotError(c echo.Context, err error) error {
	s.logger.Error().Err(err).Str("snapshots", s.opts.SnapshotRoot).Msg("load snapshot failed")
	return failNotFound(c, "No snapshot available")
}

func buildClusterList(records []*record.Record) []clusterListItem {
	groups := map[int][]*record.Record{}
	for _, rec := range records {
		if rec.ClusterID == nil {
			continue
		}
		groups[*rec.ClusterID] = append(groups[*rec.ClusterID], rec)
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	items := make([]clusterListItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, summarizeCluster(id, groups[id]))
	}
	return items
}

func summarizeCluster(id int, members []*record.Record) clusterListItem {
	item := clusterListItem{
		ClusterID: id,
		Size:      len(members),
		Title:     members[0].TitleDisplay,
	}
	seen := map[string]bool{}
	for _, rec := range members {
		src := strings.ToLower(rec.Source)
		if src != "" && !seen[src] {
			seen[src] = true
			item.Sources = append(item.Sources, src)
		}
		if rec.PublishedAt != nil && rec.PublishedAt.After(item.NewestAt) {
			item.NewestAt = *rec.PublishedAt
		}
	}
	sort.Strings(item.Sources)
	return item
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
