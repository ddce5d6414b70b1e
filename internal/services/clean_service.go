// Package services orchestrates the cleaning workflow between the HTTP
// layer and the cleaning engine: sessions, concurrent per-table runs,
// progress broadcasting, and archive assembly.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"cleanbot/internal/cleaning"
	"cleanbot/internal/dataprocessing"
	apierrors "cleanbot/internal/errors"
	"cleanbot/internal/exporter"
	"cleanbot/internal/infrastructure"
	"cleanbot/internal/session"
	"cleanbot/internal/websocket"
)

// maxConcurrentCleans bounds how many tables of one session are cleaned
// in parallel.
const maxConcurrentCleans = 4

// UploadedFile is one file from a multipart upload, already read into
// memory by the transport layer.
type UploadedFile struct {
	Name string
	Data []byte
}

// UploadResult summarizes one upload: the session and the upload-time
// quality snapshot plus a suggested configuration per table.
type UploadResult struct {
	SessionID string              `json:"session_id"`
	Tables    []UploadedTableInfo `json:"tables"`
	Skipped   []string            `json:"skipped_files,omitempty"`
}

// UploadedTableInfo is the per-table part of an upload response.
type UploadedTableInfo struct {
	Name      string                `json:"name"`
	Rows      int                   `json:"rows"`
	Columns   int                   `json:"columns"`
	Stats     cleaning.QualityStats `json:"stats"`
	Suggested *cleaning.Config      `json:"suggested_config"`
}

// CleanService is the application service behind every endpoint.
type CleanService struct {
	store   session.Store
	logger  *slog.Logger
	tracer  oteltrace.Tracer
	metrics *infrastructure.BusinessMetrics
	hub     *websocket.Hub
}

// NewCleanService wires the service. tracer, metrics and hub may be nil
// in tests.
func NewCleanService(store session.Store, logger *slog.Logger, tracer oteltrace.Tracer, metrics *infrastructure.BusinessMetrics, hub *websocket.Hub) *CleanService {
	return &CleanService{
		store:   store,
		logger:  logger.With(slog.String("component", "clean_service")),
		tracer:  tracer,
		metrics: metrics,
		hub:     hub,
	}
}

// Upload parses every supported file, scores the tables, and opens a
// session holding them. Unsupported or unparsable files are reported in
// Skipped; the upload fails only when no file yields a table.
func (s *CleanService) Upload(ctx context.Context, files []UploadedFile) (*UploadResult, error) {
	ctx, span := s.span(ctx, "CleanService.Upload")
	defer span.End()

	var (
		tables  []*cleaning.Table
		stats   []cleaning.QualityStats
		infos   []UploadedTableInfo
		skipped []string
	)
	for _, file := range files {
		table, err := dataprocessing.Parse(file.Name, file.Data)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping file",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			skipped = append(skipped, file.Name)
			continue
		}
		st := cleaning.Score(table)
		tables = append(tables, table)
		stats = append(stats, st)
		infos = append(infos, UploadedTableInfo{
			Name:      table.Name,
			Rows:      table.RowCount(),
			Columns:   table.ColumnCount(),
			Stats:     st,
			Suggested: cleaning.Suggest(table),
		})
	}
	if len(tables) == 0 {
		return nil, apierrors.ErrNoValidFiles
	}

	sess := s.store.Create(tables, stats)
	s.logger.InfoContext(ctx, "upload session created",
		slog.String("session_id", sess.ID),
		slog.Int("tables", len(tables)),
		slog.Int("skipped", len(skipped)))

	return &UploadResult{SessionID: sess.ID, Tables: infos, Skipped: skipped}, nil
}

// Clean runs the pipeline over every table in the session with the given
// configuration. Unless force is set, the run is refused while any table
// is judged unsalvageable. Results are stored on the session and
// returned in upload order.
func (s *CleanService) Clean(ctx context.Context, sessionID string, cfg *cleaning.Config, force bool) ([]*cleaning.CleaningResult, error) {
	ctx, span := s.span(ctx, "CleanService.Clean")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.Bool("force", force))

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, apierrors.ErrSessionNotFound
	}

	if !force {
		reasons := make(map[string][]string)
		for i, st := range sess.Stats {
			if st.Unsalvageable {
				reasons[sess.Tables[i].Name] = st.UnsalvageReasons
			}
		}
		if len(reasons) > 0 {
			return nil, apierrors.UnsalvageableWithReasons(reasons)
		}
	}

	pipeline := cleaning.NewPipeline(s.logger, s.progressObserver(sessionID))
	results := make([]*cleaning.CleaningResult, len(sess.Tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCleans)
	for i, table := range sess.Tables {
		i, table := i, table
		g.Go(func() error {
			start := time.Now()
			result, err := pipeline.Clean(gctx, table, cfg)
			if err != nil {
				return fmt.Errorf("cleaning %s: %w", table.Name, err)
			}
			results[i] = result
			s.recordRun(gctx, result, time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "cleaning run failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.store.SaveResults(sessionID, results); err != nil {
		return nil, apierrors.ErrSessionNotFound
	}

	if s.hub != nil {
		s.hub.Broadcast(websocket.Event{
			Type:      websocket.EventCleaningComplete,
			SessionID: sessionID,
		})
	}
	return results, nil
}

// Archive writes the zip of cleaned CSVs and the consolidated report for
// a session that has already been cleaned.
func (s *CleanService) Archive(ctx context.Context, sessionID string, w io.Writer) error {
	ctx, span := s.span(ctx, "CleanService.Archive")
	defer span.End()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return apierrors.ErrSessionNotFound
	}
	if !sess.Cleaned() {
		return apierrors.ErrNotCleaned
	}
	if err := exporter.WriteArchive(w, sess.Results); err != nil {
		s.logger.ErrorContext(ctx, "archive build failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return apierrors.ErrInternalServer
	}
	return nil
}

// SessionStats returns the upload-time quality snapshot per table, plus
// the post-clean snapshot once the session has been cleaned.
type SessionStats struct {
	SessionID string           `json:"session_id"`
	CreatedAt time.Time        `json:"created_at"`
	Cleaned   bool             `json:"cleaned"`
	Tables    []TableStatsView `json:"tables"`
}

// TableStatsView pairs before and after stats for one table.
type TableStatsView struct {
	Name    string                 `json:"name"`
	Before  cleaning.QualityStats  `json:"before"`
	After   *cleaning.QualityStats `json:"after,omitempty"`
	Verdict cleaning.Verdict       `json:"verdict,omitempty"`
}

// Stats assembles the stats view for one session.
func (s *CleanService) Stats(ctx context.Context, sessionID string) (*SessionStats, error) {
	_, span := s.span(ctx, "CleanService.Stats")
	defer span.End()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, apierrors.ErrSessionNotFound
	}

	out := &SessionStats{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		Cleaned:   sess.Cleaned(),
	}
	for i, table := range sess.Tables {
		view := TableStatsView{Name: table.Name, Before: sess.Stats[i]}
		if sess.Cleaned() && i < len(sess.Results) {
			after := sess.Results[i].After
			view.After = &after
			view.Verdict = sess.Results[i].Verdict
		}
		out.Tables = append(out.Tables, view)
	}
	return out, nil
}

// Report renders the consolidated text report for a cleaned session.
func (s *CleanService) Report(ctx context.Context, sessionID string) (string, error) {
	_, span := s.span(ctx, "CleanService.Report")
	defer span.End()

	sess, err := s.store.Get(sessionID)
	if err != nil {
		return "", apierrors.ErrSessionNotFound
	}
	if !sess.Cleaned() {
		return "", apierrors.ErrNotCleaned
	}
	return cleaning.RenderReport(sess.Results), nil
}

func (s *CleanService) span(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	if s.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}
	return s.tracer.Start(ctx, name)
}

func (s *CleanService) recordRun(ctx context.Context, result *cleaning.CleaningResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("table", result.Table.Name))
	s.metrics.TablesCleaned.Add(ctx, 1, attrs)
	s.metrics.CellsImputed.Add(ctx, int64(float64(result.Before.TotalCells)*result.After.ImputedRatio/100+0.5), attrs)
	origRows := result.Before.TotalCells / max(result.Table.ColumnCount(), 1)
	if removed := origRows - result.Table.RowCount(); removed > 0 {
		s.metrics.RowsRemoved.Add(ctx, int64(removed), attrs)
	}
	s.metrics.CleanDurationSec.Record(ctx, elapsed.Seconds(), attrs)
}

// progressObserver adapts the pipeline observer callback onto the hub.
func (s *CleanService) progressObserver(sessionID string) cleaning.StageObserver {
	if s.hub == nil {
		return nil
	}
	return observerFunc(func(_ context.Context, table string, outcome cleaning.StageOutcome) {
		s.hub.Broadcast(websocket.Event{
			Type:      websocket.EventCleaningProgress,
			SessionID: sessionID,
			Table:     table,
			Stage:     outcome.Stage,
			Status:    string(outcome.Status),
			Detail:    outcome.Detail,
		})
	})
}

type observerFunc func(ctx context.Context, table string, outcome cleaning.StageOutcome)

func (f observerFunc) StageCompleted(ctx context.Context, table string, outcome cleaning.StageOutcome) {
	f(ctx, table, outcome)
}
