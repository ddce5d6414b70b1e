// Package http contains the HTTP handlers for the cleaning service.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cleanbot/internal/cleaning"
	"cleanbot/internal/config"
	"cleanbot/internal/dataprocessing"
	apierrors "cleanbot/internal/errors"
	"cleanbot/internal/services"
	"cleanbot/internal/validation"
)

// CleanServiceInterface is the service surface the handler consumes.
type CleanServiceInterface interface {
	Upload(ctx context.Context, files []services.UploadedFile) (*services.UploadResult, error)
	Clean(ctx context.Context, sessionID string, cfg *cleaning.Config, force bool) ([]*cleaning.CleaningResult, error)
	Archive(ctx context.Context, sessionID string, w io.Writer) error
	Stats(ctx context.Context, sessionID string) (*services.SessionStats, error)
	Report(ctx context.Context, sessionID string) (string, error)
}

// CleanHandler serves the upload/clean/download API.
type CleanHandler struct {
	service      CleanServiceInterface
	upload       config.UploadConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewCleanHandler creates the handler.
func NewCleanHandler(service CleanServiceInterface, upload config.UploadConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *CleanHandler {
	return &CleanHandler{
		service:      service,
		upload:       upload,
		logger:       logger.With(slog.String("component", "clean_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the API routes.
func (h *CleanHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.Upload)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Post("/clean", h.Clean)
		r.Get("/archive", h.Archive)
		r.Get("/stats", h.Stats)
		r.Get("/report", h.Report)
	})

	return r
}

type sessionKey struct{}

// SessionCtx validates the session identifier parameter.
func (h *CleanHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if id == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("sessionID", "Session identifier is required"))
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Upload handles POST /api/upload. The multipart form may carry several
// files under the "files" field; unsupported ones are skipped and
// reported back.
func (h *CleanHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.upload.MaxFileBytes * int64(h.upload.MaxFiles)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("failed to parse multipart form: %w", err)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", "At least one file is required"))
		return
	}
	if len(headers) > h.upload.MaxFiles {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files",
			fmt.Sprintf("Too many files: %d exceeds the limit of %d", len(headers), h.upload.MaxFiles)))
		return
	}

	files := make([]services.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.upload.MaxFileBytes {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files",
				fmt.Sprintf("File %s exceeds the size limit of %d bytes", fh.Filename, h.upload.MaxFileBytes)))
			return
		}
		if !dataprocessing.SupportedExt(fh.Filename) {
			h.logger.WarnContext(r.Context(), "unsupported upload skipped",
				slog.String("file", fh.Filename))
			continue
		}
		data, err := readUpload(fh)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		files = append(files, services.UploadedFile{Name: fh.Filename, Data: data})
	}
	if len(files) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoValidFiles)
		return
	}

	result, err := h.service.Upload(r.Context(), files)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

// Clean handles POST /api/sessions/{id}/clean. The optional JSON body is
// the cleaning configuration; an empty body runs in auto mode. The
// force=true query parameter overrides the unsalvageable gate.
func (h *CleanHandler) Clean(w http.ResponseWriter, r *http.Request) {
	var cfg *cleaning.Config
	if r.ContentLength != 0 {
		cfg = &cleaning.Config{}
		if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("failed to decode config: %w", err)))
			return
		}
		if err := validation.Struct(cfg); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("config", err.Error()))
			return
		}
	}
	force := r.URL.Query().Get("force") == "true"

	results, err := h.service.Clean(r.Context(), sessionID(r.Context()), cfg, force)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, cleanResponse(results))
}

// CleanedTable is the per-table response of a cleaning run.
type CleanedTable struct {
	Name            string                  `json:"name"`
	Before          cleaning.QualityStats   `json:"before"`
	After           cleaning.QualityStats   `json:"after"`
	Changes         []string                `json:"changes"`
	Stages          []cleaning.StageOutcome `json:"stages"`
	RemainingIssues []string                `json:"remaining_issues"`
	Verdict         cleaning.Verdict        `json:"verdict"`
	Split           bool                    `json:"split"`
}

func cleanResponse(results []*cleaning.CleaningResult) []CleanedTable {
	out := make([]CleanedTable, 0, len(results))
	for _, result := range results {
		out = append(out, CleanedTable{
			Name:            result.Table.Name,
			Before:          result.Before,
			After:           result.After,
			Changes:         result.Changes,
			Stages:          result.Outcomes,
			RemainingIssues: result.RemainingIssues,
			Verdict:         result.Verdict,
			Split:           result.Split != nil,
		})
	}
	return out
}

// Archive handles GET /api/sessions/{id}/archive: the zip download of
// cleaned CSVs plus the consolidated report.
func (h *CleanHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r.Context())

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="cleaned_tables.zip"`)
	if err := h.service.Archive(r.Context(), id, w); err != nil {
		// Nothing has been streamed yet on the error paths the service
		// returns, so a structured response is still possible.
		w.Header().Del("Content-Type")
		w.Header().Del("Content-Disposition")
		h.errorHandler.HandleError(w, r, err)
		return
	}
}

// Stats handles GET /api/sessions/{id}/stats.
func (h *CleanHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), sessionID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// Report handles GET /api/sessions/{id}/report: the consolidated text
// report on its own, outside the archive.
func (h *CleanHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context(), sessionID(r.Context()))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, report)
}
