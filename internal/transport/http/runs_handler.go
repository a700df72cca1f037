// Package http contains the HTTP handlers for the report service: run
// creation from an uploaded dealer archive, the confirmation gate, status
// polling and artifact downloads.
package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"ordergen/internal/archive"
	"ordergen/internal/audit"
	apierrors "ordergen/internal/errors"
	"ordergen/internal/exporter"
	"ordergen/internal/master"
	"ordergen/internal/pipeline"
	"ordergen/internal/report"
)

const dateLayout = "2006-01-02"

// Broadcaster publishes run lifecycle events to connected clients.
type Broadcaster interface {
	Broadcast(eventType, runID string, data interface{})
	BroadcastProgress(runID string, current, total int, message string)
}

// RunsHandler serves the run lifecycle endpoints.
type RunsHandler struct {
	store        *RunStore
	masterClient *master.Client
	defaultRules report.RuleSet
	sink         audit.Sink
	hub          Broadcaster
	logger       *slog.Logger
	validate     *validator.Validate

	uploadsDir    string
	maxUploadSize int64
	mergerOpts    []report.Option
}

// RunsHandlerConfig carries the handler dependencies.
type RunsHandlerConfig struct {
	Store         *RunStore
	MasterClient  *master.Client
	DefaultRules  report.RuleSet
	Sink          audit.Sink
	Hub           Broadcaster
	Logger        *slog.Logger
	UploadsDir    string
	MaxUploadSize int64
	MergerOpts    []report.Option
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(cfg RunsHandlerConfig) *RunsHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = archive.MaxUploadSize
	}
	return &RunsHandler{
		store:         cfg.Store,
		masterClient:  cfg.MasterClient,
		defaultRules:  cfg.DefaultRules,
		sink:          cfg.Sink,
		hub:           cfg.Hub,
		logger:        logger.With(slog.String("handler", "runs")),
		validate:      validator.New(),
		uploadsDir:    cfg.UploadsDir,
		maxUploadSize: maxUpload,
		mergerOpts:    cfg.MergerOpts,
	}
}

// Routes returns a chi router for the run endpoints.
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Post("/{id}/proceed", h.ProceedRun)
	r.Post("/{id}/stop", h.StopRun)
	r.Get("/{id}/validation-log.csv", h.DownloadValidationLog)
	r.Get("/{id}/artifacts", h.ListArtifacts)
	r.Get("/{id}/artifacts/{name}", h.DownloadArtifact)
	r.Get("/{id}/archive", h.DownloadArchive)
	return r
}

// RunRequest are the form fields accompanying the uploaded archive.
type RunRequest struct {
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
	Period    string `validate:"required,oneof=Day Week Month Quarter Year"`
	RuleSet   string `validate:"omitempty,oneof=standard extended-pending"`
}

// RunResponse is the run representation returned to clients.
type RunResponse struct {
	ID               string   `json:"id"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"created_at"`
	RuleSet          string   `json:"rule_set"`
	Brand            string   `json:"brand,omitempty"`
	Locations        []string `json:"locations"`
	MissingFiles     []string `json:"missing_files"`
	CoverageFindings []string `json:"coverage_findings"`
	MergeMessages    []string `json:"merge_messages,omitempty"`
	Artifacts        []string `json:"artifacts,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Render implements render.Renderer.
func (rr *RunResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (h *RunsHandler) runResponse(state *RunState) *RunResponse {
	resp := &RunResponse{
		ID:               state.ID,
		Status:           state.Status,
		CreatedAt:        state.CreatedAt.Format(time.RFC3339),
		RuleSet:          state.RuleSet,
		Locations:        []string{},
		MissingFiles:     []string{},
		CoverageFindings: []string{},
		Error:            state.Error,
	}
	run := state.Run
	if run == nil {
		return resp
	}
	resp.Brand = run.Brand
	for _, rec := range run.Locations {
		resp.Locations = append(resp.Locations, rec.String())
	}
	resp.MissingFiles = append(resp.MissingFiles, run.MissingFiles...)
	if run.Coverage != nil {
		resp.CoverageFindings = append(resp.CoverageFindings, run.Coverage.Messages...)
	}
	resp.MergeMessages = run.MergeMessages
	resp.Artifacts = run.ArtifactOrder
	return resp
}

// CreateRun handles POST /api/v1/runs. The request is a multipart form
// with the dealer archive plus the run parameters. Validation findings do
// not fail the request: the run parks at the confirmation gate and the
// caller decides whether to proceed.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bodyLimit := h.maxUploadSize + 1<<20
	if r.ContentLength > bodyLimit {
		render.Render(w, r, apierrors.ErrArchiveTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			render.Render(w, r, apierrors.ErrArchiveTooLarge)
			return
		}
		render.Render(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	req := RunRequest{
		StartDate: r.FormValue("start_date"),
		EndDate:   r.FormValue("end_date"),
		Period:    r.FormValue("period"),
		RuleSet:   r.FormValue("rule_set"),
	}
	if err := h.validate.Struct(req); err != nil {
		render.Render(w, r, validationErrors(err))
		return
	}

	startDate, _ := time.Parse(dateLayout, req.StartDate)
	endDate, _ := time.Parse(dateLayout, req.EndDate)
	if endDate.Before(startDate) {
		render.Render(w, r, apierrors.ErrValidation("end_date", "must not be before start_date"))
		return
	}
	periodDays, _ := pipeline.PeriodDaysByType(req.Period)

	rules := h.defaultRules
	if req.RuleSet != "" {
		var err error
		rules, err = report.RuleSetByName(req.RuleSet)
		if err != nil {
			render.Render(w, r, apierrors.ErrValidation("rule_set", err.Error()))
			return
		}
	}

	file, header, err := r.FormFile("archive")
	if err != nil {
		render.Render(w, r, apierrors.ErrValidation("archive", "archive file is required"))
		return
	}
	defer file.Close()

	runID := uuid.New().String()
	extractDir := h.extractDir(runID)
	if err := archive.Extract(file, header.Size, extractDir, h.maxUploadSize); err != nil {
		switch {
		case stderrors.Is(err, archive.ErrArchiveTooLarge):
			render.Render(w, r, apierrors.ErrArchiveTooLarge)
		case stderrors.Is(err, archive.ErrInvalidArchive):
			render.Render(w, r, apierrors.NewWithDetails(
				http.StatusBadRequest, "INVALID_ARCHIVE", "Uploaded file is not a valid zip archive", err.Error()))
		default:
			render.Render(w, r, apierrors.ErrInternalServer)
		}
		return
	}

	p := h.newPipeline(runID, rules)
	run, err := p.Validate(ctx, pipeline.Params{
		ExtractedRoot: extractDir,
		StartDate:     startDate,
		EndDate:       endDate,
		PeriodDays:    periodDays,
	})
	if err != nil {
		render.Render(w, r, apierrors.ErrPipelineExecution(err))
		return
	}

	state := &RunState{
		ID:        runID,
		CreatedAt: time.Now(),
		RuleSet:   rules.Name,
		Run:       run,
	}
	h.store.Put(state)

	h.logger.InfoContext(ctx, "run created",
		slog.String("run_id", runID),
		slog.Int("locations", len(run.Locations)),
		slog.Bool("has_findings", run.HasFindings()))

	if run.HasFindings() {
		state.Status = StatusAwaitingConfirmation
		h.hub.Broadcast("run:status", runID, map[string]string{"status": state.Status})
		render.Status(r, http.StatusAccepted)
		render.Render(w, r, h.runResponse(state))
		return
	}

	h.startMerge(state, rules)
	render.Status(r, http.StatusAccepted)
	render.Render(w, r, h.runResponse(state))
}

// ProceedRun handles POST /api/v1/runs/{id}/proceed: the caller confirms a
// run parked at the validation gate.
func (h *RunsHandler) ProceedRun(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	// claim the gate atomically so concurrent proceed requests cannot
	// both start a merge over the same run
	claimed := false
	priorStatus := ""
	h.store.Update(state.ID, func(s *RunState) {
		priorStatus = s.Status
		if s.Status == StatusAwaitingConfirmation {
			s.Status = StatusMerging
			claimed = true
		}
	})
	if !claimed {
		render.Render(w, r, apierrors.NewWithDetails(
			http.StatusConflict, "RUN_NOT_PENDING", "Run is not awaiting confirmation", priorStatus))
		return
	}

	rules, err := report.RuleSetByName(state.RuleSet)
	if err != nil {
		rules = h.defaultRules
	}
	h.startMerge(state, rules)
	render.Render(w, r, h.runResponse(state))
}

// StopRun handles POST /api/v1/runs/{id}/stop. The stop signal is honored
// between locations; the location currently merging runs to completion.
func (h *RunsHandler) StopRun(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	h.store.Update(state.ID, func(s *RunState) {
		if s.cancel != nil {
			s.cancel()
		}
	})
	render.Render(w, r, h.runResponse(state))
}

// GetRun handles GET /api/v1/runs/{id}.
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	render.Render(w, r, h.runResponse(state))
}

// ListRuns handles GET /api/v1/runs.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	states := h.store.List()
	out := make([]render.Renderer, 0, len(states))
	for _, state := range states {
		out = append(out, h.runResponse(state))
	}
	render.RenderList(w, r, out)
}

// DownloadValidationLog handles GET /api/v1/runs/{id}/validation-log.csv.
func (h *RunsHandler) DownloadValidationLog(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok || state.Run == nil || state.Run.Coverage == nil {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}

	payload, err := exporter.EncodeCSV(state.Run.Coverage.GapTable())
	if err != nil {
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="validation_log.csv"`)
	w.Write(payload)
}

// previewRowLimit caps the rows echoed back in artifact listings.
const previewRowLimit = 5

// ArtifactInfo describes one produced report workbook, with the first few
// rows as a preview for the host UI.
type ArtifactInfo struct {
	Filename string     `json:"filename"`
	Type     string     `json:"type"`
	Rows     int        `json:"rows"`
	Columns  []string   `json:"columns,omitempty"`
	Preview  [][]string `json:"preview,omitempty"`
}

// ArtifactListResponse lists the artifacts of a completed run.
type ArtifactListResponse struct {
	RunID     string         `json:"run_id"`
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// Render implements render.Renderer.
func (a *ArtifactListResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ListArtifacts handles GET /api/v1/runs/{id}/artifacts.
func (h *RunsHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok || state.Run == nil {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}

	resp := &ArtifactListResponse{RunID: state.ID, Artifacts: []ArtifactInfo{}}
	for _, name := range state.Run.ArtifactOrder {
		info := ArtifactInfo{Filename: name}
		if preview, ok := state.Run.Previews[name]; ok {
			info.Type = preview.Type
			info.Rows = len(preview.Rows)
			info.Columns = preview.Columns
			info.Preview = preview.Rows
			if len(info.Preview) > previewRowLimit {
				info.Preview = info.Preview[:previewRowLimit]
			}
		}
		resp.Artifacts = append(resp.Artifacts, info)
	}
	render.Render(w, r, resp)
}

// DownloadArtifact handles GET /api/v1/runs/{id}/artifacts/{name}.
func (h *RunsHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok || state.Run == nil {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	payload, ok := state.Run.Artifacts[name]
	if !ok {
		render.Render(w, r, apierrors.ErrArtifactNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(payload)
}

// DownloadArchive handles GET /api/v1/runs/{id}/archive: the combined ZIP
// of every artifact of a completed run.
func (h *RunsHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	state, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok || state.Run == nil {
		render.Render(w, r, apierrors.ErrRunNotFound)
		return
	}
	if state.Status != StatusCompleted {
		render.Render(w, r, apierrors.ErrRunNotMerged)
		return
	}

	payload, err := state.Run.Archive()
	if err != nil {
		render.Render(w, r, apierrors.ErrInternalServer)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", state.Run.ArchiveFilename()))
	w.Write(payload)
}

func (h *RunsHandler) newPipeline(runID string, rules report.RuleSet) *pipeline.Pipeline {
	opts := []pipeline.PipelineOption{
		pipeline.WithProgress(func(current, total int, message string) {
			h.hub.BroadcastProgress(runID, current, total, message)
		}),
	}
	if len(h.mergerOpts) > 0 {
		opts = append(opts, pipeline.WithMergerOptions(h.mergerOpts...))
	}
	return pipeline.New(h.masterClient, rules, h.sink, opts...)
}

// startMerge transitions the run into the merge stage and runs it in the
// background, broadcasting completion over the hub.
func (h *RunsHandler) startMerge(state *RunState, rules report.RuleSet) {
	ctx, cancel := context.WithCancel(context.Background())
	h.store.Update(state.ID, func(s *RunState) {
		s.Status = StatusMerging
		s.cancel = cancel
	})
	h.hub.Broadcast("run:status", state.ID, map[string]string{"status": StatusMerging})

	p := h.newPipeline(state.ID, rules)
	go func() {
		defer cancel()
		err := p.Merge(ctx, state.Run)
		h.store.Update(state.ID, func(s *RunState) {
			switch {
			case err != nil && stderrors.Is(err, context.Canceled):
				s.Status = StatusStopped
				s.Error = err.Error()
			case err != nil:
				s.Status = StatusFailed
				s.Error = err.Error()
			default:
				s.Status = StatusCompleted
			}
		})

		updated, _ := h.store.Get(state.ID)
		switch updated.Status {
		case StatusCompleted:
			h.hub.Broadcast("run:complete", state.ID, map[string]interface{}{
				"artifacts": updated.Run.ArtifactOrder,
				"archive":   updated.Run.ArchiveFilename(),
			})
		default:
			h.hub.Broadcast("run:error", state.ID, map[string]string{
				"status": updated.Status,
				"error":  updated.Error,
			})
		}
	}()
}

func (h *RunsHandler) extractDir(runID string) string {
	return filepath.Join(h.uploadsDir, runID)
}

// validationErrors converts validator.ValidationErrors into the API shape.
func validationErrors(err error) *apierrors.APIError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %s validation", fe.Tag()),
		})
	}
	return apierrors.NewValidationErrors(fields)
}
