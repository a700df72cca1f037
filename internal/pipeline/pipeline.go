// Package pipeline orchestrates a report generation run: enumerate the
// extracted archive, check required files, validate period coverage, then
// (past the soft gate) merge against the master map and package the
// artifacts. State for a run lives in an explicit Run value threaded
// through the stages; there are no process-wide singletons.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ordergen/internal/audit"
	"ordergen/internal/exporter"
	"ordergen/internal/locations"
	"ordergen/internal/master"
	"ordergen/internal/report"
	"ordergen/internal/validation"
)

// periodDaysByType mirrors the period choices offered by the host UI.
var periodDaysByType = map[string]int{
	"Day":     1,
	"Week":    7,
	"Month":   30,
	"Quarter": 180,
	"Year":    365,
}

// PeriodDaysByType resolves a period-type name to its length in days.
func PeriodDaysByType(name string) (int, bool) {
	days, ok := periodDaysByType[name]
	return days, ok
}

// Params are the caller-defined inputs of one run.
type Params struct {
	ExtractedRoot string
	StartDate     time.Time
	EndDate       time.Time
	PeriodDays    int
}

// Run is the mutable per-run context. The artifact maps are append-only
// while the run progresses; nothing else crosses location boundaries.
type Run struct {
	Params Params

	Locations    []locations.Record
	MissingFiles []string
	Coverage     *validation.Result

	MergeMessages []string
	Brand         string

	// Artifacts holds the encoded workbook per artifact filename;
	// ArtifactOrder preserves production order for deterministic bundling.
	Artifacts     map[string][]byte
	ArtifactOrder []string
	Previews      map[string]report.Artifact
}

// HasFindings reports whether validation produced anything the caller may
// want to confirm before merging.
func (r *Run) HasFindings() bool {
	return len(r.MissingFiles) > 0 || (r.Coverage != nil && len(r.Coverage.Messages) > 0)
}

// Archive bundles every produced artifact into the combined ZIP.
func (r *Run) Archive() ([]byte, error) {
	return exporter.BuildArchive(r.Artifacts, r.ArtifactOrder)
}

// ArchiveFilename is the download name of the combined bundle.
func (r *Run) ArchiveFilename() string {
	return exporter.ArchiveName(r.Brand)
}

// ProgressFunc receives coarse progress after each fully processed location.
type ProgressFunc func(current, total int, message string)

// Pipeline wires the stages together. One Pipeline may serve many runs.
type Pipeline struct {
	masterClient *master.Client
	validator    *validation.Validator
	rules        report.RuleSet
	sink         audit.Sink
	progress     ProgressFunc
	mergerOpts   []report.Option
}

// New builds a Pipeline.
func New(masterClient *master.Client, rules report.RuleSet, sink audit.Sink, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		masterClient: masterClient,
		validator:    validation.NewValidator(),
		rules:        rules,
		sink:         sink,
		progress:     func(int, int, string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) PipelineOption {
	return func(p *Pipeline) { p.progress = fn }
}

// WithValidator swaps the coverage validator.
func WithValidator(v *validation.Validator) PipelineOption {
	return func(p *Pipeline) { p.validator = v }
}

// WithMergerOptions forwards options to the per-run merger (clock and
// reader overrides in tests).
func WithMergerOptions(opts ...report.Option) PipelineOption {
	return func(p *Pipeline) { p.mergerOpts = opts }
}

// Validate runs the gate stages: enumerate locations, check required file
// presence and period coverage. The findings are a soft gate; the caller
// decides whether to continue into Merge.
func (p *Pipeline) Validate(ctx context.Context, params Params) (*Run, error) {
	runsStarted.Inc()

	locs, err := locations.Enumerate(params.ExtractedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate locations: %w", err)
	}

	run := &Run{
		Params:    params,
		Locations: locs,
		Artifacts: make(map[string][]byte),
		Previews:  make(map[string]report.Artifact),
	}
	run.MissingFiles = locations.CheckRequiredFiles(locs)
	run.Coverage = p.validator.Validate(locs, params.StartDate, params.EndDate, params.PeriodDays)

	p.sink.Record(ctx, "validate", fmt.Sprintf(
		"%d locations, %d missing files, %d coverage findings",
		len(locs), len(run.MissingFiles), len(run.Coverage.Messages)), "INFO")

	slog.InfoContext(ctx, "validation stage complete",
		slog.Int("locations", len(locs)),
		slog.Int("missing_files", len(run.MissingFiles)),
		slog.Int("coverage_gaps", len(run.Coverage.Gaps)))
	return run, nil
}

// Merge fetches the master map once, then processes every location strictly
// in enumeration order, merging and encoding artifacts. The stop signal is
// honored between locations; a location that began merging runs to
// completion.
func (p *Pipeline) Merge(ctx context.Context, run *Run) error {
	masterMap, err := p.masterClient.Fetch(ctx)
	if err != nil {
		// degraded mode: empty map, joins produce zero rows
		run.MergeMessages = append(run.MergeMessages,
			fmt.Sprintf("master mapping unavailable: %v", err))
		p.sink.Record(ctx, "master_fetch", err.Error(), "WARN")
	}

	merger := report.NewMerger(masterMap, p.rules, p.mergerOpts...)
	total := len(run.Locations)

	for i, rec := range run.Locations {
		if err := ctx.Err(); err != nil {
			p.sink.Record(ctx, "merge_stopped", rec.String(), "WARN")
			return fmt.Errorf("merge stopped before %s: %w", rec, err)
		}

		artifacts, messages := merger.MergeLocation(rec)
		run.MergeMessages = append(run.MergeMessages, messages...)
		mergeSoftErrors.Add(float64(len(messages)))

		for _, artifact := range artifacts {
			encoded, err := exporter.EncodeArtifact(artifact)
			if err != nil {
				run.MergeMessages = append(run.MergeMessages,
					fmt.Sprintf("%s: failed to encode %s - %v", rec, artifact.Filename, err))
				continue
			}
			run.Artifacts[artifact.Filename] = encoded
			run.ArtifactOrder = append(run.ArtifactOrder, artifact.Filename)
			run.Previews[artifact.Filename] = artifact
			artifactsProduced.Inc()
		}
		run.Brand = rec.Brand
		locationsProcessed.Inc()

		p.progress(i+1, total, fmt.Sprintf("Generating reports for %s (%d/%d)", rec.Location, i+1, total))
	}

	runsCompleted.Inc()
	p.sink.Record(ctx, "merge", fmt.Sprintf("%d artifacts produced", len(run.Artifacts)), "INFO")
	return nil
}
