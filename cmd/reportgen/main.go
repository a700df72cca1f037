// Command reportgen runs the report pipeline once from the command line:
// it takes a dealer archive (or an already extracted directory), validates
// it, and writes the normalized report workbooks plus the combined bundle
// to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ordergen/internal/archive"
	"ordergen/internal/audit"
	"ordergen/internal/config"
	"ordergen/internal/exporter"
	"ordergen/internal/infrastructure"
	"ordergen/internal/master"
	"ordergen/internal/pipeline"
	"ordergen/internal/report"
)

const dateLayout = "2006-01-02"

func main() {
	archivePath := flag.String("archive", "", "dealer ZIP archive to process")
	inputDir := flag.String("dir", "", "already extracted brand/dealer/location directory (alternative to -archive)")
	startDate := flag.String("start", "", "period start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "period end date (YYYY-MM-DD)")
	period := flag.String("period", "Week", "period type: Day, Week, Month, Quarter or Year")
	ruleSet := flag.String("rules", "standard", "rule set: standard or extended-pending")
	masterURL := flag.String("master", "", "URL of the master location mapping CSV")
	outDir := flag.String("out", "reports", "output directory for the generated workbooks")
	force := flag.Bool("force", false, "continue past validation findings")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{Level: *logLevel, Output: "console"})
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(logger, options{
		archivePath: *archivePath,
		inputDir:    *inputDir,
		startDate:   *startDate,
		endDate:     *endDate,
		period:      *period,
		ruleSet:     *ruleSet,
		masterURL:   *masterURL,
		outDir:      *outDir,
		force:       *force,
	}); err != nil {
		logger.Error("report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	archivePath string
	inputDir    string
	startDate   string
	endDate     string
	period      string
	ruleSet     string
	masterURL   string
	outDir      string
	force       bool
}

func run(logger *slog.Logger, opts options) error {
	if (opts.archivePath == "") == (opts.inputDir == "") {
		return fmt.Errorf("exactly one of -archive or -dir is required")
	}

	start, err := time.Parse(dateLayout, opts.startDate)
	if err != nil {
		return fmt.Errorf("invalid -start date: %w", err)
	}
	end, err := time.Parse(dateLayout, opts.endDate)
	if err != nil {
		return fmt.Errorf("invalid -end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("-end must not be before -start")
	}

	periodDays, ok := pipeline.PeriodDaysByType(opts.period)
	if !ok {
		return fmt.Errorf("unknown period type %q", opts.period)
	}
	rules, err := report.RuleSetByName(opts.ruleSet)
	if err != nil {
		return err
	}

	root := opts.inputDir
	if opts.archivePath != "" {
		extractDir, err := os.MkdirTemp("", "reportgen-*")
		if err != nil {
			return fmt.Errorf("failed to create extraction directory: %w", err)
		}
		defer os.RemoveAll(extractDir)

		if err := archive.ExtractFile(opts.archivePath, extractDir, archive.MaxUploadSize); err != nil {
			return err
		}
		root = extractDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := master.NewClientWithHTTP(opts.masterURL, &http.Client{Timeout: 30 * time.Second})
	p := pipeline.New(client, rules, &audit.SlogSink{Logger: logger},
		pipeline.WithProgress(func(current, total int, message string) {
			logger.Info(message, slog.Int("current", current), slog.Int("total", total))
		}))

	runState, err := p.Validate(ctx, pipeline.Params{
		ExtractedRoot: root,
		StartDate:     start,
		EndDate:       end,
		PeriodDays:    periodDays,
	})
	if err != nil {
		return err
	}

	for _, msg := range runState.MissingFiles {
		logger.Warn(msg)
	}
	for _, msg := range runState.Coverage.Messages {
		logger.Warn(msg)
	}

	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if runState.HasFindings() {
		logPath := filepath.Join(opts.outDir, "validation_log.csv")
		if payload, err := exporter.EncodeCSV(runState.Coverage.GapTable()); err == nil {
			os.WriteFile(logPath, payload, 0644)
			logger.Info("validation log written", slog.String("path", logPath))
		}
		if !opts.force {
			return fmt.Errorf("validation findings present; re-run with -force to continue")
		}
	}

	if err := p.Merge(ctx, runState); err != nil {
		return err
	}
	for _, msg := range runState.MergeMessages {
		logger.Warn(msg)
	}

	for _, name := range runState.ArtifactOrder {
		path := filepath.Join(opts.outDir, name)
		if err := os.WriteFile(path, runState.Artifacts[name], 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if len(runState.Artifacts) > 0 {
		bundle, err := runState.Archive()
		if err != nil {
			return fmt.Errorf("failed to build combined archive: %w", err)
		}
		bundlePath := filepath.Join(opts.outDir, runState.ArchiveFilename())
		if err := os.WriteFile(bundlePath, bundle, 0644); err != nil {
			return fmt.Errorf("failed to write combined archive: %w", err)
		}
		logger.Info("combined archive written", slog.String("path", bundlePath))
	}

	logger.Info("report generation complete",
		slog.Int("artifacts", len(runState.Artifacts)),
		slog.String("output_dir", opts.outDir))
	return nil
}
