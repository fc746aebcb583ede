package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"zomatoclean/internal/config"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/internal/operations"
	"zomatoclean/pkg/contracts"
	"zomatoclean/pkg/contracts/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one pipeline run and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cleaner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to a YAML configuration file")
	input := fs.String("input", "", "source CSV or XLSX file (default: acquire or discover one)")
	output := fs.String("output", "", "directory for the cleaned table and report (default: paths.processed_dir)")
	strict := fs.Bool("strict", false, "exit with status 1 when the validation report fails")
	asJSON := fs.Bool("json", false, "print the run summary as JSON")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetVersionInfo())
		return 0
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	// stdout carries the summary; console logs go to stderr
	var logger *slog.Logger
	if strings.EqualFold(cfg.Logging.Output, "console") {
		logger = infrastructure.NewLogger(stderr, cfg.Logging)
		slog.SetDefault(logger)
	} else {
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
			return 1
		}
		defer infrastructure.CloseLogFile()
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		logger.Error("Failed to resolve paths", slog.String("error", err.Error()))
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create directories", slog.String("error", err.Error()))
		return 1
	}

	otelProviders, err := infrastructure.InitializeOTel(cfg.Metrics, logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.String("error", err.Error()))
		return 1
	}
	defer otelProviders.Shutdown(context.Background())

	tracer, err := operations.NewOperationTracer(otelProviders)
	if err != nil {
		logger.Error("Failed to initialize operation tracer", slog.String("error", err.Error()))
		return 1
	}

	registry := operations.NewRegistry()
	if err := operations.RegisterPipeline(registry, operations.NewPipelineStages(cfg, paths, logger)); err != nil {
		logger.Error("Failed to register pipeline", slog.String("error", err.Error()))
		return 1
	}
	manager := operations.NewManager(nil, registry, operations.NewConfig(), tracer, logger)

	resp, runErr := manager.Execute(ctx, operations.OperationRequest{
		InputPath: *input,
		OutputDir: *output,
	})

	if resp != nil && resp.Summary != nil {
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(resp.Summary)
		} else {
			printSummary(stdout, resp.Summary)
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "pipeline failed: %v\n", runErr)
		return 1
	}
	if *strict && resp.Summary != nil && resp.Summary.Validation != nil && !resp.Summary.Validation.Valid {
		fmt.Fprintln(stderr, "validation failed")
		return 1
	}
	return 0
}

func printSummary(w io.Writer, s *domain.PipelineSummary) {
	fmt.Fprintln(w, "Pipeline summary")
	fmt.Fprintf(w, "  run:              %s\n", s.RunID)
	fmt.Fprintf(w, "  status:           %s\n", s.Status)
	if s.SourcePath != "" {
		fmt.Fprintf(w, "  source:           %s\n", s.SourcePath)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error:            %s\n", s.Error)
		return
	}
	fmt.Fprintf(w, "  original shape:   %d rows x %d columns\n", s.OriginalShape.Rows, s.OriginalShape.Columns)
	fmt.Fprintf(w, "  cleaned shape:    %d rows x %d columns\n", s.CleanedShape.Rows, s.CleanedShape.Columns)
	fmt.Fprintf(w, "  completeness:     %.2f%% -> %.2f%%\n",
		100*s.CleaningImpact.OriginalCompleteness, 100*s.CleaningImpact.FinalCompleteness)
	fmt.Fprintf(w, "  rows removed:     %d\n", s.CleaningImpact.RowsRemoved)
	fmt.Fprintf(w, "  columns removed:  %d\n", s.CleaningImpact.ColumnsRemoved)

	if v := s.Validation; v != nil {
		fmt.Fprintf(w, "  validation:       %s\n", passFail(v.Valid))
		for _, c := range v.FailedChecks {
			fmt.Fprintf(w, "    failed  %s: %s\n", c.Rule, c.Message)
		}
		for _, c := range v.Warnings {
			fmt.Fprintf(w, "    warning %s: %s\n", c.Rule, c.Message)
		}
	}

	fmt.Fprintf(w, "  cleaned data:     %s\n", s.Outputs.CleanedDataPath)
	fmt.Fprintf(w, "  quality report:   %s\n", s.Outputs.ReportPath)
}

func passFail(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}
