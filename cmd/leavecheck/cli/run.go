// Package cli implements the leavecheck commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/leavecheck/leavecheck/internal/app"
	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/pipeline"
)

// Exit codes: 0 clean run, 1 failure, 10 completed with HIGH findings.
const exitHighFindings = 10

// RunOptions defines available flags for the run command.
type RunOptions struct {
	DataDir    string
	OutDir     string
	Tolerance  string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RunSummary describes the JSON response for the run command.
type RunSummary struct {
	RunID           string         `json:"run_id"`
	LeakageFindings int            `json:"leakage_findings"`
	LSLFindings     int            `json:"lsl_findings"`
	BySeverity      map[string]int `json:"by_severity"`
	ExposureLow     string         `json:"estimated_exposure_low"`
	ExposureHigh    string         `json:"estimated_exposure_high"`
	Outputs         []string       `json:"outputs"`
}

// RunCommand executes a full audit run and prints the outcome.
func RunCommand(ctx context.Context, opts RunOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "run: config: %v\n", err)
		return 1
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.OutDir != "" {
		cfg.OutDir = opts.OutDir
	}
	if opts.Tolerance != "" {
		tolerance, err := parseTolerance(opts.Tolerance)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "run: %v\n", err)
			return 1
		}
		cfg.ToleranceUnits = tolerance
	}

	logger := app.NewLogger(cfg)
	runner := pipeline.NewRunner(logger)
	result, err := runner.Run(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "run: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(buildRunSummary(result)); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "run: encode json: %v\n", err)
			return 1
		}
	} else {
		renderRunHuman(opts.Stdout, cfg, result)
	}
	if result.HighSeverityCount() > 0 {
		return exitHighFindings
	}
	return 0
}

func buildRunSummary(result *pipeline.Result) RunSummary {
	bySeverity := make(map[string]int)
	for _, f := range result.Leakage {
		bySeverity[string(f.Severity)]++
	}
	for _, f := range result.LSL {
		bySeverity[string(f.Severity)]++
	}
	return RunSummary{
		RunID:           result.RunID,
		LeakageFindings: len(result.Leakage),
		LSLFindings:     len(result.LSL),
		BySeverity:      bySeverity,
		ExposureLow:     result.ExposureLow.StringFixed(2),
		ExposureHigh:    result.ExposureHigh.StringFixed(2),
		Outputs:         result.Outputs,
	}
}

func renderRunHuman(w io.Writer, cfg *app.Config, result *pipeline.Result) {
	_, _ = fmt.Fprintf(w, "Audit run %s completed.\n", result.RunID)
	_, _ = fmt.Fprintf(w, "  Leave leakage findings: %d\n", len(result.Leakage))
	_, _ = fmt.Fprintf(w, "  LSL exposure findings:  %d\n", len(result.LSL))
	for _, severity := range []finding.Severity{finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow} {
		n := 0
		for _, f := range result.Leakage {
			if f.Severity == severity {
				n++
			}
		}
		for _, f := range result.LSL {
			if f.Severity == severity {
				n++
			}
		}
		if n > 0 {
			_, _ = fmt.Fprintf(w, "    %-6s %d\n", severity, n)
		}
	}
	_, _ = fmt.Fprintf(w, "  Indicative LSL exposure: %s - %s %s\n",
		result.ExposureLow.StringFixed(2), result.ExposureHigh.StringFixed(2), cfg.Currency)
	_, _ = fmt.Fprintf(w, "  Outputs written to %s:\n", cfg.OutDir)
	for _, path := range result.Outputs {
		_, _ = fmt.Fprintf(w, "    %s\n", path)
	}
}
