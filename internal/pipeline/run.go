// Package pipeline wires the full audit run: load the extracts, replay and
// reconcile the ledger, evaluate both compliance checks, and write every
// output file. The engine itself is sequential and deterministic; only the
// final file writes fan out.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/leavecheck/leavecheck/internal/app"
	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/ledger"
	"github.com/leavecheck/leavecheck/internal/load"
	"github.com/leavecheck/leavecheck/internal/lsl"
	"github.com/leavecheck/leavecheck/internal/model"
	"github.com/leavecheck/leavecheck/internal/recon"
	"github.com/leavecheck/leavecheck/internal/report"
	"github.com/leavecheck/leavecheck/internal/rules"
)

// Module identifiers used in combined outputs and the Markdown report.
const (
	ModuleLeakage = "leave_leakage"
	ModuleLSL     = "lsl_exposure"
)

// Runner executes audit runs.
type Runner struct {
	Logger *slog.Logger
	clock  func() time.Time
}

// NewRunner initialises a runner with the given logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Result summarises a completed run.
type Result struct {
	RunID        string
	Leakage      []finding.Finding
	LSL          []finding.Finding
	Recon        []recon.Row
	ExposureLow  decimal.Decimal
	ExposureHigh decimal.Decimal
	Outputs      []string
	Duration     time.Duration
}

// TotalFindings returns the finding count across both checks.
func (r *Result) TotalFindings() int {
	return len(r.Leakage) + len(r.LSL)
}

// HighSeverityCount returns the number of HIGH findings across both checks.
func (r *Result) HighSeverityCount() int {
	n := 0
	for _, f := range r.Leakage {
		if f.Severity == finding.SeverityHigh {
			n++
		}
	}
	for _, f := range r.LSL {
		if f.Severity == finding.SeverityHigh {
			n++
		}
	}
	return n
}

// Run executes the whole audit. Load errors are fatal and produce no output
// files; every output is rendered in memory first so a failing run never
// leaves partial files behind.
func (r *Runner) Run(ctx context.Context, cfg *app.Config) (*Result, error) {
	start := r.now()
	runID := uuid.NewString()
	logger := r.logger().With(slog.String("run_id", runID))

	logger.Info("starting audit run",
		slog.String("data_dir", cfg.DataDir),
		slog.String("out_dir", cfg.OutDir),
		slog.String("tolerance_units", cfg.ToleranceUnits.String()),
	)

	employees, err := load.Employees(filepath.Join(cfg.DataDir, load.SourceEmployees))
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	events, err := load.Ledger(filepath.Join(cfg.DataDir, load.SourceLedger))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	snapshots, err := load.Snapshots(filepath.Join(cfg.DataDir, load.SourceSnapshot))
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	rates, err := load.PayRates(filepath.Join(cfg.DataDir, load.SourcePayRates))
	if err != nil {
		return nil, fmt.Errorf("load pay rates: %w", err)
	}
	logger.Info("extracts loaded",
		slog.Int("employees", len(employees)),
		slog.Int("ledger_events", len(events)),
		slog.Int("snapshot_rows", len(snapshots)),
		slog.Int("pay_rate_rows", len(rates)),
	)

	screened := rules.Screen(employees, events, snapshots)
	if n := len(screened.DataQuality); n > 0 {
		logger.Warn("data-quality conditions observed", slog.Int("conditions", n))
	}

	cutoffs := make(map[model.Key]time.Time, len(screened.Snapshots))
	for _, snap := range screened.Snapshots {
		cutoffs[snap.Key()] = snap.AsOfDate
	}
	aggregates := ledger.Build(screened.Ledger, cutoffs)
	reconRows := recon.Reconcile(aggregates, screened.Snapshots, cfg.ToleranceUnits)

	violations := rules.EvaluateAll(rules.Inputs{
		Employees: screened.Employees,
		Ledger:    screened.Ledger,
		Snapshots: screened.Snapshots,
		Recon:     reconRows,
		Tolerance: cfg.ToleranceUnits,
	})
	violations = append(violations, screened.DataQuality...)
	leakage := finding.Build(violations)

	snapshotDate := latestAsOf(snapshots)
	states := lsl.BuildState(employees, screened.Snapshots, rates, snapshotDate)
	params := lsl.Params{
		EligibilityYears: cfg.LSLEligibilityYears,
		FullYears:        cfg.LSLFullYears,
		HoursPerDay:      cfg.LSLHoursPerDay,
		LowFloorUnits:    cfg.LSLLowFloorUnits,
	}
	lslFindings := finding.Build(lsl.EvaluateAll(states, params))
	exposureLow, exposureHigh := lsl.ExposureBand(states, params)

	result := &Result{
		RunID:        runID,
		Leakage:      leakage,
		LSL:          lslFindings,
		Recon:        reconRows,
		ExposureLow:  exposureLow,
		ExposureHigh: exposureHigh,
	}

	outputs, err := r.renderOutputs(cfg, result)
	if err != nil {
		return nil, err
	}
	if err := writeOutputs(ctx, cfg.OutDir, outputs); err != nil {
		return nil, err
	}
	for path := range outputs {
		result.Outputs = append(result.Outputs, path)
	}
	sort.Strings(result.Outputs)
	result.Duration = time.Since(start)

	logger.Info("completed audit run",
		slog.Int("leakage_findings", len(leakage)),
		slog.Int("lsl_findings", len(lslFindings)),
		slog.Int("reconciliation_rows", len(reconRows)),
		slog.Int("high_severity", result.HighSeverityCount()),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func latestAsOf(snapshots []model.SnapshotBalance) time.Time {
	var latest time.Time
	for _, snap := range snapshots {
		if snap.AsOfDate.After(latest) {
			latest = snap.AsOfDate
		}
	}
	return latest
}

func (r *Runner) modules(result *Result) []report.ModuleFindings {
	return []report.ModuleFindings{
		{Name: ModuleLeakage, Title: "Leave Leakage (Ledger vs Snapshot)", Findings: result.Leakage},
		{Name: ModuleLSL, Title: "Long Service Leave (LSL) Exposure", Findings: result.LSL},
	}
}

// renderOutputs builds every output file in memory, keyed by path relative to
// the output directory.
func (r *Runner) renderOutputs(cfg *app.Config, result *Result) (map[string][]byte, error) {
	modules := r.modules(result)
	outputs := make(map[string][]byte)

	render := func(path string, write func(buf *bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := write(&buf); err != nil {
			return fmt.Errorf("render %s: %w", path, err)
		}
		outputs[path] = buf.Bytes()
		return nil
	}

	steps := []struct {
		path  string
		write func(buf *bytes.Buffer) error
	}{
		{"findings.csv", func(buf *bytes.Buffer) error { return report.WriteFindings(buf, result.Leakage) }},
		{"summary.csv", func(buf *bytes.Buffer) error {
			return report.WriteRuleSummary(buf, finding.SummarizeByRule(result.Leakage))
		}},
		{"summary_by_severity.csv", func(buf *bytes.Buffer) error {
			return report.WriteSeveritySummary(buf, finding.SummarizeBySeverity(result.Leakage))
		}},
		{"leakage_report.csv", func(buf *bytes.Buffer) error { return report.WriteLeakage(buf, result.Recon) }},
		{filepath.Join("modules", "lsl_findings.csv"), func(buf *bytes.Buffer) error {
			return report.WriteFindings(buf, result.LSL)
		}},
		{filepath.Join("modules", "lsl_summary.csv"), func(buf *bytes.Buffer) error {
			return report.WriteRuleSummary(buf, finding.SummarizeByRule(result.LSL))
		}},
		{filepath.Join("modules", "lsl_summary_by_severity.csv"), func(buf *bytes.Buffer) error {
			return report.WriteSeveritySummary(buf, finding.SummarizeBySeverity(result.LSL))
		}},
		{filepath.Join("modules", "lsl_exposure_summary.csv"), func(buf *bytes.Buffer) error {
			return report.WriteExposure(buf, result.ExposureLow, result.ExposureHigh, cfg.Currency)
		}},
		{"combined_findings.csv", func(buf *bytes.Buffer) error { return report.WriteCombined(buf, modules) }},
		{"report.md", func(buf *bytes.Buffer) error { return report.WriteMarkdown(buf, modules, r.now()) }},
		{"findings.xlsx", func(buf *bytes.Buffer) error { return report.WriteWorkbook(buf, modules, result.Recon) }},
	}
	for _, step := range steps {
		if err := render(step.path, step.write); err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

func writeOutputs(ctx context.Context, outDir string, outputs map[string][]byte) error {
	if err := os.MkdirAll(filepath.Join(outDir, "modules"), 0o755); err != nil {
		return err
	}
	g, _ := errgroup.WithContext(ctx)
	for path, content := range outputs {
		path, content := path, content
		g.Go(func() error {
			if err := os.WriteFile(filepath.Join(outDir, path), content, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
