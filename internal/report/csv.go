// Package report serializes the audit outputs: the tabular CSV files, the
// human-readable Markdown report, and the review workbook.
package report

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/recon"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	return &csvStreamer{buf: buf, csv: csv.NewWriter(buf), flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// ModuleFindings is one compliance module's contribution to the combined
// outputs.
type ModuleFindings struct {
	// Name is the machine key written to the source_module column.
	Name string
	// Title is the heading used in the Markdown report.
	Title    string
	Findings []finding.Finding
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// WriteFindings writes findings.csv. A run with zero findings still writes
// the header row.
func WriteFindings(w io.Writer, findings []finding.Finding) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{"finding_id", "rule_code", "severity", "message", "diff_units", "evidence", "next_action"}); err != nil {
		return err
	}
	for _, f := range findings {
		row := []string{
			f.FindingID,
			string(f.Rule),
			string(f.Severity),
			f.Message,
			nullDecimalString(f.DiffUnits),
			f.Evidence.JSON(),
			f.NextAction,
		}
		if err := s.writeRow(row); err != nil {
			return err
		}
	}
	return s.flush()
}

// WriteCombined writes the cross-module findings file with a source_module
// column, in module order then canonical finding order.
func WriteCombined(w io.Writer, modules []ModuleFindings) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{"source_module", "finding_id", "rule_code", "severity", "message", "diff_units", "evidence", "next_action"}); err != nil {
		return err
	}
	for _, module := range modules {
		for _, f := range module.Findings {
			row := []string{
				module.Name,
				f.FindingID,
				string(f.Rule),
				string(f.Severity),
				f.Message,
				nullDecimalString(f.DiffUnits),
				f.Evidence.JSON(),
				f.NextAction,
			}
			if err := s.writeRow(row); err != nil {
				return err
			}
		}
	}
	return s.flush()
}

// WriteRuleSummary writes counts grouped by (rule_code, severity).
func WriteRuleSummary(w io.Writer, counts []finding.RuleCount) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{"rule_code", "severity", "finding_count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := s.writeRow([]string{string(c.Rule), string(c.Severity), strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	return s.flush()
}

// WriteSeveritySummary writes counts grouped by severity.
func WriteSeveritySummary(w io.Writer, counts []finding.SeverityCount) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{"severity", "finding_count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := s.writeRow([]string{string(c.Severity), strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	return s.flush()
}

// WriteLeakage writes one row per reconciliation row, in reconciler order.
func WriteLeakage(w io.Writer, rows []recon.Row) error {
	s := newCSVStreamer(w)
	header := []string{
		"employee_id", "leave_type", "as_of_date",
		"derived_balance", "balance_units", "diff_units", "event_count",
		"within_tolerance", "risk_flag", "risk_reason",
	}
	if err := s.writeRow(header); err != nil {
		return err
	}
	for _, row := range rows {
		asOf := ""
		if row.HasSnapshot {
			asOf = row.AsOfDate.Format("2006-01-02")
		}
		record := []string{
			row.Key.EmployeeID,
			row.Key.LeaveType,
			asOf,
			row.DerivedBalance.StringFixed(2),
			row.BalanceUnits.StringFixed(2),
			row.DiffUnits.StringFixed(2),
			strconv.Itoa(row.EventCount),
			strconv.FormatBool(row.WithinTolerance),
			strconv.FormatBool(row.RiskFlag),
			row.RiskReason,
		}
		if err := s.writeRow(record); err != nil {
			return err
		}
	}
	return s.flush()
}

// WriteExposure writes the indicative LSL exposure band.
func WriteExposure(w io.Writer, low, high decimal.Decimal, currency string) error {
	s := newCSVStreamer(w)
	if err := s.writeRow([]string{"metric", "value", "currency"}); err != nil {
		return err
	}
	rows := [][]string{
		{"estimated_exposure_low", low.StringFixed(2), currency},
		{"estimated_exposure_high", high.StringFixed(2), currency},
		{"note", "Indicative-only estimate based on heuristics, not statutory entitlement calculations.", ""},
	}
	for _, row := range rows {
		if err := s.writeRow(row); err != nil {
			return err
		}
	}
	return s.flush()
}

// formatCount renders counts for the Markdown report with thousands
// separators.
func formatCount(n int) string {
	raw := strconv.Itoa(n)
	if len(raw) <= 3 {
		return raw
	}
	var out []byte
	for i, digit := range []byte(raw) {
		if i > 0 && (len(raw)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digit)
	}
	return string(out)
}
