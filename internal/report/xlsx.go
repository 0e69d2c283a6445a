package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/recon"
)

// WriteWorkbook renders the review workbook: every finding across modules on
// one sheet, summaries on a second, the reconciliation rows on a third.
func WriteWorkbook(w io.Writer, modules []ModuleFindings, rows []recon.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	const findingsSheet = "Findings"
	f.SetSheetName("Sheet1", findingsSheet)

	headers := []string{"source_module", "finding_id", "rule_code", "severity", "employee_id", "leave_type", "as_of_date", "message", "diff_units", "next_action"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(findingsSheet, cell, h); err != nil {
			return err
		}
	}
	rowNo := 2
	for _, module := range modules {
		for _, fd := range module.Findings {
			values := []interface{}{
				module.Name,
				fd.FindingID,
				string(fd.Rule),
				string(fd.Severity),
				fd.EmployeeID,
				fd.LeaveType,
				fd.AsOfDate,
				fd.Message,
				nullDecimalString(fd.DiffUnits),
				fd.NextAction,
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNo)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(findingsSheet, cell, &values); err != nil {
				return err
			}
			rowNo++
		}
	}

	if err := writeSummarySheet(f, modules); err != nil {
		return err
	}
	if err := writeLeakageSheet(f, rows); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func writeSummarySheet(f *excelize.File, modules []ModuleFindings) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"source_module", "rule_code", "severity", "finding_count"}); err != nil {
		return err
	}
	rowNo := 2
	for _, module := range modules {
		for _, c := range finding.SummarizeByRule(module.Findings) {
			cell := fmt.Sprintf("A%d", rowNo)
			values := []interface{}{module.Name, string(c.Rule), string(c.Severity), c.Count}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return err
			}
			rowNo++
		}
	}
	return nil
}

func writeLeakageSheet(f *excelize.File, rows []recon.Row) error {
	const sheet = "Leakage"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []interface{}{"employee_id", "leave_type", "as_of_date", "derived_balance", "balance_units", "diff_units", "event_count", "risk_flag", "risk_reason"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	for i, row := range rows {
		asOf := ""
		if row.HasSnapshot {
			asOf = row.AsOfDate.Format("2006-01-02")
		}
		values := []interface{}{
			row.Key.EmployeeID,
			row.Key.LeaveType,
			asOf,
			row.DerivedBalance.StringFixed(2),
			row.BalanceUnits.StringFixed(2),
			row.DiffUnits.StringFixed(2),
			row.EventCount,
			row.RiskFlag,
			row.RiskReason,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	return nil
}
