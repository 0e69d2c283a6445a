package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/leavecheck/leavecheck/internal/finding"
)

const exampleRowsPerRule = 3

// WriteMarkdown renders the human-readable report over all modules. Findings
// are already in canonical order per module; the report groups them by rule
// and shows a few example rows each, highest severity first.
func WriteMarkdown(w io.Writer, modules []ModuleFindings, generatedAt time.Time) error {
	var b strings.Builder
	b.WriteString("# Payroll Compliance Findings Report\n\n")
	fmt.Fprintf(&b, "_Generated: %s_\n\n", generatedAt.Format("2006-01-02 15:04"))

	total := 0
	bySeverity := make(map[finding.Severity]int)
	for _, module := range modules {
		total += len(module.Findings)
		for _, f := range module.Findings {
			bySeverity[f.Severity]++
		}
	}
	if total == 0 {
		b.WriteString("No findings were produced for this run.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "Total findings: **%s**\n\n", formatCount(total))
	b.WriteString("| Severity | Findings |\n|---|---|\n")
	for _, severity := range []finding.Severity{finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow} {
		if n, ok := bySeverity[severity]; ok {
			fmt.Fprintf(&b, "| %s | %s |\n", severity, formatCount(n))
		}
	}
	b.WriteString("\n")

	for _, module := range modules {
		if len(module.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", module.Title)
		writeModuleSection(&b, module.Findings)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeModuleSection(b *strings.Builder, findings []finding.Finding) {
	counts := finding.SummarizeByRule(findings)
	b.WriteString("| Rule | Severity | Findings |\n|---|---|---|\n")
	for _, c := range counts {
		fmt.Fprintf(b, "| %s | %s | %s |\n", c.Rule, c.Severity, formatCount(c.Count))
	}
	b.WriteString("\n")

	byRule := make(map[finding.RuleCode][]finding.Finding)
	for _, f := range findings {
		byRule[f.Rule] = append(byRule[f.Rule], f)
	}
	rulesInOrder := make([]finding.RuleCode, 0, len(byRule))
	for _, c := range counts {
		rulesInOrder = append(rulesInOrder, c.Rule)
	}

	for _, rule := range rulesInOrder {
		examples := byRule[rule]
		sort.SliceStable(examples, func(i, j int) bool {
			if examples[i].Severity.Rank() != examples[j].Severity.Rank() {
				return examples[i].Severity.Rank() < examples[j].Severity.Rank()
			}
			if examples[i].EmployeeID != examples[j].EmployeeID {
				return examples[i].EmployeeID < examples[j].EmployeeID
			}
			return examples[i].LeaveType < examples[j].LeaveType
		})
		fmt.Fprintf(b, "### %s\n\n", rule)
		limit := len(examples)
		if limit > exampleRowsPerRule {
			limit = exampleRowsPerRule
		}
		for _, f := range examples[:limit] {
			fmt.Fprintf(b, "- `%s` %s / %s (%s): %s\n", f.FindingID, f.EmployeeID, f.LeaveType, f.AsOfDate, f.Message)
		}
		if len(examples) > limit {
			fmt.Fprintf(b, "- ... and %s more\n", formatCount(len(examples)-limit))
		}
		b.WriteString("\n")
	}
}
