package finding

import "sort"

// RuleCount is one row of the per-rule summary.
type RuleCount struct {
	Rule     RuleCode
	Severity Severity
	Count    int
}

// SeverityCount is one row of the per-severity summary.
type SeverityCount struct {
	Severity Severity
	Count    int
}

// SummarizeByRule counts findings grouped by (rule, severity), ordered by
// severity rank then descending count then rule code.
func SummarizeByRule(findings []Finding) []RuleCount {
	type group struct {
		rule     RuleCode
		severity Severity
	}
	counts := make(map[group]int)
	for _, f := range findings {
		counts[group{rule: f.Rule, severity: f.Severity}]++
	}
	out := make([]RuleCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, RuleCount{Rule: g.rule, Severity: g.severity, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// SummarizeBySeverity counts findings per severity, ordered by descending
// count then severity rank.
func SummarizeBySeverity(findings []Finding) []SeverityCount {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	out := make([]SeverityCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, SeverityCount{Severity: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}
