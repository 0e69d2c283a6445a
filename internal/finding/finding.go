// Package finding defines the canonical finding record produced for every
// rule violation, with identifiers that are stable across runs and machines.
package finding

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Severity ranks how urgently a finding needs review.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank orders severities HIGH before MEDIUM before LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 99
}

// RuleCode identifies the rule that produced a finding.
type RuleCode string

// Evidence is the structured payload reviewers audit alongside the message.
// It is JSON-encoded in findings.csv; encoding/json emits map keys in sorted
// order, so the encoding is deterministic.
type Evidence struct {
	Sources     []string          `json:"sources"`
	PrimaryKeys map[string]string `json:"primary_keys"`
	Values      map[string]string `json:"values,omitempty"`
	Thresholds  map[string]string `json:"thresholds,omitempty"`
	Explanation string            `json:"explanation"`
}

// JSON renders the evidence payload for tabular output.
func (e Evidence) JSON() string {
	raw, err := json.Marshal(e)
	if err != nil {
		// Evidence is built from plain strings; Marshal cannot fail on it.
		return fmt.Sprintf(`{"explanation":%q}`, e.Explanation)
	}
	return string(raw)
}

// Violation is a single rule trigger, carrying everything the builder needs
// so evidence is never re-derived downstream.
type Violation struct {
	Rule       RuleCode
	Severity   Severity
	EmployeeID string
	LeaveType  string
	// AsOfDate is the date that anchors the violation: the snapshot
	// as_of_date for balance rules, the event_date for ledger rules.
	AsOfDate   string
	Message    string
	DiffUnits  decimal.NullDecimal
	Evidence   Evidence
	NextAction string
}

// Finding is a violation with its deterministic identity assigned.
type Finding struct {
	FindingID  string
	Rule       RuleCode
	Severity   Severity
	EmployeeID string
	LeaveType  string
	AsOfDate   string
	Message    string
	DiffUnits  decimal.NullDecimal
	Evidence   Evidence
	NextAction string
}

// ID derives the finding identifier from the rule code and the evidence
// primary keys alone: no wall clock, no row order, no object identity. The
// canonical form is "RULE|k=v|k=v" with key names sorted, hashed with SHA-1
// and truncated to 12 hex characters.
func ID(rule RuleCode, primaryKeys map[string]string) string {
	parts := []string{string(rule)}
	keys := make([]string, 0, len(primaryKeys))
	for k := range primaryKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+primaryKeys[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:12]
}

// Build assigns identifiers and returns findings in the canonical order:
// rule code, then primary keys, then anchoring date. Identical inputs yield
// identical output, byte for byte.
func Build(violations []Violation) []Finding {
	findings := make([]Finding, 0, len(violations))
	for _, v := range violations {
		findings = append(findings, Finding{
			FindingID:  ID(v.Rule, v.Evidence.PrimaryKeys),
			Rule:       v.Rule,
			Severity:   v.Severity,
			EmployeeID: v.EmployeeID,
			LeaveType:  v.LeaveType,
			AsOfDate:   v.AsOfDate,
			Message:    v.Message,
			DiffUnits:  v.DiffUnits,
			Evidence:   v.Evidence,
			NextAction: v.NextAction,
		})
	}
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.LeaveType != b.LeaveType {
			return a.LeaveType < b.LeaveType
		}
		if a.AsOfDate != b.AsOfDate {
			return a.AsOfDate < b.AsOfDate
		}
		return a.FindingID < b.FindingID
	})
	return findings
}
