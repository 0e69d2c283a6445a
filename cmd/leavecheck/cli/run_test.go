package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSampleData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"employees.csv": "employee_id,employment_type,fte,start_date\n" +
			"E1,CASUAL,,2023-01-01\n",
		"leave_ledger.csv": "employee_id,leave_type,event_date,units,event_type\n" +
			"E1,ANNUAL,2023-06-01,8,ACCRUAL\n",
		"balances_snapshot.csv": "employee_id,leave_type,as_of_date,balance_units\n" +
			"E1,ANNUAL,2023-06-30,8\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestRunCommandJSON(t *testing.T) {
	dataDir := writeSampleData(t)
	outDir := filepath.Join(t.TempDir(), "outputs")

	var stdout, stderr bytes.Buffer
	code := RunCommand(context.Background(), RunOptions{
		DataDir:    dataDir,
		OutDir:     outDir,
		JSONOutput: true,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	// The casual accrual is a HIGH finding.
	require.Equal(t, exitHighFindings, code, stderr.String())

	var summary RunSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, 1, summary.LeakageFindings)
	require.NotEmpty(t, summary.RunID)
	require.Contains(t, summary.Outputs, "findings.csv")
}

func TestRunCommandHuman(t *testing.T) {
	dataDir := writeSampleData(t)
	outDir := filepath.Join(t.TempDir(), "outputs")

	var stdout, stderr bytes.Buffer
	code := RunCommand(context.Background(), RunOptions{
		DataDir: dataDir,
		OutDir:  outDir,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	require.Equal(t, exitHighFindings, code, stderr.String())
	require.Contains(t, stdout.String(), "Leave leakage findings: 1")
	require.Contains(t, stdout.String(), "findings.csv")
}

func TestRunCommandBadData(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := RunCommand(context.Background(), RunOptions{
		DataDir: filepath.Join(t.TempDir(), "missing"),
		OutDir:  filepath.Join(t.TempDir(), "outputs"),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "run:")
}

func TestParseTolerance(t *testing.T) {
	tolerance, err := parseTolerance("0.25")
	require.NoError(t, err)
	require.Equal(t, "0.25", tolerance.String())

	_, err = parseTolerance("abc")
	require.Error(t, err)

	_, err = parseTolerance("-1")
	require.Error(t, err)
}
