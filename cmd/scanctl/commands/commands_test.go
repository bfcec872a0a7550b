package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohamedkhairy/fire-scanner/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	root.AddCommand(newScanCmd(), newRulesCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRulesCheck_Valid(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
version: "7"
thresholds:
  elite: 92
  min_volume: 500
badges:
  hot:
    min_score: 70
    freshness: fresh
`)

	out, err := execute(t, "rules", "check", path)
	require.NoError(t, err)

	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "version:   7")
	assert.Contains(t, out, "elite:     > 92")
	assert.Contains(t, out, "high:      > 75")
	assert.Contains(t, out, "badge hot: score >= 70, freshness fresh")
	assert.Contains(t, out, "threshold min_volume = 500")
}

func TestRulesCheck_RejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "rules.yaml", "weights:\n  momentum: 1\nthreshholds:\n  elite: 80\n")

	_, err := execute(t, "rules", "check", path)
	assert.Error(t, err)
}

func TestRulesCheck_MissingFile(t *testing.T) {
	_, err := execute(t, "rules", "check", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "rules", "check")
	assert.Error(t, err, "path argument is required")
}

func TestScan_SimulatedSources(t *testing.T) {
	t.Setenv("PRIMARY_SOURCE_TYPE", "mock")
	t.Setenv("SECONDARY_SOURCE_TYPE", "mock")
	t.Setenv("PRIMARY_EMPTY_VENUES", "quiet")
	t.Setenv("SCORING_RULES_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	out, err := execute(t, "scan", "--venue", "quiet", "--timeframe", "1d", "--limit", "7")
	require.NoError(t, err)

	var resp api.ScanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "quiet", resp.Venue)
	assert.Equal(t, "1d", resp.Timeframe.String())
	assert.Equal(t, 7, resp.Count)
	require.Len(t, resp.Results, 7)
	assert.Contains(t, resp.Results[0].Symbol, "SYMR")
}

func TestScan_InvalidArguments(t *testing.T) {
	_, err := execute(t, "scan", "--venue", "X", "--timeframe", "2h")
	assert.Error(t, err)

	_, err = execute(t, "scan")
	assert.Error(t, err, "venue is required")
}
