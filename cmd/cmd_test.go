package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	data, err := filepath.Abs("../app/testdata")
	require.NoError(t, err)
	dir := t.TempDir()
	conf := fmt.Sprintf(`scheduler:
  buffer_time_seconds: 1
scenario:
  lsp: %[1]s/lsp.yaml
  vehicle_types: %[1]s/vehicle_types.yaml
  network: %[1]s/network.json
plan_store:
  type: jsonl
  path: plans.jsonl
logging:
  level: warn
`, data)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))
	return path, dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, Execute())
	return out.String()
}

func TestOrderCommand(t *testing.T) {
	path, _ := writeTestConfig(t)
	out := run(t, "--config", path, "--env-file", "absent.env", "order")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "hubA")
	assert.Contains(t, lines[2], "mainrun")
}

func TestScheduleCommandWritesCSV(t *testing.T) {
	path, dir := writeTestConfig(t)
	target := filepath.Join(dir, "plan.csv")
	run(t, "--config", path, "--env-file", "absent.env", "schedule", "--output", target, "--format", "csv")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "shipment_id,resource_id,element_id,kind"))

	archived, err := os.ReadFile(filepath.Join(dir, "plans.jsonl"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.SplitN(archived, []byte("\n"), 2)[0], &rec))
	assert.Equal(t, "regional", rec["lsp"])
}

func TestScheduleCommandRejectsFormat(t *testing.T) {
	path, _ := writeTestConfig(t)
	rootCmd.SetArgs([]string{"--config", path, "--env-file", "absent.env", "schedule", "--format", "xml"})
	assert.Error(t, Execute())
	outputFormat = ""
}
