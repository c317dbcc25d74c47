package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingInputIsArgumentError(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	assert.Error(t, err)
}

func TestRun_EndToEndFlowShopMakespan(t *testing.T) {
	dir := t.TempDir()
	instancePath := filepath.Join(dir, "instance.txt")
	require.NoError(t, os.WriteFile(instancePath, []byte("3 2\n3 1 2\n2 4 1\n"), 0o644))
	outputPath := filepath.Join(dir, "output.json")

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--input", instancePath,
		"--format", "flow-shop",
		"--algorithm", "tree-search-pfss-makespan",
		"--permutation",
		"--output", outputPath,
		"--time-limit", "200ms",
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "output")
}

func TestRun_MILPWithoutSolverWritesCertificateAndReportsUnavailable(t *testing.T) {
	dir := t.TempDir()
	instancePath := filepath.Join(dir, "instance.txt")
	require.NoError(t, os.WriteFile(instancePath, []byte("3 2\n3 1 2\n2 4 1\n"), 0o644))
	certPath := filepath.Join(dir, "model.mps")

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--input", instancePath,
		"--format", "flow-shop",
		"--algorithm", "milp-disjunctive",
		"--permutation",
		"--certificate", certPath,
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	assert.Error(t, cmd.Execute())

	data, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ROWS")
}

func TestRun_MILPUnknownSolverNameIsRejected(t *testing.T) {
	dir := t.TempDir()
	instancePath := filepath.Join(dir, "instance.txt")
	require.NoError(t, os.WriteFile(instancePath, []byte("3 2\n3 1 2\n2 4 1\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--input", instancePath,
		"--format", "flow-shop",
		"--algorithm", "milp-disjunctive",
		"--permutation",
		"--solver", "not-a-real-solver",
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	assert.Error(t, cmd.Execute())
}

func TestRun_MILPSolverNotOnPathIsRejected(t *testing.T) {
	dir := t.TempDir()
	instancePath := filepath.Join(dir, "instance.txt")
	require.NoError(t, os.WriteFile(instancePath, []byte("3 2\n3 1 2\n2 4 1\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"--input", instancePath,
		"--format", "flow-shop",
		"--algorithm", "milp-disjunctive",
		"--permutation",
		"--solver", "Cbc",
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	// Cbc is almost never installed in a CI/test sandbox; this exercises
	// the exec.LookPath-failure path of runMILP (ErrInvalidConfig), not a
	// successful solver run.
	assert.Error(t, cmd.Execute())
}

func TestRun_UnknownAlgorithmIsRejected(t *testing.T) {
	dir := t.TempDir()
	instancePath := filepath.Join(dir, "instance.txt")
	require.NoError(t, os.WriteFile(instancePath, []byte("3 2\n3 1 2\n2 4 1\n"), 0o644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--input", instancePath, "--format", "flow-shop", "--algorithm", "nonexistent"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	assert.Error(t, cmd.Execute())
}
