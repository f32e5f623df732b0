package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStagedCommands(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "a\na\nb\nc\nc\nc\n")
	chunks := filepath.Join(dir, "chunks")
	quiet := "--log-level=error"

	code, out, errOut := runCLI(t, "split", "--input", input, "--chunk-bytes", "4", "--out-dir", chunks, quiet)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Split into 3 chunks")

	code, out, errOut = runCLI(t, "sort-chunks", "--dir", chunks, "--workers", "2", quiet)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Sorted 3 chunks")

	merged := filepath.Join(dir, "merged.txt")
	code, _, errOut = runCLI(t, "merge", "--dir", chunks, "--out", merged, quiet)
	require.Equal(t, exitOK, code, errOut)
	data, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Equal(t, "a\na\nb\nc\nc\nc\n", string(data))

	result := filepath.Join(dir, "top.tsv")
	db := filepath.Join(dir, "runs.db")
	code, out, errOut = runCLI(t, "merge-topk", "--dir", chunks, "--k", "2", "--out", result, "--db", db, quiet)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Saved as run #1")
	data, err = os.ReadFile(result)
	require.NoError(t, err)
	assert.Equal(t, "c\t3\na\t2\n", string(data))

	code, out, errOut = runCLI(t, "history", "--db", db)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Run #1")
	assert.Contains(t, out, "c\t3")
}

func TestRunCommandPrintsToStdout(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "x\ny\ny\nz\nz\nz\n")

	code, out, errOut := runCLI(t, "run", "--input", input, "--dir", filepath.Join(dir, "chunks"), "--chunk-bytes", "4", "--k", "1", "--log-level=error")
	require.Equal(t, exitOK, code, errOut)
	assert.Equal(t, "z\t3", strings.TrimSpace(out))
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "a\n")

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"no command", nil, exitConfig},
		{"unknown command", []string{"shuffle"}, exitConfig},
		{"zero k", []string{"merge-topk", "--dir", dir, "--k", "0"}, exitConfig},
		{"negative k", []string{"run", "--input", input, "--k", "-2"}, exitConfig},
		{"zero chunk bytes", []string{"split", "--input", input, "--out-dir", dir, "--chunk-bytes", "0"}, exitConfig},
		{"bad order", []string{"merge", "--dir", dir, "--out", "x", "--order", "random"}, exitConfig},
		{"missing flag", []string{"split", "--input", input}, exitConfig},
		{"unknown flag", []string{"sort-chunks", "--dir", dir, "--bogus"}, exitConfig},
		{"missing config", []string{"sort-chunks", "--dir", dir, "--config", filepath.Join(dir, "nope.yaml")}, exitConfig},
		{"missing input", []string{"split", "--input", filepath.Join(dir, "nope.txt"), "--out-dir", dir, "--log-level=error"}, exitFatal},
		{"help", []string{"help"}, exitOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tc.args...)
			assert.Equal(t, tc.want, code)
		})
	}
}
