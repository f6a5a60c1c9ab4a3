package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

// CLI runs stablectl against a memory file in a temp directory.
type CLI struct {
	t    *testing.T
	Dir  string
	Path string
}

// NewCLI creates a new test CLI with a temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{t: t, Dir: dir, Path: filepath.Join(dir, "data.mem")}
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "stablectl"; it is added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput(nil, args...)
}

// RunWithInput executes the CLI reading interactive commands from stdin.
func (r *CLI) RunWithInput(stdin io.Reader, args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"stablectl"}, args...)
	code := Run(stdin, &outBuf, &errBuf, fullArgs, nil)

	return outBuf.String(), errBuf.String(), code
}

// Exec runs script against the test memory file. flags go before the file.
func (r *CLI) Exec(script string, flags ...string) (string, string, int) {
	args := append(append([]string{}, flags...), "-e", script, r.Path)

	return r.Run(args...)
}

// MustExec runs script and fails the test if it returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustExec(script string, flags ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Exec(script, flags...)
	if code != 0 {
		r.t.Fatalf("script %q failed with exit code %d\nstderr: %s", script, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail runs script and fails the test if it succeeds.
// Returns trimmed stderr.
func (r *CLI) MustFail(script string, flags ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Exec(script, flags...)
	if code == 0 {
		r.t.Fatalf("script %q should have failed but succeeded\nstdout: %s", script, stdout)
	}

	return strings.TrimSpace(stderr)
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
