package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfielding/sketchcheck/verify"
)

const (
	clientServer = "../../examples/instances/client-server.yaml"
	countdown    = "../../examples/instances/countdown.yaml"
	awaitReply   = "../../examples/sketches/client-server.yaml"
	naive        = "../../examples/sketches/client-server-naive.yaml"
	countdownSk  = "../../examples/sketches/countdown.yaml"
	countdownTxt = "../../examples/sketches/countdown.rules"
)

// workspace runs commands against one private config and database.
type workspace struct {
	t   *testing.T
	cfg string
	db  string
}

func newWorkspace(t *testing.T) *workspace {
	dir := t.TempDir()
	return &workspace{
		t:   t,
		cfg: filepath.Join(dir, "absent.yaml"),
		db:  filepath.Join(dir, "verdicts.db"),
	}
}

func (w *workspace) run(args ...string) (string, error) {
	w.t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", w.cfg, "--db", w.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVerifyPassingSketch(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("verify", "-i", clientServer, "-s", awaitReply)
	require.NoError(t, err, out)
	assert.Contains(t, out, "client-server: 2 rules, 2 grounded, 6 states: PASS")
	assert.Contains(t, out, "progress")
	assert.Contains(t, out, "safety")
}

func TestVerifyFailingSketch(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("verify", "-i", clientServer, "-s", naive)
	assert.ErrorIs(t, err, errSketchFailed)
	assert.Contains(t, out, "FAIL: law safety: got false, want true")
}

// fakeNuSMV writes a checker script that logs each query line to the
// returned file and answers true.
func fakeNuSMV(t *testing.T) (checker, queries string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake checker needs /bin/sh")
	}
	dir := t.TempDir()
	checker = filepath.Join(dir, "nusmv")
	queries = filepath.Join(dir, "queries.log")
	script := "#!/bin/sh\nfor a in \"$@\"; do file=\"$a\"; done\n" +
		"grep -E '^(CTL|LTL)SPEC' \"$file\" >> '" + queries + "'\n" +
		"echo '-- specification law is true'\n"
	require.NoError(t, os.WriteFile(checker, []byte(script), 0o755))
	return checker, queries
}

func TestVerifyNuSMVChecksEveryDefaultLaw(t *testing.T) {
	checker, queries := fakeNuSMV(t)
	t.Setenv("SKETCHCHECK_NUSMV", checker)
	w := newWorkspace(t)

	out, err := w.run("verify", "-i", clientServer, "-s", awaitReply, "--oracle", "nusmv")
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "liveness")

	data, err := os.ReadFile(queries)
	require.NoError(t, err)
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		names = append(names, strings.Fields(line)[2])
	}
	assert.Equal(t, []string{"progress", "safety", "liveness"}, names)
	assert.Contains(t, string(data), "LTLSPEC NAME liveness :=")

	// The in-process oracle keeps the laws it can decide.
	out, err = w.run("verify", "-i", clientServer, "-s", awaitReply, "--format", "json")
	require.NoError(t, err, out)
	var r verify.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Laws, 2)
	assert.Equal(t, "progress", r.Laws[0].Law)
	assert.Equal(t, "safety", r.Laws[1].Law)
}

func TestVerifyFormats(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run("verify", "-i", countdown, "-s", countdownSk, "--format", "json")
	require.NoError(t, err, out)
	var r verify.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.True(t, r.Passed)
	assert.Equal(t, 3, r.GroundRules)
	assert.Len(t, r.Laws, 2)

	out, err = w.run("verify", "-i", countdown, "-s", countdownTxt, "--format", "markdown")
	require.NoError(t, err, out)
	assert.Contains(t, out, "| progress | CTL |")

	_, err = w.run("verify", "-i", countdown, "-s", countdownSk, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestVerifyRejectsBadOptions(t *testing.T) {
	w := newWorkspace(t)

	_, err := w.run("verify", "-i", countdown, "-s", countdownSk, "--oracle", "spin")
	assert.ErrorContains(t, err, "invalid oracle")

	_, err = w.run("verify", "-i", countdown, "-s", countdownSk, "--laws", "fairness")
	assert.ErrorContains(t, err, "unknown law")

	_, err = w.run("verify", "-i", countdown, "-s", countdownSk, "--laws", "liveness")
	assert.ErrorContains(t, err, "liveness", "the in-process oracle cannot decide LTL")

	_, err = w.run("verify", "-i", "no-such-instance", "-s", countdownSk)
	assert.ErrorContains(t, err, "no-such-instance")

	_, err = w.run("verify", "-s", countdownSk)
	assert.ErrorContains(t, err, "required flag")
}

func TestStoredInputsAndHistory(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "no verdicts recorded")

	_, err = w.run("verify", "-i", clientServer, "-s", awaitReply, "--save")
	require.NoError(t, err)
	_, err = w.run("verify", "-i", clientServer, "-s", naive)
	require.ErrorIs(t, err, errSketchFailed)

	// Cached under their document names.
	out, err = w.run("verify", "-i", "client-server", "-s", "send-then-await-reply")
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS")

	out, err = w.run("history", "--limit", "0")
	require.NoError(t, err)
	lines := bytes.Count([]byte(out), []byte("\n"))
	assert.Equal(t, 3, lines, out)
	assert.Contains(t, out, "send-then-stop-waiting")
	assert.Contains(t, out, "FAIL")

	out, err = w.run("history", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")), out)

	_, err = w.run("--no-store", "history")
	assert.ErrorContains(t, err, "disabled")
}

func TestBatch(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run("batch", "-s", countdownSk, "--jobs", "2", "--metrics", countdown, clientServer)
	assert.ErrorIs(t, err, errSketchFailed)
	assert.Contains(t, out, "PASS  countdown")
	assert.Contains(t, out, "ERROR client-server")
	assert.Contains(t, out, "1/2 passed")
	assert.Contains(t, out, "sketchcheck_verifications_total")

	out, err = w.run("batch", "-s", awaitReply, clientServer)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1/1 passed")
	assert.NotContains(t, out, "sketchcheck_")

	out, err = w.run("batch", "-s", awaitReply, "-f", "markdown", clientServer)
	require.NoError(t, err, out)
	assert.Contains(t, out, "| client-server | ✅ PASS | 2 | 6 |")
}

func TestExpand(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("expand", "-i", countdown, "-s", countdownSk)
	require.NoError(t, err)
	assert.Contains(t, out, "r0: {n_left>0} -> {n_left↓}")
	assert.Contains(t, out, "1 rules, 3 grounded:")
	assert.Contains(t, out, "r0: ")
}

func TestEncode(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("encode", "-i", clientServer, "-s", awaitReply, "--laws", "progress,liveness")
	require.NoError(t, err)
	assert.Contains(t, out, "MODULE main")
	assert.Contains(t, out, "c_0 :=")
	assert.Contains(t, out, "e_1 :=")
	assert.Contains(t, out, "CTLSPEC NAME progress :=")
	assert.Contains(t, out, "LTLSPEC NAME liveness :=")

	out, err = w.run("encode", "-i", clientServer, "-s", awaitReply, "-f", "tla")
	require.NoError(t, err)
	assert.Contains(t, out, "---- MODULE client_server ----")
	assert.Contains(t, out, "b_timed_out == state \\in {5}")
	assert.Contains(t, out, "\\* safety (CTL): ")
}

func TestGraph(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run("graph", "-i", clientServer)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph StateSpace {")
	assert.Contains(t, out, `"s4" [label="s4\nticks=0", shape=doublecircle];`)
	assert.Contains(t, out, `[label="timeout"]`)

	out, err = w.run("graph", "-i", clientServer, "-f", "mermaid", "--no-edge-labels")
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2")
	assert.Contains(t, out, "s5: timed out")
	assert.Contains(t, out, "s4 --> [*]")
	assert.NotContains(t, out, "timeout")

	out, err = w.run("graph", "-i", clientServer, "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "| → s0 | s1 | send | +waiting |")
	assert.Contains(t, out, "| s3 | s5 | timeout | +timed out, -waiting, ticks 2→0 |")

	_, err = w.run("graph", "-i", clientServer, "-f", "svg")
	assert.ErrorContains(t, err, "unknown format")
}

func TestLaws(t *testing.T) {
	w := newWorkspace(t)
	out, err := w.run("laws", "2")
	require.NoError(t, err)
	for _, name := range []string{"progress", "safety", "safety-strict", "safety-violation", "liveness"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "c_1")

	_, err = w.run("laws", "many")
	assert.ErrorContains(t, err, "invalid rule count")
}
