package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/delegator/agent/report"
	"github.com/BaSui01/delegator/agent/tasks"
	"github.com/BaSui01/delegator/testutil/fixtures"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

// fakePlanner serves an OpenAI-compatible endpoint that always answers reply.
func fakePlanner(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"data":[]}`))
		case "/v1/chat/completions":
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": reply}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, plannerURL, store, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`scheduler:
  concurrency: 2
  context_window: 3
planner:
  worker: planner
  coordinator: coordinator
  max_depth: 3
workers:
  - key: planner
    kind: remote
    base_url: %q
    model: test-model
  - key: coordinator
    kind: builtin
    builtin: echo
  - key: designer
    kind: builtin
  - key: builder
    kind: builtin
    builtin: static
    options:
      text: built it
  - key: tester
    kind: builtin
    builtin: echo
output:
  store: %s
  dir: %q
log:
  level: error
  format: json
`, plannerURL, store, dir)

	path := filepath.Join(t.TempDir(), "delegator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// =============================================================================
// 🧪 run
// =============================================================================

func TestRun_GeneratesPlanExecutesAndSaves(t *testing.T) {
	srv, calls := fakePlanner(t, fixtures.PlannerReplyFenced)
	dir := t.TempDir()
	cfgPath := writeConfig(t, srv.URL, "file", dir)

	code, stdout, stderr := execute("run", "--config", cfgPath, "--objective", "Ship feature X")
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, int32(1), calls.Load())

	rep, err := report.Unmarshal([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "Ship feature X", rep.Objective)
	assert.NotEmpty(t, rep.RunID)

	tree := rep.ExecutionTree
	assert.Equal(t, "coordinator", tree.AgentIdentity)
	require.Len(t, tree.Children, 3)
	assert.Equal(t, "Design done", tree.Children[0].Output)
	assert.Equal(t, "built it", tree.Children[1].Output)
	assert.Equal(t, "Test done", tree.Children[2].Output)

	paths := make([]string, len(rep.ContextLog))
	for i, e := range rep.ContextLog {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{
		"Ship feature X",
		"Ship feature X > Design",
		"Ship feature X > Build",
		"Ship feature X > Test",
	}, paths)

	assert.Contains(t, stderr, "✓ Ship feature X > Design: Design done")
	assert.FileExists(t, filepath.Join(dir, rep.RunID+".json"))

	// reports list / show 读取同一存储
	code, stdout, stderr = execute("reports", "--config", cfgPath, "list")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, rep.RunID)
	assert.Contains(t, stdout, "Ship feature X")

	code, stdout, stderr = execute("reports", "--config", cfgPath, "show", rep.RunID)
	require.Equal(t, exitOK, code, stderr)
	shown, err := report.Unmarshal([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, shown.RunID)
}

func TestRun_PlanFile(t *testing.T) {
	srv, calls := fakePlanner(t, fixtures.PlannerReplyNoJSON)
	cfgPath := writeConfig(t, srv.URL, "memory", t.TempDir())

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(fixtures.ShipFeaturePlanYAML), 0o644))

	code, stdout, stderr := execute("run", "--config", cfgPath, "--plan", planPath)
	require.Equal(t, exitOK, code, stderr)
	assert.Zero(t, calls.Load(), "planner must not be called for a plan file")

	rep, err := report.Unmarshal([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "Ship feature X", rep.Objective)
	assert.Equal(t, 4, rep.ExecutionTree.Count())
}

func TestRun_ReportObjectiveIsRootTitle(t *testing.T) {
	srv, _ := fakePlanner(t, fixtures.PlannerReplyNoJSON)
	cfgPath := writeConfig(t, srv.URL, "memory", t.TempDir())

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(fixtures.ShipFeaturePlanYAML), 0o644))

	code, stdout, stderr := execute("run", "--config", cfgPath, "--plan", planPath, "--objective", "Something else")
	require.Equal(t, exitOK, code, stderr)

	rep, err := report.Unmarshal([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, "Ship feature X", rep.Objective)
	assert.Equal(t, rep.ExecutionTree.Title, rep.Objective)
}

func TestRun_StoreFailureStillPrintsReport(t *testing.T) {
	srv, _ := fakePlanner(t, fixtures.PlannerReplyFenced)

	// 目录的父路径是普通文件，打开存储必然失败
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfgPath := writeConfig(t, srv.URL, "file", filepath.Join(blocker, "reports"))

	code, stdout, stderr := execute("run", "--config", cfgPath, "--objective", "Ship feature X")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "STORE")
	assert.NotContains(t, stderr, "report saved")

	rep, err := report.Unmarshal([]byte(stdout))
	require.NoError(t, err, "finished run must still be printed")
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 4, rep.ExecutionTree.Count())
	assert.Len(t, rep.ContextLog, 4)
}

func TestRun_UnknownWorkerFailsBeforeAnyCall(t *testing.T) {
	srv, _ := fakePlanner(t, "")
	dir := t.TempDir()
	cfgPath := writeConfig(t, srv.URL, "file", dir)

	planPath := filepath.Join(t.TempDir(), "plan.json")
	plan := strings.Replace(fixtures.ShipFeaturePlan, `"tester"`, `"ghost"`, 1)
	require.NoError(t, os.WriteFile(planPath, []byte(plan), 0o644))

	code, stdout, stderr := execute("run", "--config", cfgPath, "--plan", planPath)
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "CONFIGURATION")
	assert.Contains(t, stderr, "ghost")
	assert.NotContains(t, stderr, "✓", "no node may complete")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_PlanGenerationFailureNeverExecutes(t *testing.T) {
	srv, calls := fakePlanner(t, fixtures.PlannerReplyNoJSON)
	dir := t.TempDir()
	cfgPath := writeConfig(t, srv.URL, "file", dir)

	code, _, stderr := execute("run", "--config", cfgPath, "--objective", "Ship feature X")
	assert.Equal(t, exitError, code)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, stderr, "PLAN_GENERATION")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_InvalidPlanFile(t *testing.T) {
	srv, _ := fakePlanner(t, "")
	cfgPath := writeConfig(t, srv.URL, "memory", t.TempDir())

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("mode: sideways\n"), 0o644))

	code, _, stderr := execute("run", "--config", cfgPath, "--plan", planPath)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "INVALID_PLAN")
}

// =============================================================================
// 🧪 plan / workers
// =============================================================================

func TestPlan_PrintsReusableDocument(t *testing.T) {
	srv, _ := fakePlanner(t, fixtures.PlannerReplyBare)
	cfgPath := writeConfig(t, srv.URL, "memory", t.TempDir())

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			code, stdout, stderr := execute("plan", "--config", cfgPath, "--format", format, "Ship feature X")
			require.Equal(t, exitOK, code, stderr)

			root, err := tasks.ParseDocument([]byte(stdout), "coordinator")
			require.NoError(t, err)
			assert.Equal(t, "Ship feature X", root.Title)
			require.Len(t, root.Children, 3)
			assert.Equal(t, "tester", root.Children[2].WorkerKey)
		})
	}
}

func TestWorkers_ListsRegistry(t *testing.T) {
	srv, _ := fakePlanner(t, "")
	cfgPath := writeConfig(t, srv.URL, "memory", t.TempDir())

	code, stdout, stderr := execute("workers", "--config", cfgPath)
	require.Equal(t, exitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "KEY")
	// 按 key 排序
	assert.True(t, strings.HasPrefix(lines[1], "builder"))
	assert.Contains(t, stdout, "builtin:static")
	assert.Regexp(t, `planner\s+remote\s+planner\s+planner`, stdout)
	assert.Regexp(t, `coordinator\s+builtin:echo\s+coordinator\s+coordinator`, stdout)
}

// =============================================================================
// 🧪 参数与配置错误
// =============================================================================

func TestRunMain_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no args", nil, exitUsage},
		{"unknown command", []string{"deploy"}, exitUsage},
		{"run without objective", []string{"run"}, exitUsage},
		{"plan without objective", []string{"plan"}, exitUsage},
		{"plan bad format", []string{"plan", "--format", "xml", "x"}, exitUsage},
		{"reports without subcommand", []string{"reports"}, exitUsage},
		{"bad flag", []string{"run", "--nope"}, exitUsage},
		{"help", []string{"help"}, exitOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRunMain_Version(t *testing.T) {
	code, stdout, _ := execute("version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "delegator dev")
}

func TestRunMain_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  store: s3\n"), 0o644))

	code, _, stderr := execute("workers", "--config", path)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "CONFIGURATION")
	assert.Contains(t, stderr, "output.store")
}
