package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbmap/cmd/rbmap/commands"
	"github.com/Sumatoshi-tech/rbmap/internal/workload"
	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the root command with an isolated config file and returns
// what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgPath := writeFile(t, "rbmap.yaml", "log:\n  level: error\n")

	cmd := commands.NewRootCommand()
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))

	err := cmd.Execute()

	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "rbmap "), out)
	assert.Contains(t, out, "commit:")
}

func TestStressCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "stress", "--keys", "300", "--workers", "2", "--check-every", "50", "--hibernate")
	require.NoError(t, err)

	assert.Contains(t, out, "Worker")
	assert.Contains(t, out, "arenas hibernated")
	assert.Contains(t, out, "PASS")
}

func TestStressCommand_ServesMetrics(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "stress", "--keys", "100", "--workers", "1", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")
}

func TestStressCommand_Quiet(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "--quiet", "stress", "--keys", "100", "--workers", "1")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStressCommand_InvalidFlags(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "stress", "--workers", "0")
	require.ErrorIs(t, err, config.ErrInvalidWorkers)
}

func TestBenchCommand(t *testing.T) {
	t.Parallel()

	chart := filepath.Join(t.TempDir(), "bench.html")

	out, err := execute(t, "", "bench", "--sizes", "10,20", "--rounds", "1", "--html", chart)
	require.NoError(t, err)

	for _, op := range workload.BenchOps {
		assert.Contains(t, out, op)
	}

	assert.Contains(t, out, "P95")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")
	assert.Contains(t, string(html), "from_sorted")
}

const scenarioYAML = `
name: small
steps:
  - {op: insert, key: 1, value: one}
  - {op: insert, key: 2, value: two}
  - {op: get, key: 2, want: two}
  - op: expect_dump
    dump: |
      [B,T,1,one]
      [R,R,2,two]
  - {op: validate}
`

func TestReplayCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "replay", writeFile(t, "scenario.yaml", scenarioYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS small (5 steps)")
}

func TestReplayCommand_Stdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, scenarioYAML, "replay", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS small")
}

func TestReplayCommand_Failure(t *testing.T) {
	t.Parallel()

	failing := strings.Replace(scenarioYAML, "[R,R,2,two]", "[R,R,2,zwei]", 1)

	out, err := execute(t, "", "replay", writeFile(t, "scenario.yaml", failing))
	require.ErrorIs(t, err, commands.ErrReplayFailed)

	assert.Contains(t, out, "FAIL small (1 of 5 steps)")
	assert.Contains(t, out, "-[R,R,2,zwei]")
	assert.Contains(t, out, "+[R,R,2,two]")
}

func TestReplayCommand_InvalidScenario(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "", "replay", writeFile(t, "scenario.yaml", "steps:\n  - {op: nope}\n"))
	require.ErrorIs(t, err, workload.ErrScenario)

	_, err = execute(t, "", "replay", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDumpCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "dump", "--insert", "10,20,30,15,25,5", "--remove", "20")
	require.NoError(t, err)
	assert.Equal(t,
		"[B,T,25,v25]\n"+
			"[B,L,10,v10] [B,R,30,v30]\n"+
			"[R,L,5,v5] [R,R,15,v15]\n",
		out)

	out, err = execute(t, "", "dump")
	require.NoError(t, err)
	assert.Equal(t, "(empty)\n", out)
}

func TestCloneCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "clone", "--keys", "1,2,3", "--extra", "4")
	require.NoError(t, err)

	assert.Contains(t, out, "original:\n[B,T,2,v2]\n[R,L,1,v1] [R,R,3,v3]\n")
	assert.Contains(t, out, "clone:")
	assert.Contains(t, out, "diff:")
	assert.Contains(t, out, "-[B,T,2,v2]")
}

func TestFindCommand(t *testing.T) {
	t.Parallel()

	words := writeFile(t, "words.txt", "hello\nello\n\nworld\n")

	out, err := execute(t, "", "find", words, "he")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = execute(t, "", "find", "--exact", words, "WORLD")
	require.NoError(t, err)
	assert.Equal(t, "world\n", out)

	out, err = execute(t, "", "find", "--limit", "1", words, "e")
	require.NoError(t, err)
	assert.Equal(t, "ello\n", out)

	_, err = execute(t, "", "find", words, "zzz")
	require.ErrorIs(t, err, commands.ErrNoMatch)
}
