package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/internal/workload"
)

// ErrReplayFailed is returned when a scenario expectation did not hold.
var ErrReplayFailed = errors.New("scenario failed")

func newReplayCommand(globals *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml|->",
		Short: "Replay a YAML scenario against a fresh map",
		Long: `Replay a scripted scenario of inserts, removals and pops against a
fresh map and check its expectations (values, keys, length, dumps).

Example scenario:
  name: rebalance
  steps:
    - {op: insert, key: 10, value: v10}
    - {op: remove, key: 10, want: v10}
    - {op: expect_len, len: 0}
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, globals, args[0])
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

func runReplay(cmd *cobra.Command, globals *Globals, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	scenario, err := workload.ParseScenario(data)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, globals, nil)
	if err != nil {
		return err
	}

	report, runErr := sess.runner.Replay(cmd.Context(), scenario)

	closeErr := sess.close(cmd.Context())
	if runErr != nil {
		return errors.Join(runErr, closeErr)
	}

	out := cmd.OutOrStdout()
	name := report.Name

	if name == "" {
		name = path
	}

	if report.Passed() {
		if !globals.Quiet {
			color.New(color.FgGreen).Fprintf(out, "PASS %s (%d steps)\n", name, report.Steps)
		}

		return closeErr
	}

	color.New(color.FgRed).Fprintf(out, "FAIL %s (%d of %d steps)\n", name, len(report.Failures), report.Steps)

	for _, failure := range report.Failures {
		color.New(color.FgYellow).Fprintf(out, "  step %d %s: %s\n", failure.Index, failure.Op, failure.Message)

		if failure.Diff != "" {
			writeDiff(out, failure.Diff, "    ")
		}
	}

	return errors.Join(fmt.Errorf("%w: %d failed steps", ErrReplayFailed, len(report.Failures)), closeErr)
}

// writeDiff colors the lines of a workload.LineDiff rendering.
func writeDiff(w io.Writer, diff, indent string) {
	for line := range strings.Lines(diff) {
		switch {
		case strings.HasPrefix(line, "-"):
			color.New(color.FgRed).Fprint(w, indent+line)
		case strings.HasPrefix(line, "+"):
			color.New(color.FgGreen).Fprint(w, indent+line)
		default:
			fmt.Fprint(w, indent+line)
		}
	}
}
