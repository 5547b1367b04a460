package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/internal/workload"
	"github.com/Sumatoshi-tech/rbmap/pkg/config"
	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

// ErrStressFailed is returned when a stress run found a defect.
var ErrStressFailed = errors.New("stress run failed")

type stressFlags struct {
	keys        int
	workers     int
	seed        int64
	checkEvery  int
	hibernate   bool
	metricsAddr string
}

func newStressCommand(globals *Globals) *cobra.Command {
	flags := &stressFlags{}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomized insert/remove stress test",
		Long: `Insert random keys into one map per worker, verify them against a
reference map, optionally hibernate the arenas, remove everything in random
order and check that no node leaked. Invariants are validated every
--check-every steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStress(cmd, globals, flags)
		},
	}

	cmd.Flags().IntVar(&flags.keys, "keys", config.DefaultStressKeys, "random insertions per worker")
	cmd.Flags().IntVar(&flags.workers, "workers", config.DefaultStressWorkers, "parallel workers, one map and arena shard each")
	cmd.Flags().Int64Var(&flags.seed, "seed", config.DefaultStressSeed, "random seed")
	cmd.Flags().IntVar(&flags.checkEvery, "check-every", config.DefaultStressCheckEvery, "validate invariants every N steps (0 = phase ends only)")
	cmd.Flags().BoolVar(&flags.hibernate, "hibernate", false, "hibernate and boot the arenas between phases")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

func runStress(cmd *cobra.Command, globals *Globals, flags *stressFlags) error {
	changed := cmd.Flags().Changed

	sess, err := openSession(cmd, globals, func(cfg *config.Config) {
		if changed("keys") {
			cfg.Stress.Keys = flags.keys
		}

		if changed("workers") {
			cfg.Stress.Workers = flags.workers
		}

		if changed("seed") {
			cfg.Stress.Seed = flags.seed
		}

		if changed("check-every") {
			cfg.Stress.CheckEvery = flags.checkEvery
		}

		if changed("hibernate") {
			cfg.Arena.Hibernate = flags.hibernate
		}

		if changed("metrics-addr") {
			cfg.Telemetry.MetricsAddr = flags.metricsAddr
		}
	})
	if err != nil {
		return err
	}

	report, runErr := sess.runner.Stress(cmd.Context(), workload.StressOptionsFromConfig(sess.cfg))

	closeErr := sess.close(cmd.Context())

	if !globals.Quiet {
		writeStressReport(cmd.OutOrStdout(), report)
	}

	if runErr != nil {
		color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "FAIL %v\n", runErr)

		return errors.Join(fmt.Errorf("%w: %w", ErrStressFailed, runErr), closeErr)
	}

	if !globals.Quiet {
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "PASS %s operations in %s (%s ops/s)\n",
			humanize.Comma(int64(report.Ops())),
			report.Elapsed.Round(time.Millisecond),
			humanize.Comma(int64(opsPerSecond(report.Ops(), report.Elapsed))))
	}

	return closeErr
}

func opsPerSecond(ops int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(ops) / elapsed.Seconds()
}

func writeStressReport(w io.Writer, report *workload.StressReport) {
	if report == nil {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Worker", "Inserted", "Replaced", "Removed", "Checks", "Peak len", "Leaked"})

	var total workload.WorkerReport

	for _, wr := range report.Workers {
		tw.AppendRow(table.Row{
			strconv.Itoa(wr.Worker),
			humanize.Comma(int64(wr.Inserted)),
			humanize.Comma(int64(wr.Replaced)),
			humanize.Comma(int64(wr.Removed)),
			humanize.Comma(int64(wr.Checks)),
			humanize.Comma(int64(wr.PeakLen)),
			wr.Leaked,
		})

		total.Inserted += wr.Inserted
		total.Replaced += wr.Replaced
		total.Removed += wr.Removed
		total.Checks += wr.Checks
		total.Leaked += wr.Leaked
	}

	tw.AppendFooter(table.Row{
		"total",
		humanize.Comma(int64(total.Inserted)),
		humanize.Comma(int64(total.Replaced)),
		humanize.Comma(int64(total.Removed)),
		humanize.Comma(int64(total.Checks)),
		"",
		total.Leaked,
	})
	tw.Render()

	nodeSize := unsafe.Sizeof(rbtree.Node[uint64, uint64]{})
	fmt.Fprintf(w, "Peak nodes: %s (~%s)",
		humanize.Comma(int64(report.PeakNodes)),
		humanize.Bytes(uint64(nodeSize)*safeconv.MustIntToUint64(report.PeakNodes)))

	if report.Hibernated {
		fmt.Fprint(w, ", arenas hibernated")
	}

	fmt.Fprintln(w)
}
