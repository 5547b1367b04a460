package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/internal/workload"
	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

const (
	chartWidth  = "1200px"
	chartHeight = "600px"
)

type benchFlags struct {
	sizes  []int
	rounds int
	html   string
}

func newBenchCommand(globals *Globals) *cobra.Command {
	flags := &benchFlags{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time map operations across sizes",
		Long: `Time insert, lookup, iteration, clone, removal and bulk build on
maps of each size, averaged over --rounds runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, globals, flags)
		},
	}

	cmd.Flags().IntSliceVar(&flags.sizes, "sizes", config.DefaultBenchSizes(), "map sizes to measure")
	cmd.Flags().IntVar(&flags.rounds, "rounds", config.DefaultBenchRounds, "rounds per size")
	cmd.Flags().StringVar(&flags.html, "html", "", "also write an HTML chart of ns per element to this file")

	return cmd
}

func runBench(cmd *cobra.Command, globals *Globals, flags *benchFlags) error {
	changed := cmd.Flags().Changed

	sess, err := openSession(cmd, globals, func(cfg *config.Config) {
		if changed("sizes") {
			cfg.Bench.Sizes = flags.sizes
		}

		if changed("rounds") {
			cfg.Bench.Rounds = flags.rounds
		}
	})
	if err != nil {
		return err
	}

	results, err := sess.runner.Bench(cmd.Context(), workload.BenchOptionsFromConfig(sess.cfg))

	closeErr := sess.close(cmd.Context())
	if err != nil {
		return err
	}

	if !globals.Quiet {
		writeBenchTable(cmd.OutOrStdout(), results)
	}

	if flags.html != "" {
		err = writeBenchChart(flags.html, results)
		if err != nil {
			return err
		}
	}

	return closeErr
}

func writeBenchTable(w io.Writer, results []workload.BenchResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Size", "Op", "Rounds", "Total", "Per element", "p50", "p95", "Std dev"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	lastSize := 0

	for _, result := range results {
		if lastSize != 0 && result.Size != lastSize {
			tw.AppendSeparator()
		}

		lastSize = result.Size

		tw.AppendRow(table.Row{
			humanize.Comma(int64(result.Size)),
			result.Op,
			result.Rounds,
			result.Total.Round(time.Microsecond),
			result.PerOp(),
			result.P50,
			result.P95,
			result.StdDev,
		})
	}

	tw.Render()
}

// benchChart plots ns per element for every operation against map size.
func benchChart(results []workload.BenchResult) *charts.Line {
	var labels []string

	series := make(map[string][]opts.LineData, len(workload.BenchOps))

	for _, result := range results {
		label := humanize.Comma(int64(result.Size))
		if len(labels) == 0 || labels[len(labels)-1] != label {
			labels = append(labels, label)
		}

		series[result.Op] = append(series[result.Op], opts.LineData{Value: result.PerOp().Nanoseconds()})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "rbmap operations", Subtitle: "ns per element by map size", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "size"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ns"}),
	)
	line.SetXAxis(labels)

	for _, op := range workload.BenchOps {
		if data, ok := series[op]; ok {
			line.AddSeries(op, data)
		}
	}

	return line
}

func writeBenchChart(path string, results []workload.BenchResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}

	renderErr := benchChart(results).Render(file)
	closeErr := file.Close()

	if renderErr != nil {
		return fmt.Errorf("render chart: %w", renderErr)
	}

	return closeErr
}
