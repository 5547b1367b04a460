// Package commands implements CLI command handlers for rbmap.
package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/pkg/version"
)

// Globals holds the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

// NewRootCommand builds the rbmap command tree.
func NewRootCommand() *cobra.Command {
	globals := &Globals{}

	rootCmd := &cobra.Command{
		Use:   "rbmap",
		Short: "rbmap - red-black tree map workbench",
		Long: `rbmap exercises the arena-backed red-black tree map.

Commands:
  stress    Randomized insert/remove run with invariant and leak checks
  bench     Time map operations across sizes
  replay    Replay a YAML scenario with expectations
  dump      Print the level-order dump of a tree
  clone     Deep-clone a tree, mutate the clone and diff the dumps
  find      Fuzzy word search over a word list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if globals.NoColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.ConfigPath, "config", "c", "", "config file (default: .rbmap.yaml in . or $HOME)")
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress output")
	flags.BoolVar(&globals.NoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newStressCommand(globals),
		newBenchCommand(globals),
		newReplayCommand(globals),
		newDumpCommand(),
		newCloneCommand(),
		newFindCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rbmap %s\n", version.String())
		},
	}
}
