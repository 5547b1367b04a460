package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/internal/workload"
)

func newDumpCommand() *cobra.Command {
	var inserts, removes []int64

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the level-order dump of a tree",
		Long: `Insert the given keys in order, remove the given keys, and print the
tree one level per line as [color,relation,key,value].

Example:
  rbmap dump --insert 10,20,30,15,25,5 --remove 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dump, err := workload.Dump(inserts, removes)
			if err != nil {
				return err
			}

			if dump == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "(empty)")

				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), dump)

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&inserts, "insert", nil, "keys to insert, in order")
	cmd.Flags().Int64SliceVar(&removes, "remove", nil, "keys to remove after inserting")

	return cmd
}

func newCloneCommand() *cobra.Command {
	var keys, extra []int64

	cmd := &cobra.Command{
		Use:   "clone",
		Short: "Deep-clone a tree, mutate the clone and diff the dumps",
		Long: `Build a tree from --keys, deep-clone it, insert --extra into the clone
and pop its first entry. Fails if the original changed; otherwise prints
both dumps and their line diff.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := workload.CloneAndMutate(keys, extra)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			color.New(color.Bold).Fprintln(out, "original:")
			fmt.Fprint(out, result.Original)
			color.New(color.Bold).Fprintln(out, "clone:")
			fmt.Fprint(out, result.Clone)
			color.New(color.Bold).Fprintln(out, "diff:")
			writeDiff(out, result.Diff, "")

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&keys, "keys", []int64{1, 2, 3, 4, 5, 6, 7}, "keys of the original tree")
	cmd.Flags().Int64SliceVar(&extra, "extra", []int64{8, 9}, "keys inserted into the clone")

	return cmd
}
