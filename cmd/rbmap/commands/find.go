package commands

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/pkg/fuzzy"
)

// ErrNoMatch is returned when a search finds nothing.
var ErrNoMatch = errors.New("no match")

type findFlags struct {
	exact      bool
	missBudget int
	limit      int
}

func newFindCommand() *cobra.Command {
	flags := &findFlags{}

	cmd := &cobra.Command{
		Use:   "find <words-file|-> <query>",
		Short: "Fuzzy word search over a word list",
		Long: `Load one word per line and search them. By default the query matches
words containing its characters in order, with up to --miss-budget skipped
characters between matches. --exact looks the word up instead.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // file and query
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, flags, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&flags.exact, "exact", false, "exact word lookup")
	cmd.Flags().IntVar(&flags.missBudget, "miss-budget", fuzzy.DefaultMissBudget, "skipped characters allowed between matches")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "print at most N results (0 = all)")

	return cmd
}

func runFind(cmd *cobra.Command, flags *findFlags, path, query string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}

	finder := fuzzy.New[string]()
	finder.MissBudget = flags.missBudget

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			finder.Insert(word, word)
		}
	}

	err = scanner.Err()
	if err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}

	var found []string
	if flags.exact {
		found = finder.Search(query)
	} else {
		found = finder.SearchPrefix(query)
	}

	if len(found) == 0 {
		return fmt.Errorf("%w for %q among %d words", ErrNoMatch, query, finder.Len())
	}

	if flags.limit > 0 && len(found) > flags.limit {
		found = found[:flags.limit]
	}

	for _, word := range found {
		fmt.Fprintln(cmd.OutOrStdout(), word)
	}

	return nil
}
