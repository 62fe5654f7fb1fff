package lookup

import (
	"errors"
	"fmt"
	"io"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/cmdutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dictPath     string
	snapshotPath string
	existsOnly   bool
)

// LookupCmd prints the values stored for exact dictionary keys.
var LookupCmd = &cobra.Command{
	Use:   "lookup <key>...",
	Short: "Look up exact dictionary keys",
	Long: `Print the value stored for each key. Keys are matched exactly, not as
substrings or prefixes. Exits non-zero if any key is missing.

Examples:
  ackit lookup --dict words.txt hers
  ackit lookup --snapshot words.acs --exists he she it`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	LookupCmd.Flags().StringVarP(&dictPath, "dict", "d", "", "dictionary file (line format or YAML)")
	LookupCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "compiled snapshot file")
	LookupCmd.Flags().BoolVar(&existsOnly, "exists", false, "print true or false instead of the value")
}

func runLookup(cmd *cobra.Command, args []string) error {
	dict := cmdutil.GetStringConfig(cmd, "dict", "dict", dictPath)
	snap := cmdutil.GetStringConfig(cmd, "snapshot", "snapshot", snapshotPath)

	a, err := cmdutil.LoadAutomaton(dict, snap, viper.GetBool("ignore_case"))
	if err != nil {
		return err
	}

	return Keys(cmd.OutOrStdout(), a, args, existsOnly)
}

// Keys writes one line per key. With existsOnly it prints true or false and
// never fails on a missing key.
func Keys(w io.Writer, a *ahocorasick.Automaton[string], keys []string, existsOnly bool) error {
	var missing []string
	for _, key := range keys {
		if existsOnly {
			if _, err := fmt.Fprintln(w, a.Exists(key)); err != nil {
				return err
			}
			continue
		}

		value, err := a.Get(key)
		if errors.Is(err, ahocorasick.ErrNotFound) {
			missing = append(missing, key)
			continue
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, value); err != nil {
			return err
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %q", ahocorasick.ErrNotFound, missing)
	}
	return nil
}
