package compile

import (
	"errors"
	"fmt"
	"io"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/cmdutil"
	"github.com/endorses/ackit/internal/pkg/dictionary"
	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/endorses/ackit/internal/pkg/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dictPath string
	outPath  string
)

// CompileCmd builds a dictionary once and saves the automaton as a snapshot.
var CompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a dictionary into a snapshot",
	Long: `Build the automaton for a dictionary and save it as a snapshot that
scan, lookup and watch can load without rebuilding.

Example:
  ackit compile --dict words.txt --out words.acs`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	CompileCmd.Flags().StringVarP(&dictPath, "dict", "d", "", "dictionary file (line format or YAML)")
	CompileCmd.Flags().StringVarP(&outPath, "out", "o", "", "snapshot file to write")
	_ = CompileCmd.MarkFlagRequired("out")
}

func runCompile(cmd *cobra.Command, args []string) error {
	dict := cmdutil.GetStringConfig(cmd, "dict", "dict", dictPath)
	if dict == "" {
		return errors.New("--dict is required")
	}

	return Compile(cmd.OutOrStdout(), dict, outPath, viper.GetBool("ignore_case"))
}

// Compile loads dict, builds it and writes the snapshot to out, then prints
// the snapshot header.
func Compile(w io.Writer, dict, out string, ignoreCase bool) error {
	entries, err := dictionary.Load(dict)
	if err != nil {
		return err
	}

	a, err := ahocorasick.Build(entries, cmdutil.MatcherOptions(ignoreCase)...)
	if err != nil {
		return fmt.Errorf("%s: %w", dict, err)
	}

	header, err := snapshot.Save(out, a)
	if err != nil {
		return err
	}

	logger.Info("Compiled dictionary",
		"dict", dict,
		"out", out,
		"patterns", header.Patterns,
		"states", header.States)

	_, err = fmt.Fprintf(w, "id:        %s\ncreated:   %s\nversion:   %d\npatterns:  %d\nstates:    %d\nfold_case: %t\n",
		header.ID, header.Created.Format("2006-01-02T15:04:05Z07:00"), header.Version,
		header.Patterns, header.States, header.FoldCase)
	return err
}
