package scan

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/cmdutil"
	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/endorses/ackit/internal/pkg/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Output modes
const (
	ModeMatches = "matches"
	ModeSpans   = "spans"
	ModeFirst   = "first"
	ModeCount   = "count"
	ModeJSON    = "json"
)

// stdinSource names standard input in output lines.
const stdinSource = "-"

var (
	dictPath     string
	snapshotPath string
	mode         string
	highlight    bool
	jobs         int
)

// highlightStyle marks matched text in --highlight output.
var highlightStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("214"))

// ScanCmd reports dictionary matches in files or standard input.
var ScanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Report every dictionary match in files or stdin",
	Long: `Scan files (or standard input when none are given) for every pattern in
a dictionary or compiled snapshot.

Each match is printed as <source>:<start>-<end>:<pattern>:<value>, where
start and end are inclusive character positions.

Examples:
  ackit scan --dict words.txt notes.txt
  ackit scan --snapshot words.acs --mode count *.log
  cat notes.txt | ackit scan --dict words.yaml --highlight`,
	RunE: runScan,
}

func init() {
	ScanCmd.Flags().StringVarP(&dictPath, "dict", "d", "", "dictionary file (line format or YAML)")
	ScanCmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "compiled snapshot file")
	ScanCmd.Flags().StringVarP(&mode, "mode", "m", ModeMatches, "output mode (matches, spans, first, count, json)")
	ScanCmd.Flags().BoolVar(&highlight, "highlight", false, "print the text with matches highlighted")
	ScanCmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files scanned concurrently")

	_ = viper.BindPFlag("scan.mode", ScanCmd.Flags().Lookup("mode"))
}

// Options controls how scan results are rendered.
type Options struct {
	Mode      string
	Highlight bool
	Jobs      int
}

func runScan(cmd *cobra.Command, args []string) error {
	dict := cmdutil.GetStringConfig(cmd, "dict", "dict", dictPath)
	snap := cmdutil.GetStringConfig(cmd, "snapshot", "snapshot", snapshotPath)
	a, err := cmdutil.LoadAutomaton(dict, snap, viper.GetBool("ignore_case"))
	if err != nil {
		return err
	}

	opts := Options{
		Mode:      cmdutil.GetStringConfig(cmd, "mode", "scan.mode", mode),
		Highlight: cmdutil.GetBoolConfig(cmd, "highlight", "scan.highlight", highlight),
		Jobs:      cmdutil.GetIntConfig(cmd, "jobs", "jobs", jobs),
	}

	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		return Render(cmd.OutOrStdout(), a, stdinSource, string(data), opts)
	}

	return Files(cmd.Context(), cmd.OutOrStdout(), a, args, opts)
}

// Files scans paths concurrently and writes their results to w in the
// order the paths were given.
func Files(ctx context.Context, w io.Writer, a *ahocorasick.Automaton[string], paths []string, opts Options) error {
	if err := validateMode(opts.Mode); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]bytes.Buffer, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// #nosec G304 -- Path is a command line argument
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			logger.DebugContext(ctx, "Scanning file", "path", path, "bytes", len(data))
			return Render(&results[i], a, path, string(data), opts)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range results {
		if _, err := results[i].WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// Render writes the scan results of one text.
func Render(w io.Writer, a *ahocorasick.Automaton[string], source, text string, opts Options) error {
	if err := validateMode(opts.Mode); err != nil {
		return err
	}

	if opts.Highlight {
		matches, err := a.Matches(text)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, Highlight(text, matches))
		return err
	}

	switch opts.Mode {
	case ModeCount:
		n, err := a.Count(text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s:%d\n", source, n)
		return err

	case ModeFirst:
		m, ok, err := a.First(text)
		if err != nil || !ok {
			return err
		}
		return writeMatch(w, source, m)

	case ModeJSON:
		matches, err := a.Matches(text)
		if err != nil {
			return err
		}
		result := Result{Source: source, Matches: make([]MatchJSON, len(matches))}
		for i, m := range matches {
			result.Matches[i] = MatchJSON{
				Pattern:   m.Pattern,
				Value:     m.Value,
				Start:     m.Start,
				End:       m.End,
				ByteStart: m.ByteStart,
				ByteEnd:   m.ByteEnd,
			}
		}
		return output.WriteJSON(w, result)

	case ModeSpans:
		spans, err := a.Search(text)
		if err != nil {
			return err
		}
		for _, s := range spans {
			if _, err := fmt.Fprintf(w, "%s:%d-%d\n", source, s.Start, s.End); err != nil {
				return err
			}
		}
		return nil

	default:
		it, err := a.Iter(text)
		if err != nil {
			return err
		}
		n := 0
		for m := range it.Seq() {
			n++
			if err := writeMatch(w, source, m); err != nil {
				return err
			}
		}
		logger.Debug("Scanned text", "source", source, "matches", n)
		return nil
	}
}

// Result is the JSON form of one scanned source.
type Result struct {
	Source  string      `json:"source"`
	Matches []MatchJSON `json:"matches"`
}

// MatchJSON is the JSON form of a match. End is inclusive and ByteEnd is
// exclusive.
type MatchJSON struct {
	Pattern   string `json:"pattern"`
	Value     string `json:"value"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	ByteStart int    `json:"byte_start"`
	ByteEnd   int    `json:"byte_end"`
}

func writeMatch(w io.Writer, source string, m ahocorasick.Match[string]) error {
	_, err := fmt.Fprintf(w, "%s:%d-%d:%s:%s\n", source, m.Start, m.End, m.Pattern, m.Value)
	return err
}

func validateMode(m string) error {
	switch m {
	case ModeMatches, ModeSpans, ModeFirst, ModeCount, ModeJSON:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s, %s, %s or %s)", m, ModeMatches, ModeSpans, ModeFirst, ModeCount, ModeJSON)
	}
}

// Highlight renders text with every matched byte range styled.
// Overlapping matches are merged into one highlighted run.
func Highlight(text string, matches []ahocorasick.Match[string]) string {
	type run struct{ start, end int }

	runs := make([]run, 0, len(matches))
	for _, m := range matches {
		runs = append(runs, run{m.ByteStart, m.ByteEnd})
	}
	slices.SortFunc(runs, func(a, b run) int { return cmp.Compare(a.start, b.start) })

	merged := runs[:0]
	for _, r := range runs {
		if n := len(merged); n > 0 && r.start <= merged[n-1].end {
			if r.end > merged[n-1].end {
				merged[n-1].end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}

	var b strings.Builder
	pos := 0
	for _, r := range merged {
		b.WriteString(text[pos:r.start])
		b.WriteString(highlightStyle.Render(text[r.start:r.end]))
		pos = r.end
	}
	b.WriteString(text[pos:])
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}
