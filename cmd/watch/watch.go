package watch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/endorses/ackit/internal/pkg/ahocorasick"
	"github.com/endorses/ackit/internal/pkg/cmdutil"
	"github.com/endorses/ackit/internal/pkg/dictionary"
	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/endorses/ackit/internal/pkg/metrics"
	"github.com/endorses/ackit/internal/pkg/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	dictPath     string
	metricsAddr  string
	pollInterval time.Duration
	debounce     time.Duration
)

// WatchCmd matches standard input line by line against a dictionary that is
// reloaded whenever its file changes.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Match stdin lines against a hot-reloaded dictionary",
	Long: `Read standard input line by line and print every dictionary match.
The dictionary file is watched and rebuilt in the background when it
changes; lines keep being matched against the previous dictionary until
the new one is ready.

Each match is printed as <line>:<start>-<end>:<pattern>:<value>.

Examples:
  tail -f app.log | ackit watch --dict secrets.txt
  ackit watch --dict words.yaml --metrics-addr :9090 < input.txt`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	WatchCmd.Flags().StringVarP(&dictPath, "dict", "d", "", "dictionary file to watch (line format or YAML)")
	WatchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	WatchCmd.Flags().DurationVar(&pollInterval, "poll-interval", dictionary.DefaultWatcherConfig().PollInterval, "polling interval when file notifications are unavailable")
	WatchCmd.Flags().DurationVar(&debounce, "debounce", dictionary.DefaultWatcherConfig().Debounce, "quiet period before reloading a changed dictionary")

	_ = viper.BindPFlag("watch.poll_interval", WatchCmd.Flags().Lookup("poll-interval"))
	_ = viper.BindPFlag("watch.debounce", WatchCmd.Flags().Lookup("debounce"))
}

// Config holds the settings of one watch session.
type Config struct {
	Dict        string
	IgnoreCase  bool
	MetricsAddr string
	Watcher     dictionary.WatcherConfig
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := Config{
		Dict:        cmdutil.GetStringConfig(cmd, "dict", "dict", dictPath),
		IgnoreCase:  viper.GetBool("ignore_case"),
		MetricsAddr: cmdutil.GetStringConfig(cmd, "metrics-addr", "metrics_addr", metricsAddr),
		Watcher: dictionary.WatcherConfig{
			PollInterval: viper.GetDuration("watch.poll_interval"),
			Debounce:     viper.GetDuration("watch.debounce"),
		},
	}
	if cfg.Dict == "" {
		return fmt.Errorf("--dict is required")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cleanup := signals.Context(parent)
	defer cleanup()

	return Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cfg)
}

// Run matches lines from in until EOF or until ctx is cancelled.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.NewCollector()

	bm := ahocorasick.NewBufferedMatcher[string](cmdutil.MatcherOptions(cfg.IgnoreCase)...)
	bm.SetBuildObserver(collector.ObserveBuild)

	watcherConfig := cfg.Watcher
	watcherConfig.OnError = collector.ObserveReload

	watcher := dictionary.NewWatcher(cfg.Dict, func(entries []dictionary.Entry) {
		if err := bm.UpdateEntriesSync(entries); err != nil {
			collector.ObserveReload(err)
			logger.WarnContext(ctx, "Dictionary rejected, keeping previous automaton",
				"dict", cfg.Dict,
				"error", err)
			return
		}
		collector.ObserveReload(nil)
	}, watcherConfig)

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Failed to stop dictionary watcher", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return collector.Serve(gctx, cfg.MetricsAddr)
		})
	}

	g.Go(func() error {
		defer cancel()
		return scanLines(gctx, in, out, bm, collector)
	})

	return g.Wait()
}

// scanLines matches each input line until EOF or cancellation.
func scanLines(ctx context.Context, in io.Reader, out io.Writer, m ahocorasick.Matcher[string], collector *metrics.Collector) error {
	type line struct {
		text string
		err  error
	}
	lines := make(chan line)

	// The reader goroutine ends at EOF; a blocked read on a terminal cannot
	// be interrupted, so it is not waited for on cancellation.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- line{text: scanner.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- line{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	w := bufio.NewWriter(out)
	defer w.Flush()

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return fmt.Errorf("failed to read input: %w", l.err)
			}
			lineNo++

			matches, err := m.Matches(l.text)
			if err != nil {
				return err
			}
			collector.ObserveScan(utf8.RuneCountInString(l.text), len(matches))

			source := strconv.Itoa(lineNo)
			for _, match := range matches {
				if _, err := fmt.Fprintf(w, "%s:%d-%d:%s:%s\n", source, match.Start, match.End, match.Pattern, match.Value); err != nil {
					return err
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}
