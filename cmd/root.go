package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/endorses/ackit/cmd/compile"
	"github.com/endorses/ackit/cmd/lookup"
	"github.com/endorses/ackit/cmd/scan"
	"github.com/endorses/ackit/cmd/watch"
	"github.com/endorses/ackit/internal/pkg/cmdutil"
	"github.com/endorses/ackit/internal/pkg/logger"
	"github.com/endorses/ackit/internal/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	ignoreCase bool
)

var rootCmd = &cobra.Command{
	Use:   "ackit",
	Short: "ackit finds many patterns in text at once",
	Long: fmt.Sprintf(`ackit %s - multi-pattern text matcher

ackit builds an Aho-Corasick automaton from a dictionary of patterns and
reports every occurrence of every pattern in a single pass over the input.`, version.Version),
	Version:       version.Get().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := cmdutil.GetStringConfig(cmd, "log-format", "log_format", logFormat)
		if err := logger.SetOutput(os.Stderr, format); err != nil {
			return err
		}
		level := cmdutil.GetStringConfig(cmd, "log-level", "log_level", logLevel)
		return logger.SetLevel(level)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func addSubCommandPalattes() {
	rootCmd.AddCommand(scan.ScanCmd)
	rootCmd.AddCommand(lookup.LookupCmd)
	rootCmd.AddCommand(compile.CompileCmd)
	rootCmd.AddCommand(watch.WatchCmd)
	rootCmd.AddCommand(versionCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Initialize structured logging
	logger.Initialize()

	addSubCommandPalattes()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ackit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format on stderr (json, text)")
	rootCmd.PersistentFlags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "fold case of patterns and text")

	_ = viper.BindPFlag("ignore_case", rootCmd.PersistentFlags().Lookup("ignore-case"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if path := cmdutil.DefaultConfigPath(); path != "" {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("ACKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("Using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		// An explicit config file that cannot be read is fatal
		cobra.CheckErr(fmt.Errorf("failed to read config file %s: %w", cfgFile, err))
	}
}
