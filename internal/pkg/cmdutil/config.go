// Package cmdutil provides shared utilities for CLI command implementations.
package cmdutil

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagChanged reports whether the user set the named flag on the command line.
func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// GetStringConfig returns flagValue if the flag was set explicitly, then the
// config value for key, then flagValue as the default.
// Flag values take precedence over config file values.
func GetStringConfig(cmd *cobra.Command, name, key, flagValue string) string {
	if flagChanged(cmd, name) {
		return flagValue
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return flagValue
}

// GetIntConfig returns the flag value if set explicitly, otherwise the config
// value for key, otherwise the flag default.
func GetIntConfig(cmd *cobra.Command, name, key string, flagValue int) int {
	if flagChanged(cmd, name) {
		return flagValue
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return flagValue
}

// GetBoolConfig returns the flag value if set explicitly, otherwise the config
// value for key, otherwise the flag default.
func GetBoolConfig(cmd *cobra.Command, name, key string, flagValue bool) bool {
	if flagChanged(cmd, name) {
		return flagValue
	}
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return flagValue
}

// DefaultConfigPath returns $HOME/.config/ackit/config.yaml, or an empty
// string when the home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ackit", "config.yaml")
}
