package cmd

import (
	"fmt"

	"github.com/endorses/ackit/internal/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ackit %s\n", info.Version)
		fmt.Fprintf(out, "  commit:   %s\n", info.GitCommit)
		fmt.Fprintf(out, "  built:    %s\n", info.BuildDate)
		fmt.Fprintf(out, "  go:       %s\n", info.GoVersion)
		fmt.Fprintf(out, "  platform: %s\n", info.Platform)
	},
}
