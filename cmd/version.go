package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/ntfy-go/internal/build"
)

// NewVersionCmd returns the "version" subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ntfy %s %s/%s %s\n", build.String(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}
}
