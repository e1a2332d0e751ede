package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print the CLI version",
	Long:    `This command prints the CLI version and the retrieval providers compiled in.`,
	Example: "weave version",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "weave %s on %s/%s\n", version.Version, runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "providers: %s\n", registry.ListProviders())
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
