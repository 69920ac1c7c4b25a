package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application
// version. The actual version information is managed by the root command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mcp-openapi",
		Long:  `All software has versions. This is mcp-openapi's.`,
		Run: func(cmd *cobra.Command, args []string) {
			// rootCmd.Version is expected to be set, typically in root.go
			// during build time.
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mcp-openapi version %s\n", rootCmd.Version)
		},
	}
}
