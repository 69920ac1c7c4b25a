package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the mcp-openapi application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mcp-openapi",
	Short: "MCP gateway that turns OpenAPI specifications into tools",
	Long: `mcp-openapi is a Model Context Protocol (MCP) server that exposes any
OpenAPI-described HTTP API as MCP tools, dynamically and per request.

Clients select their target API with two request headers: X-Openapi-Url
names the OpenAPI specification document and X-Api-Url names the API base
URL to call. The gateway fetches the specification, translates each
operation into a tool and proxies tool calls to the target API. Translated
specifications are cached per (specification URL, API URL) pair. An
optional X-Cookies header forwards a session cookie string on every
proxied call.

When run without subcommands, it starts the gateway (equivalent to
'mcp-openapi serve').`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles
// subcommands and flags. This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-openapi version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		// Cobra itself usually prints the error. Exiting with a non-zero
		// status code indicates that an error occurred during execution.
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
}
