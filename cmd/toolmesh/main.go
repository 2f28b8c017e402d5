package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/toolmesh/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "toolmesh",
	Short:        "Tool-using conversational agent",
	Long:         "toolmesh runs a conversational agent that picks the tools it needs for every message.",
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("toolmesh version %s\n", version))

	rootCmd.AddCommand(cli.NewChatCmd())
	rootCmd.AddCommand(cli.NewToolsCmd())
}
