package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "fatebot.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fate",
		Short: "Fatebot - Fate Core character sheets and dice",
		Long:  "Fatebot imports spreadsheet-exported Fate Core character sheets and rolls Fudge dice in chat.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newRollCmd())
	cmd.AddCommand(newBotCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fate %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
