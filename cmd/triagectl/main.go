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
)

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "triagectl",
		Short:         "Operator tool for the BI triage agent",
		Long:          "triagectl reads the same environment as the API server and works directly against its store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store and service activity to stderr")

	env := &environment{verbose: &verbose}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newTicketsCmd(env))
	cmd.AddCommand(newKnowledgeCmd(env))
	cmd.AddCommand(newConversationsCmd(env))
	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "triagectl %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
