package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/agent-console/internal/app"
	"github.com/nguyentranbao-ct/agent-console/internal/server"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "agent-console",
	Short:         "Admin console API for chatbot agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		defer func() { _ = logger.Sync() }()
		app.Invoke(server.StartServer).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	// running the binary without a subcommand serves
	rootCmd.Run = serveCmd.Run
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
