package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigPath = "./config/config.yaml"

var (
	// Global flags
	configPath string

	rootLogger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "printerdocsd",
	Short: "Printer service documentation backend",
	Long: `printerdocsd serves printer error codes, spare parts and DIP-switch
tables over HTTP and keeps model names reconciled.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootLogger != nil {
			_ = rootLogger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or "+defaultConfigPath+")")
	rootCmd.AddCommand(serveCmd, reconcileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
