package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"montage/logger"
	"montage/server"
)

var projectPath string

var rootCmd = &cobra.Command{
	Use:   "montage",
	Short: "Montage is a video timeline and playback engine.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(os.Getenv("MONTAGE_LOG_LEVEL")),
			OutputPath: os.Getenv("MONTAGE_LOG_FILE"),
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		// The bare command starts the control server.
		server.Start(projectPath)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "", "project JSON file to load and watch")
}
