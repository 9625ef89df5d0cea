package cmd

import (
	"github.com/spf13/cobra"

	"montage/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the montage control server",
	Long:  `Start the HTTP control surface and websocket event stream for the timeline engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(projectPath)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
