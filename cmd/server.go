package cmd

import (
	"Melodex/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动Melodex服务器",
	Long:  `启动Melodex音乐目录系统的HTTP服务器，提供API服务和WebSocket在线状态`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
