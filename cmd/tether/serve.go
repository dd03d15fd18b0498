package main

import (
	"context"

	"github.com/aretw0/tether/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the counter demo over HTTP",
	Long: `Mounts the demo component and exposes the container over HTTP:
GET /state, GET /actions, POST /actions/{name}, GET /events (SSE) and GET /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		addr, _ := cmd.Flags().GetString("addr")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunServer(sigCtx, cli.ServeOptions{
			ConfigPath: configPath,
			Addr:       addr,
			Debug:      debug,
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides the config)")
}
