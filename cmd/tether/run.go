package main

import (
	"context"

	"github.com/aretw0/tether/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the counter demo in the terminal",
	Long: `Mounts the demo component and reads commands from stdin:
inc, set <text>, state, help and quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		title, _ := cmd.Flags().GetString("title")
		plain, _ := cmd.Flags().GetBool("plain")

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunSession(sigCtx, cli.RunOptions{
			ConfigPath: configPath,
			Title:      title,
			Debug:      debug,
			Plain:      plain,
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("title", "", "Title prop of the demo component (overrides the config)")
	runCmd.Flags().Bool("plain", false, "Print raw markdown instead of styled output")

	// 'run' is the default when no command is provided
	rootCmd.RunE = runCmd.RunE
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
}
