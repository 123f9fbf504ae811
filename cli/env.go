package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tiptune-shell/sidecar"
)

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the environment the sidecar would be started with",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			env := sidecar.BuildEnvironment(sidecar.EnvOptions{
				ParentPID:   os.Getpid(),
				WebHost:     cfg.Sidecar.WebHost,
				WebPort:     cfg.Sidecar.WebPort,
				AppDataDir:  cfg.AppDataDir(),
				LogFileName: cfg.Sidecar.LogFileName,
			})
			out := cmd.OutOrStdout()
			for _, line := range env.Strings() {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
