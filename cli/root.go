package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tiptune-shell/config"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile  string
	logLevel string

	globalCfg *config.Config
)

// Execute is the entry point for the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tiptune-shell",
		Short:         "Host process for the TipTune sidecar",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			required := path != ""
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path, required)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			globalCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to tiptune-shell config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Host log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(),
		newEnvCmd(),
	)
	return root
}
