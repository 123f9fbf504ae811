package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tiptune-shell/config"
	"tiptune-shell/dashboard"
	"tiptune-shell/lifecycle"
	"tiptune-shell/logging"
	"tiptune-shell/sidecar"
	"tiptune-shell/store"
	"tiptune-shell/tools"
)

// exitWait bounds how long the host waits for the killed sidecar to be
// reaped before exiting.
const exitWait = 3 * time.Second

func newRunCmd() *cobra.Command {
	var (
		bridgeMode    string
		dashboardAddr string
		sidecarPath   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sidecar and keep it bound to the host's lifetime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			if bridgeMode != "" {
				cfg.Bridge.Mode = bridgeMode
			}
			if dashboardAddr != "" {
				cfg.Dashboard.Addr = dashboardAddr
			}
			if sidecarPath != "" {
				cfg.Sidecar.Path = sidecarPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&bridgeMode, "bridge", "", "Lifecycle event source: signals or mcp")
	cmd.Flags().StringVar(&dashboardAddr, "dashboard", "", "Serve the status dashboard on this address")
	cmd.Flags().StringVar(&sidecarPath, "sidecar", "", "Path to the sidecar binary")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	if !sidecar.Supported {
		log.Info("subprocesses are not supported on this platform, running without a sidecar")
		return nil
	}

	var st store.Store
	if dir := cfg.StateDir(); dir != "" {
		ds, err := store.NewDirStore(dir)
		if err != nil {
			log.Warn("host state disabled", zap.Error(err))
		} else {
			st = ds
			defer st.Close()
		}
	}

	sup := sidecar.New(sidecar.Options{
		Name:        cfg.Sidecar.Name,
		Path:        cfg.Sidecar.Path,
		Args:        cfg.Sidecar.Args,
		WebHost:     cfg.Sidecar.WebHost,
		WebPort:     cfg.Sidecar.WebPort,
		AppDataDir:  cfg.AppDataDir(),
		LogFileName: cfg.Sidecar.LogFileName,
		Store:       st,
		Logger:      log.Named("sidecar"),
	})
	if err := sup.Start(); err != nil {
		return fmt.Errorf("starting sidecar: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Dashboard.Addr != "" {
		dash := dashboard.NewServer(cfg.Dashboard.Addr, sup, log.Named("dashboard"))
		if err := dash.Start(); err != nil {
			log.Warn("dashboard disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
				defer done()
				dash.Shutdown(shutdownCtx)
			}()
		}
	}

	bridge := lifecycle.NewBridge()
	stopSignals := lifecycle.NotifySignals(ctx, bridge)
	defer stopSignals()

	if cfg.Bridge.Mode == "mcp" {
		server := tools.NewServer(Version, sup, bridge)
		go func() {
			if err := tools.Serve(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("mcp session ended", zap.Error(err))
			}
			// The desktop shell hung up; treat it as the application exiting.
			bridge.Raise(lifecycle.Exit)
		}()
	}

	err = lifecycle.Run(ctx, bridge, sup, lifecycle.Options{
		ExitWithSidecar: cfg.Bridge.ExitWithSidecar,
		Logger:          log.Named("lifecycle"),
	})

	select {
	case <-sup.Done():
	case <-time.After(exitWait):
		log.Warn("sidecar not reaped before exit")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
