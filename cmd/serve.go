package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"motion-logger/server"
	"motion-logger/utils"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Address = addr
			}
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return cmd
}

func runServe(cfg *utils.Config) error {
	banner("control surface")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.start(ctx)

	e := server.NewRouter(server.Handlers{
		Sequence:      a.sequence,
		Library:       a.library,
		Sensors:       a.sensors,
		Announcements: a.gate,
		ExportDir:     cfg.Server.ExportDir,
	})

	go func() {
		statsTicker := time.NewTicker(30 * time.Second)
		defer statsTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				utils.L().Info("status: %s", statusLine(a.sequence.Status()))
				a.logStats()
			}
		}
	}()

	err = server.Serve(ctx, e, cfg.Server.Address)
	stop()
	a.shutdown()
	return err
}
