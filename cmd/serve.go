package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/openlearn/edusync/internal/config"
	"github.com/openlearn/edusync/internal/engine"
	httpSrv "github.com/openlearn/edusync/internal/http"
	"github.com/openlearn/edusync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync engine and its status HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		eng := engine.New(cfg)
		if err := eng.Initialize(cmd.Context()); err != nil {
			return fmt.Errorf("initialize engine: %w", err)
		}
		defer func() { _ = eng.Close() }()

		if err := eng.Start(context.Background()); err != nil {
			return err
		}

		server := httpSrv.NewServer(eng.Monitor(), eng.Driver(), eng.Queue())

		errCh := make(chan error, 1)
		go func() {
			log.Infof("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Infof("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Errorf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
