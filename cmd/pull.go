package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlearn/edusync/internal/config"
	"github.com/openlearn/edusync/internal/connectivity"
	"github.com/openlearn/edusync/internal/engine"
	"github.com/openlearn/edusync/internal/logger"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Bulk-download remote state into the local store",
	Long:  "Explicit full pull used on first run or manual refresh. Fails fast when offline.",
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

		// one reachability probe up front; pull requires connectivity
		prober := connectivity.NewHTTPProber(cfg.Probe.URL, cfg.Probe.Timeout)
		eng.Monitor().SetOnline(prober.Probe(cmd.Context()))

		if err := eng.Driver().DownloadFromServer(cmd.Context()); err != nil {
			return fmt.Errorf("pull: %w", err)
		}

		fmt.Println(">> Pull complete")
		return nil
	},
}
