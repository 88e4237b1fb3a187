package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlearn/edusync/internal/config"
	"github.com/openlearn/edusync/internal/db"
	"github.com/openlearn/edusync/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the local store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		dbx, err := db.NewSQLiteConnection(cfg.SQLite.Path, db.SQLiteOpts{
			BusyTimeout: cfg.SQLite.BusyTimeout,
			PingTimeout: cfg.SQLite.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer dbx.Close()

		if err := store.New(dbx).Migrate(cmd.Context()); err != nil {
			return err
		}

		fmt.Println(">> Migration complete")
		return nil
	},
}
