package cmd

import (
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/openlearn/edusync/internal/config"
	"github.com/openlearn/edusync/internal/engine"
	"github.com/openlearn/edusync/internal/logger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the local store with demo courses and lessons",
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

		log.Info(">> Seeding demo content...")

		ctx := cmd.Context()
		courses := []struct {
			title, desc, category string
			lessons               []string
		}{
			{"Intro to Go", "Syntax, tooling, and the standard library", "programming",
				[]string{"Hello, module", "Types and methods", "Goroutines"}},
			{"Technical Writing", "Clear docs for engineers", "communication",
				[]string{"Audience first", "Structure"}},
			{"Interview Prep", "From resume to offer", "career",
				[]string{"The screen", "System design basics"}},
		}

		for _, c := range courses {
			course, err := eng.Learning().CreateCourse(ctx, c.title, c.desc, c.category)
			if err != nil {
				return fmt.Errorf("seed course %q: %w", c.title, err)
			}
			for i, title := range c.lessons {
				if _, err := eng.Learning().CreateLesson(ctx, course.ID, title, "", i); err != nil {
					return fmt.Errorf("seed lesson %q: %w", title, err)
				}
			}
		}

		log.Info(">> Seed completed")
		return nil
	},
}
