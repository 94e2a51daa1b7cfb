package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quest-board-service/internal/config"
	"quest-board-service/internal/domain"
	"quest-board-service/internal/infra/postgres"
	redisinfra "quest-board-service/internal/infra/redis"
)

// NewSeedCmd upserts a YAML mission catalogue into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the mission catalogue into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/catalog.yaml", "YAML mission catalogue")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	questions, err := config.LoadCatalog(file)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()
	n, err := postgres.NewCatalog(db).Upsert(ctx, questions)
	if err != nil {
		return err
	}

	// Drop shared cached track lists so running instances pick up the change.
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache := redisinfra.NewQuestionCache(client, nil, 0)
		for _, track := range tracksOf(questions) {
			if err := cache.Invalidate(ctx, track); err != nil {
				log.WithError(err).WithField("track", track).Warn("invalidate cached track")
			}
		}
	}
	log.WithField("questions", n).WithField("file", file).Info("catalogue seeded")
	return nil
}

func tracksOf(questions []domain.Question) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range questions {
		if _, ok := seen[q.Track]; ok {
			continue
		}
		seen[q.Track] = struct{}{}
		out = append(out, q.Track)
	}
	return out
}
