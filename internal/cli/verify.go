package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quest-board-service/internal/app"
	"quest-board-service/internal/infra/postgres"
	redisinfra "quest-board-service/internal/infra/redis"
)

// NewVerifyCmd marks a submitted proof as verified on behalf of a staff member.
func NewVerifyCmd(configPath *string) *cobra.Command {
	var itemID, verifierID string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Mark a board item's proof as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), *configPath, itemID, verifierID)
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "board item id")
	cmd.Flags().StringVar(&verifierID, "by", "", "staff member id")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func runVerify(ctx context.Context, configPath, itemID, verifierID string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	var events app.EventBus
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		events = redisinfra.NewEventBus(client)
	}

	item, err := app.NewVerifier(postgres.NewItemStore(db), events, log).MarkVerified(ctx, itemID, verifierID)
	if err != nil {
		return err
	}
	log.WithField("item_id", item.ID).WithField("board_id", item.BoardID).WithField("verified_by", item.VerifiedBy).
		Info("proof verified")
	return nil
}
