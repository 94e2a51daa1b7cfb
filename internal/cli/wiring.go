package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"quest-board-service/internal/app"
	"quest-board-service/internal/config"
	"quest-board-service/internal/infra/memory"
	"quest-board-service/internal/infra/postgres"
	redisinfra "quest-board-service/internal/infra/redis"
	s3infra "quest-board-service/internal/infra/s3"
	"quest-board-service/internal/logger"
)

const serviceName = "quest-board"

// loadConfig reads config and builds the process logger. A missing default
// config file falls back to built-in defaults.
func loadConfig(path string) (config.Config, *logrus.Logger, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger.New(serviceName, cfg.Log.Level, cfg.Log.Format), nil
}

// backends holds the adapters chosen from config. Empty postgres, redis or
// storage settings select the in-memory implementation of that concern.
type backends struct {
	boards    app.BoardStore
	items     app.ItemStore
	pool      app.QuestionPool
	events    app.EventBus
	artifacts app.ArtifactStore

	// set only when proofs are kept in process
	memArtifacts *memory.ArtifactStore

	db          *bun.DB
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
}

func (b *backends) Close() {
	if b.pgPool != nil {
		b.pgPool.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.redisClient != nil {
		_ = b.redisClient.Close()
	}
}

func buildBackends(ctx context.Context, cfg config.Config, catalogPath string, log logrus.FieldLogger) (*backends, error) {
	if log == nil {
		log = logger.Discard()
	}
	b := &backends{}
	var err error

	if cfg.Redis.Addr != "" {
		b.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redisClient.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	var source app.QuestionPool
	if cfg.Postgres.URL != "" {
		b.db = postgres.Open(cfg.Postgres.URL)
		b.pgPool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.boards = postgres.NewBoardStore(b.db)
		b.items = postgres.NewItemStore(b.db)
		source = postgres.NewQuestionPool(b.pgPool)
	} else {
		questions := sampleQuestions()
		if catalogPath != "" {
			if questions, err = config.LoadCatalog(catalogPath); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.boards = memory.NewBoardStore()
		b.items = memory.NewItemStore()
		source = memory.NewStaticQuestionPool(questions)
		log.WithField("questions", len(questions)).Warn("postgres not configured, boards are kept in memory")
	}

	poolTTL := config.TTLDuration(cfg.Game.PoolTTL, 5*time.Minute)
	if b.redisClient != nil {
		source = redisinfra.NewQuestionCache(b.redisClient, source, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		b.events = redisinfra.NewEventBus(b.redisClient)
	} else {
		b.events = memory.NewEventBus()
	}
	b.pool = memory.NewCachedQuestionPool(source, poolTTL)

	if cfg.Storage.Bucket != "" {
		b.artifacts, err = s3infra.NewArtifactStore(ctx, s3infra.Options{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.Key,
			SecretKey:     cfg.Storage.Secret,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
	} else {
		b.memArtifacts = memory.NewArtifactStore(cfg.Storage.PublicBaseURL)
		b.artifacts = b.memArtifacts
	}
	return b, nil
}
