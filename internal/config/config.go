package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"required,numeric"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Storage struct {
		Bucket        string `yaml:"bucket"`
		Region        string `yaml:"region" validate:"required_with=Bucket"`
		Endpoint      string `yaml:"endpoint" validate:"omitempty,url"`
		Key           string `yaml:"key"`
		Secret        string `yaml:"secret" validate:"required_with=Key"`
		PublicBaseURL string `yaml:"public_base_url" validate:"omitempty,url"`
	} `yaml:"storage"`
	Game struct {
		BoardSize     int    `yaml:"board_size" validate:"gte=1"`
		BonusLevel    int    `yaml:"bonus_level" validate:"gte=1"`
		ImageMaxBytes int64  `yaml:"image_max_bytes" validate:"gt=0"`
		VideoMaxBytes int64  `yaml:"video_max_bytes" validate:"gtefield=ImageMaxBytes"`
		AutoBonus     bool   `yaml:"auto_bonus"`
		PoolTTL       string `yaml:"pool_ttl"`
	} `yaml:"game"`
	Event struct {
		Timezone  string `yaml:"timezone" validate:"required"`
		StartDate string `yaml:"start_date" validate:"required,datetime=2006-01-02"`
		MaxDays   int    `yaml:"max_days" validate:"gte=1"`
	} `yaml:"event"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
		Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Storage.PublicBaseURL = "http://localhost:8080/proofs"
	cfg.Game.BoardSize = 4
	cfg.Game.BonusLevel = 3
	cfg.Game.ImageMaxBytes = 2 << 20
	cfg.Game.VideoMaxBytes = 10 << 20
	cfg.Game.PoolTTL = "5m"
	cfg.Event.Timezone = "America/Phoenix"
	cfg.Event.StartDate = "2025-08-29"
	cfg.Event.MaxDays = 4
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load reads YAML config from path on top of Default, then applies .env and
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and the durations kept as strings.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, raw := range map[string]string{"redis.ttl": cfg.Redis.TTL, "game.pool_ttl": cfg.Game.PoolTTL} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// Path resolves the config file: the flag wins, then CONFIG_PATH.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("CONFIG_PATH")
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
