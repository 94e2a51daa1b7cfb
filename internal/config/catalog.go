package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"quest-board-service/internal/domain"
)

type catalogFile struct {
	Questions []catalogQuestion `yaml:"questions" validate:"dive"`
}

type catalogQuestion struct {
	ID     string `yaml:"id" validate:"required,max=64"`
	Track  string `yaml:"track" validate:"required,max=64"`
	Level  int    `yaml:"level" validate:"gte=0"`
	Text   string `yaml:"text" validate:"required"`
	Active *bool  `yaml:"active"`
}

// LoadCatalog reads a mission catalogue. Level defaults to 1 and active to true.
func LoadCatalog(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]domain.Question, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid catalogue: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Questions))
	out := make([]domain.Question, 0, len(file.Questions))
	for _, q := range file.Questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("invalid catalogue: duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		level := q.Level
		if level == 0 {
			level = 1
		}
		active := true
		if q.Active != nil {
			active = *q.Active
		}
		out = append(out, domain.Question{ID: q.ID, Track: q.Track, Level: level, Text: q.Text, Active: active})
	}
	return out, nil
}
