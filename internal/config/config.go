// Package config loads runtime settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. a YAML file (optional; a missing file is not an error)
//  3. environment variables prefixed with CONDUIT_, after an optional .env
//     file has been loaded into the environment
//
// Environment keys map to config keys by dropping the prefix, lower-casing
// and turning the FIRST underscore into a dot:
//
//	CONDUIT_DATABASE_PATH          → database.path
//	CONDUIT_ARTICLES_DEFAULT_LIMIT → articles.default_limit
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CONDUIT_"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Articles ArticlesConfig `koanf:"articles"`
}

type DatabaseConfig struct {
	// Path is a file path or ":memory:".
	Path string `koanf:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type ArticlesConfig struct {
	// DefaultLimit is the page size when a listing names none. 0 lists
	// every matching article.
	DefaultLimit int `koanf:"default_limit" validate:"min=0"`
	// MaxLimit caps every page. 0 means no cap.
	MaxLimit int `koanf:"max_limit" validate:"min=0"`

	// LegacyTagMatch switches the tag filter from exact membership to
	// "tag list ends with tag".
	LegacyTagMatch bool `koanf:"legacy_tag_match"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/conduit.db"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Articles: ArticlesConfig{},
	}
}

// Load reads the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: loading %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	if a := cfg.Articles; a.MaxLimit > 0 && a.DefaultLimit > a.MaxLimit {
		return nil, fmt.Errorf("config: invalid: articles.default_limit %d exceeds articles.max_limit %d",
			a.DefaultLimit, a.MaxLimit)
	}

	return &cfg, nil
}

// envKey maps CONDUIT_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}
