// internal/config/config.go
//
// Package config loads settings for the duel server and terminal client.
//
// Sources, later ones winning:
//  1. built-in defaults
//  2. an optional TOML file (path argument or $DUEL_CONFIG)
//  3. the environment, after .env has been loaded by godotenv
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable of both binaries.
type Config struct {
	// server
	Port         string
	DBPath       string // empty keeps everything in memory
	JWTSecret    string
	JWTExpires   time.Duration
	ClientOrigin string

	// shared
	LogLevel    string
	AnswersFile string
	AllowedFile string

	// client
	ServerURL    string
	PollInterval time.Duration
	HardMode     bool
	StatsFile    string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         "5175",
		DBPath:       "./data/duel.db",
		JWTSecret:    "dev_secret_change_me",
		JWTExpires:   14 * 24 * time.Hour,
		ClientOrigin: "http://localhost:5173",
		LogLevel:     "info",
		ServerURL:    "http://localhost:5175",
		PollInterval: time.Second,
	}
}

type fileConfig struct {
	Port           string `toml:"port"`
	DBPath         string `toml:"db_path"`
	JWTSecret      string `toml:"jwt_secret"`
	JWTExpiresDays int    `toml:"jwt_expires_days"`
	ClientOrigin   string `toml:"client_origin"`
	LogLevel       string `toml:"log_level"`
	AnswersFile    string `toml:"words_answers_file"`
	AllowedFile    string `toml:"words_allowed_file"`
	ServerURL      string `toml:"server_url"`
	PollInterval   string `toml:"poll_interval"`
	PollIntervalMS int64  `toml:"poll_interval_ms"`
	HardMode       bool   `toml:"hard_mode"`
	StatsFile      string `toml:"stats_file"`
}

// Load builds a Config from defaults, the TOML file at path (or $DUEL_CONFIG)
// and the environment. A missing .env is not an error; a missing explicit
// config file is.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()

	if path == "" {
		path = os.Getenv("DUEL_CONFIG")
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setString := func(key, v string, dst *string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(v)
		}
	}
	setString("port", raw.Port, &cfg.Port)
	setString("db_path", raw.DBPath, &cfg.DBPath)
	setString("jwt_secret", raw.JWTSecret, &cfg.JWTSecret)
	setString("client_origin", raw.ClientOrigin, &cfg.ClientOrigin)
	setString("log_level", raw.LogLevel, &cfg.LogLevel)
	setString("words_answers_file", raw.AnswersFile, &cfg.AnswersFile)
	setString("words_allowed_file", raw.AllowedFile, &cfg.AllowedFile)
	setString("server_url", raw.ServerURL, &cfg.ServerURL)
	setString("stats_file", raw.StatsFile, &cfg.StatsFile)

	if meta.IsDefined("jwt_expires_days") {
		cfg.JWTExpires = time.Duration(raw.JWTExpiresDays) * 24 * time.Hour
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if meta.IsDefined("poll_interval_ms") {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}
	if meta.IsDefined("hard_mode") {
		cfg.HardMode = raw.HardMode
	}
	return nil
}

func applyEnv(cfg *Config) error {
	envString := func(k string, dst *string) {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}
	envString("PORT", &cfg.Port)
	envString("DB_PATH", &cfg.DBPath)
	envString("JWT_SECRET", &cfg.JWTSecret)
	envString("CLIENT_ORIGIN", &cfg.ClientOrigin)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("WORDS_ANSWERS_FILE", &cfg.AnswersFile)
	envString("WORDS_ALLOWED_FILE", &cfg.AllowedFile)
	envString("DUEL_SERVER_URL", &cfg.ServerURL)
	envString("DUEL_STATS_FILE", &cfg.StatsFile)

	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse JWT_EXPIRES_DAYS: %w", err)
		}
		cfg.JWTExpires = time.Duration(n) * 24 * time.Hour
	}
	if v := os.Getenv("DUEL_POLL_INTERVAL_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DUEL_POLL_INTERVAL_MS: %w", err)
		}
		cfg.PollInterval = time.Duration(n) * time.Millisecond
	}
	if v := os.Getenv("DUEL_HARD_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse DUEL_HARD_MODE: %w", err)
		}
		cfg.HardMode = b
	}
	return nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
