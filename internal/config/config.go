package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	OriginPatterns []string `yaml:"origin_patterns"`
	MessagesDir    string   `yaml:"messages_dir"`
	SquareSize     int      `yaml:"square_size"`
	ShutdownSec    int      `yaml:"shutdown_sec"`

	StockfishPath       string   `yaml:"stockfish_path"`
	StockfishThreads    int      `yaml:"stockfish_threads"`
	StockfishHashMB     int      `yaml:"stockfish_hash_mb"`
	StockfishMinThinkMS int      `yaml:"stockfish_min_think_ms"`
	StockfishDepth      int      `yaml:"stockfish_depth"`
	StockfishPoolSize   int      `yaml:"stockfish_pool_size"`
	LocalEvalTimeoutSec int      `yaml:"local_eval_timeout_sec"`
	CloudEvalBaseURL    string   `yaml:"cloud_eval_base_url"`
	CloudEvalTimeoutMS  int      `yaml:"cloud_eval_timeout_ms"`
	LichessToken        string   `yaml:"lichess_token"`
	ExplorerBaseURL     string   `yaml:"explorer_base_url"`
	ExplorerDatabase    string   `yaml:"explorer_database"`
	ExplorerSpeeds      []string `yaml:"explorer_speeds"`
	ExplorerRatings     []string `yaml:"explorer_ratings"`
	ExplorerTimeoutMS   int      `yaml:"explorer_timeout_ms"`
	PolyglotBookPath    string   `yaml:"polyglot_book_path"`

	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	BadgerDir        string `yaml:"badger_dir"`
	EvalCacheTTLHour int    `yaml:"eval_cache_ttl_hours"`

	EvalPerspective string `yaml:"eval_perspective"`
	Promotion       string `yaml:"promotion"`
	AutoColor       string `yaml:"auto_color"`
	StartIndex      int    `yaml:"start_index"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:          ":8080",
		SquareSize:          64,
		ShutdownSec:         10,
		StockfishThreads:    2,
		StockfishHashMB:     64,
		StockfishMinThinkMS: 30,
		StockfishDepth:      15,
		StockfishPoolSize:   2,
		LocalEvalTimeoutSec: 30,
		CloudEvalTimeoutMS:  3000,
		ExplorerDatabase:    "lichess",
		ExplorerTimeoutMS:   5000,
		EvalCacheTTLHour:    24 * 30,
		EvalPerspective:     "side",
		Promotion:           "q",
		AutoColor:           "black",
		StartIndex:          518,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by BOARD_CONFIG_FILE, and environment variables, in that order.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("BOARD_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	envString(&cfg.ListenAddr, "BOARD_LISTEN_ADDR")
	envList(&cfg.OriginPatterns, "BOARD_WS_ORIGINS")
	envString(&cfg.MessagesDir, "BOARD_MESSAGES_DIR")
	envInt(&cfg.SquareSize, "BOARD_SQUARE_SIZE")
	envInt(&cfg.ShutdownSec, "BOARD_SHUTDOWN_SEC")

	envString(&cfg.StockfishPath, "STOCKFISH_PATH")
	envInt(&cfg.StockfishThreads, "STOCKFISH_THREADS")
	envInt(&cfg.StockfishHashMB, "STOCKFISH_HASH_MB")
	envInt(&cfg.StockfishMinThinkMS, "STOCKFISH_MIN_THINK_MS")
	envInt(&cfg.StockfishDepth, "STOCKFISH_DEPTH")
	envInt(&cfg.StockfishPoolSize, "STOCKFISH_POOL_SIZE")
	envInt(&cfg.LocalEvalTimeoutSec, "LOCAL_EVAL_TIMEOUT_SEC")

	envString(&cfg.CloudEvalBaseURL, "CLOUD_EVAL_BASE_URL")
	envInt(&cfg.CloudEvalTimeoutMS, "CLOUD_EVAL_TIMEOUT_MS")
	envString(&cfg.LichessToken, "LICHESS_TOKEN")

	envString(&cfg.ExplorerBaseURL, "EXPLORER_BASE_URL")
	envString(&cfg.ExplorerDatabase, "EXPLORER_DATABASE")
	envList(&cfg.ExplorerSpeeds, "EXPLORER_SPEEDS")
	envList(&cfg.ExplorerRatings, "EXPLORER_RATINGS")
	envInt(&cfg.ExplorerTimeoutMS, "EXPLORER_TIMEOUT_MS")
	envString(&cfg.PolyglotBookPath, "CHESS_POLYGLOT_BOOK_PATH")

	envString(&cfg.RedisURL, "REDIS_URL")
	envString(&cfg.DatabaseURL, "DATABASE_URL")
	envString(&cfg.BadgerDir, "EVAL_BADGER_DIR")
	envInt(&cfg.EvalCacheTTLHour, "EVAL_CACHE_TTL_HOURS")

	envString(&cfg.EvalPerspective, "EVAL_PERSPECTIVE")
	envString(&cfg.Promotion, "BOARD_PROMOTION")
	envString(&cfg.AutoColor, "BOARD_AUTO_COLOR")
	if v := strings.TrimSpace(os.Getenv("BOARD_START_INDEX")); v != "" {
		// negative values are meaningful here
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StartIndex = n
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	c.ExplorerDatabase = strings.ToLower(strings.TrimSpace(c.ExplorerDatabase))
	if c.ExplorerDatabase != "lichess" && c.ExplorerDatabase != "masters" {
		return fmt.Errorf("EXPLORER_DATABASE must be lichess or masters, got %q", c.ExplorerDatabase)
	}
	c.EvalPerspective = strings.ToLower(strings.TrimSpace(c.EvalPerspective))
	if c.EvalPerspective != "side" && c.EvalPerspective != "white" {
		return fmt.Errorf("EVAL_PERSPECTIVE must be side or white, got %q", c.EvalPerspective)
	}
	switch strings.ToLower(strings.TrimSpace(c.AutoColor)) {
	case "white", "black", "none", "":
	default:
		return fmt.Errorf("BOARD_AUTO_COLOR must be white, black or none, got %q", c.AutoColor)
	}
	switch strings.ToLower(strings.TrimSpace(c.Promotion)) {
	case "q", "r", "b", "n":
	default:
		return fmt.Errorf("BOARD_PROMOTION must be one of q, r, b, n, got %q", c.Promotion)
	}
	if c.StartIndex < -1 || c.StartIndex >= 960 {
		return errors.New("BOARD_START_INDEX must be -1 (random) or in [0, 960)")
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("BOARD_LISTEN_ADDR is required")
	}
	return nil
}

func (c *AppConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSec) * time.Second
}

func (c *AppConfig) CloudEvalTimeout() time.Duration {
	return time.Duration(c.CloudEvalTimeoutMS) * time.Millisecond
}

func (c *AppConfig) LocalEvalTimeout() time.Duration {
	return time.Duration(c.LocalEvalTimeoutSec) * time.Second
}

func (c *AppConfig) ExplorerTimeout() time.Duration {
	return time.Duration(c.ExplorerTimeoutMS) * time.Millisecond
}

func (c *AppConfig) EvalCacheTTL() time.Duration {
	return time.Duration(c.EvalCacheTTLHour) * time.Hour
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envList(dst *[]string, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
