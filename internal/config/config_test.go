package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOARD_CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StartIndex != 518 || cfg.ExplorerDatabase != "lichess" || cfg.EvalPerspective != "side" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CloudEvalTimeout() != 3*time.Second || cfg.StockfishMinThinkMS != 30 || cfg.StockfishThreads != 2 {
		t.Fatalf("unexpected engine defaults %+v", cfg)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	body := "explorer_database: masters\nexplorer_speeds: [blitz, rapid]\nstart_index: 100\nauto_color: white\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOARD_CONFIG_FILE", path)
	t.Setenv("BOARD_START_INDEX", "-1")
	t.Setenv("EXPLORER_SPEEDS", "bullet, classical")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ExplorerDatabase != "masters" || cfg.AutoColor != "white" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.StartIndex != -1 {
		t.Fatalf("env should override yaml, got %d", cfg.StartIndex)
	}
	if len(cfg.ExplorerSpeeds) != 2 || cfg.ExplorerSpeeds[1] != "classical" {
		t.Fatalf("unexpected speeds %v", cfg.ExplorerSpeeds)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"EXPLORER_DATABASE": "chessbase",
		"EVAL_PERSPECTIVE":  "black",
		"BOARD_PROMOTION":   "k",
		"BOARD_START_INDEX": "960",
		"BOARD_AUTO_COLOR":  "green",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("BOARD_CONFIG_FILE", "")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("BOARD_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
