package chess

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	opt := optionsFromConfig(EngineConfig{})
	if opt.Threads != 2 || opt.MinimumThinkingTime != 30 || opt.MultiPV != 1 || opt.HashMB <= 0 {
		t.Fatalf("unexpected defaults: %+v", opt)
	}
	l := limitsFromConfig(EngineConfig{})
	if l.Depth != defaultDepth {
		t.Fatalf("expected default depth, got %+v", l)
	}
	l = limitsFromConfig(EngineConfig{MoveTimeMillis: 200})
	if l.Depth != 0 || l.MoveTimeMillis != 200 {
		t.Fatalf("movetime should replace default depth: %+v", l)
	}
}

func TestNewEngineRequiresBinary(t *testing.T) {
	if _, err := NewEngine(EngineConfig{BinaryPath: "/nonexistent/stockfish"}); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestAnalyzeWithStockfish(t *testing.T) {
	path := os.Getenv("STOCKFISH_PATH")
	if path == "" {
		t.Skip("STOCKFISH_PATH not set")
	}
	e, err := NewEngine(EngineConfig{BinaryPath: path, Depth: 8})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	// fool's mate: black to move plays Qh4#
	res, err := e.Analyze(ctx, "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Score.Mate == nil || *res.Score.Mate >= 0 {
		t.Fatalf("expected black mate (negative, white-relative), got %+v", res.Score)
	}
}
