package chess

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/chess/uci"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"go.uber.org/zap"
)

const (
	defaultThreads             = 2
	defaultHashMB              = 64
	defaultMinimumThinkingTime = 30
	defaultDepth               = 15
)

type EngineConfig struct {
	BinaryPath          string
	Threads             int
	HashMB              int
	MinimumThinkingTime int
	Depth               int
	MoveTimeMillis      int
	Capacity            int
	Logger              *zap.Logger
}

// Engine evaluates positions with a pooled local UCI engine.
type Engine struct {
	pool   *uci.Pool
	opt    uci.Options
	limits uci.Limits
	logger *zap.Logger
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := uci.NewPool(uci.PoolConfig{BinaryPath: cfg.BinaryPath, Capacity: cfg.Capacity, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &Engine{
		pool:   pool,
		opt:    optionsFromConfig(cfg),
		limits: limitsFromConfig(cfg),
		logger: logger,
	}, nil
}

func optionsFromConfig(cfg EngineConfig) uci.Options {
	opt := uci.Options{
		Threads:             cfg.Threads,
		HashMB:              cfg.HashMB,
		MultiPV:             1,
		MinimumThinkingTime: cfg.MinimumThinkingTime,
	}
	if opt.Threads <= 0 {
		opt.Threads = defaultThreads
	}
	if opt.HashMB <= 0 {
		opt.HashMB = defaultHashMB
	}
	if opt.MinimumThinkingTime <= 0 {
		opt.MinimumThinkingTime = defaultMinimumThinkingTime
	}
	return opt
}

func limitsFromConfig(cfg EngineConfig) uci.Limits {
	l := uci.Limits{Depth: cfg.Depth, MoveTimeMillis: cfg.MoveTimeMillis}
	if l.Depth <= 0 && l.MoveTimeMillis <= 0 {
		l.Depth = defaultDepth
	}
	return l
}

var _ evaluation.Local = (*Engine)(nil)

// Analyze searches fen and returns a White-relative score.
func (e *Engine) Analyze(ctx context.Context, fen string) (evaluation.Result, error) {
	session, err := e.pool.Acquire(ctx, e.opt)
	if err != nil {
		return evaluation.Result{}, err
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return evaluation.Result{}, err
	}

	start := time.Now()
	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: e.limits})
	if err != nil {
		releaseErr = err
		return evaluation.Result{}, err
	}
	if len(resp.Candidates) == 0 {
		return evaluation.Result{}, fmt.Errorf("engine returned no candidates")
	}

	best := resp.Candidates[0]
	score := evaluation.FromSideToMove(evaluation.Score{CP: best.CP, Mate: best.Mate}, board.SideToMoveFromFEN(fen))
	e.logger.Debug("engine_analyze",
		zap.String("fen", fen),
		zap.Int("depth", best.Depth),
		zap.String("best", resp.BestMove),
		zap.Duration("took", time.Since(start)),
	)
	return evaluation.Result{FEN: fen, Score: score, Source: evaluation.SourceLocal, Depth: best.Depth}, nil
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}
