package explorer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrStatsFetchFailed = errors.New("statistics fetch failed")

// MoveCount is the number of recorded games that continued with UCI.
type MoveCount struct {
	UCI   string
	SAN   string
	Count int64
}

// Sample maps candidate moves to game counts for a single position.
type Sample []MoveCount

func (s Sample) Total() int64 {
	var total int64
	for _, mc := range s {
		if mc.Count > 0 {
			total += mc.Count
		}
	}
	return total
}

// Source returns aggregated move statistics for a position.
type Source interface {
	Sample(ctx context.Context, fen string) (Sample, error)
}

// Choose draws one move with probability count/total. Moves with a count of
// zero or less are never drawn. ok is false when nothing can be drawn.
func Choose(sample Sample, src rand.Source) (string, bool) {
	moves := make([]string, 0, len(sample))
	weights := make([]float64, 0, len(sample))
	for _, mc := range sample {
		if mc.Count <= 0 || mc.UCI == "" {
			continue
		}
		moves = append(moves, mc.UCI)
		weights = append(weights, float64(mc.Count))
	}
	switch len(moves) {
	case 0:
		return "", false
	case 1:
		return moves[0], true
	}
	idx := int(distuv.NewCategorical(weights, src).Rand())
	return moves[idx], true
}

type SelectorOption func(*Selector)

func WithRandSource(src rand.Source) SelectorOption {
	return func(s *Selector) {
		if src != nil {
			s.rng = src
		}
	}
}

func WithSelectorLogger(l *zap.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// Selector picks automated replies from a statistics source.
type Selector struct {
	source Source
	logger *zap.Logger

	mu  sync.Mutex
	rng rand.Source
}

func NewSelector(source Source, opts ...SelectorOption) *Selector {
	seed := uint64(time.Now().UnixNano())
	s := &Selector{
		source: source,
		logger: zap.NewNop(),
		rng:    rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectMove samples a reply for pos. The move is not checked for legality.
// ok is false when the source has no usable data for the position.
func (s *Selector) SelectMove(ctx context.Context, pos board.Position) (board.Move, bool, error) {
	if s == nil || s.source == nil || pos == nil {
		return board.Move{}, false, nil
	}
	fen := pos.FEN()
	sample, err := s.source.Sample(ctx, fen)
	if err != nil {
		if !errors.Is(err, ErrStatsFetchFailed) {
			err = fmt.Errorf("%w: %w", ErrStatsFetchFailed, err)
		}
		return board.Move{}, false, err
	}

	s.mu.Lock()
	uci, ok := Choose(sample, s.rng)
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("selector_empty_sample", zap.String("fen", fen), zap.Int("moves", len(sample)))
		return board.Move{}, false, nil
	}

	mv, err := board.ParseUCI(uci)
	if err != nil {
		s.logger.Warn("selector_bad_move", zap.String("fen", fen), zap.String("move", uci), zap.Error(err))
		return board.Move{}, false, nil
	}
	mv = normalizeCastling(pos, mv)
	s.logger.Debug("selector_pick",
		zap.String("fen", fen),
		zap.String("move", uci),
		zap.Int64("total", sample.Total()),
	)
	return mv, true, nil
}

// normalizeCastling rewrites king-takes-own-rook castling notation to the
// king destination used by the rules engine, when that move is legal.
func normalizeCastling(pos board.Position, mv board.Move) board.Move {
	from, to := pos.PieceAt(mv.From), pos.PieceAt(mv.To)
	if from.Kind != board.King || to.Kind != board.Rook || from.Color != to.Color || mv.From.Rank != mv.To.Rank {
		return mv
	}
	target := board.Square{File: 6, Rank: mv.From.Rank}
	if mv.To.File < mv.From.File {
		target.File = 2
	}
	alt := board.Move{From: mv.From, To: target}
	if board.ContainsMove(pos.LegalMoves(), alt) {
		return alt
	}
	return mv
}
