package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/chess/rules"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/selection"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("session closed")

const defaultAutoMoveTimeout = 5 * time.Second

// MoveSelector proposes automated replies. Proposals are untrusted.
type MoveSelector interface {
	SelectMove(ctx context.Context, pos board.Position) (board.Move, bool, error)
}

// Evaluator is the asynchronous evaluation pipeline as seen by a session.
type Evaluator interface {
	Start(deliver evaluation.DeliverFunc)
	Submit(req evaluation.Request)
	// Lookup runs under the session lock and must only consult memory.
	Lookup(ctx context.Context, fen string) (evaluation.Result, bool)
	Close()
}

type Option func(*Session)

func WithSelector(sel MoveSelector) Option { return func(s *Session) { s.selector = sel } }
func WithEvaluator(ev Evaluator) Option    { return func(s *Session) { s.evaluator = ev } }

func WithSink(sink events.Sink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAutoColor sets the side played by the selector. board.NoColor turns
// automated play off.
func WithAutoColor(c board.Color) Option { return func(s *Session) { s.autoColor = c } }

func WithPromotion(kind board.PieceKind) Option { return func(s *Session) { s.promotion = kind } }

func WithPerspective(p evaluation.Perspective) Option {
	return func(s *Session) { s.perspective = p }
}

// WithStartIndex picks the Chess960 start index of the first game.
// A negative index draws one at random.
func WithStartIndex(index int) Option { return func(s *Session) { s.startIndex = index } }

func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		if r != nil {
			s.rng = r
		}
	}
}

func WithAutoMoveTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.autoTimeout = d
		}
	}
}

// Session owns one analysis board. Its exported methods are serialised and
// form the interaction thread; evaluation results arrive from the pipeline
// worker and are matched against the live position before being shown.
type Session struct {
	id          string
	selector    MoveSelector
	evaluator   Evaluator
	sink        events.Sink
	logger      *zap.Logger
	perspective evaluation.Perspective
	promotion   board.PieceKind
	autoTimeout time.Duration

	mu         sync.Mutex
	rng        *rand.Rand
	game       *rules.Game
	machine    *selection.Machine
	startIndex int
	autoColor  board.Color
	flipped    bool
	generation uint64
	lastEval   *events.EvaluationUpdated
	evals      []events.EvaluationUpdated
	closed     bool
}

func New(ctx context.Context, opts ...Option) (*Session, error) {
	seed := uint64(time.Now().UnixNano())
	s := &Session{
		id:          uuid.NewString(),
		sink:        events.Discard,
		logger:      zap.NewNop(),
		perspective: evaluation.PerspectiveSideToMove,
		promotion:   board.Queen,
		autoTimeout: defaultAutoMoveTimeout,
		rng:         rand.New(rand.NewPCG(seed, seed>>1)),
		startIndex:  rules.StandardIndex,
		autoColor:   board.Black,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	s.machine = selection.New(nil,
		selection.WithPromotion(s.promotion),
		selection.WithLogger(s.logger),
	)
	if s.evaluator != nil {
		s.evaluator.Start(s.deliver)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(ctx, s.startIndex); err != nil {
		if s.evaluator != nil {
			s.evaluator.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

// HandleClick feeds one click on a view square through the selection
// machine. A move that is not legal is treated as a deselection.
func (s *Session) HandleClick(ctx context.Context, view board.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tr, err := s.machine.HandleClick(view)
	if err != nil {
		return err
	}
	switch tr.Kind {
	case selection.SelectionChanged:
		s.sink.Emit(events.SelectionChanged{Origin: tr.Origin, Destinations: tr.Destinations})
	case selection.MoveRejected:
		s.logger.Debug("click_move_rejected", zap.String("square", view.String()))
		s.sink.Emit(events.SelectionChanged{})
	case selection.MoveMade:
		s.afterMoveLocked(ctx, *tr.Record, false)
		s.sink.Emit(events.SelectionChanged{})
		return s.autoReplyLocked(ctx)
	}
	return nil
}

// Flip turns the board around and starts a new game from the same start
// index. With the board flipped the human plays Black and the automated
// side moves first.
func (s *Session) Flip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.flipped = !s.flipped
	s.machine.SetOrientation(s.flipped)
	if s.autoColor != board.NoColor {
		s.autoColor = board.Black
		if s.flipped {
			s.autoColor = board.White
		}
	}
	s.sink.Emit(events.OrientationChanged{Flipped: s.flipped})
	return s.resetLocked(ctx, s.startIndex)
}

// NewGame replaces the position with the Chess960 start position index.
// A negative index draws one uniformly from [0, 960).
func (s *Session) NewGame(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.resetLocked(ctx, index)
}

func (s *Session) SetPromotion(kind board.PieceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotion = kind
	s.machine.SetPromotion(kind)
}

// SetAutoColor changes the automated side and lets it move at once if it is
// now on turn.
func (s *Session) SetAutoColor(ctx context.Context, c board.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.autoColor = c
	return s.autoReplyLocked(ctx)
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	if s.evaluator != nil {
		s.evaluator.Close()
	}
}

func (s *Session) resetLocked(ctx context.Context, index int) error {
	if index < 0 {
		index = s.rng.IntN(rules.Chess960Positions)
	}
	game, err := rules.NewChess960(index)
	if err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	s.game = game
	s.startIndex = index
	s.machine.Reset(game)
	s.lastEval = nil
	s.evals = nil

	s.logger.Info("game_reset",
		zap.Int("start_index", index),
		zap.String("fen", game.FEN()),
		zap.Bool("flipped", s.flipped),
		zap.String("auto_color", s.autoColor.String()),
		zap.Bool("castling", game.StartCastling()),
	)
	s.sink.Emit(events.GameReset{
		SessionID:  s.id,
		StartIndex: index,
		FEN:        game.FEN(),
		Flipped:    s.flipped,
		AutoColor:  s.autoColor,
		Castling:   game.StartCastling(),
	})
	s.requestEvaluationLocked(ctx, board.NoColor)
	return s.autoReplyLocked(ctx)
}

func (s *Session) afterMoveLocked(ctx context.Context, rec selection.MoveRecord, auto bool) {
	fen := s.game.FEN()
	s.logger.Info("move_made",
		zap.Int("ply", rec.Ply),
		zap.String("san", rec.SAN),
		zap.String("uci", rec.UCI),
		zap.String("mover", rec.Mover.String()),
		zap.Bool("auto", auto),
	)
	s.sink.Emit(events.MoveMade{
		SAN:   rec.SAN,
		UCI:   rec.UCI,
		Mover: rec.Mover,
		Ply:   rec.Ply,
		FEN:   fen,
		Auto:  auto,
	})
	s.requestEvaluationLocked(ctx, rec.Mover)
}

// autoReplyLocked lets the selector move while it is on turn. Failures and
// illegal proposals skip the automated move for this turn.
func (s *Session) autoReplyLocked(ctx context.Context) error {
	if s.selector == nil || s.autoColor == board.NoColor {
		return nil
	}
	if s.game.Turn() != s.autoColor || s.game.Outcome() != "" {
		return nil
	}

	actx, cancel := context.WithTimeout(ctx, s.autoTimeout)
	defer cancel()
	mv, ok, err := s.selector.SelectMove(actx, s.game)
	if err != nil {
		s.logger.Info("auto_move_skipped", zap.Error(err))
		return nil
	}
	if !ok {
		s.logger.Debug("auto_move_unavailable", zap.String("fen", s.game.FEN()))
		return nil
	}

	rec, err := s.machine.ApplyMove(mv)
	if errors.Is(err, selection.ErrIllegalMove) {
		s.logger.Warn("auto_move_discarded", zap.String("move", mv.UCI()), zap.String("fen", s.game.FEN()))
		return nil
	}
	if err != nil {
		return err
	}
	s.afterMoveLocked(ctx, rec, true)
	return nil
}

// requestEvaluationLocked moves the session to a new generation and asks for
// the live position's evaluation. Cache hits are shown at once.
func (s *Session) requestEvaluationLocked(ctx context.Context, mover board.Color) {
	s.generation++
	if s.evaluator == nil {
		return
	}
	fen := s.game.FEN()
	if res, ok := s.evaluator.Lookup(ctx, fen); ok {
		res.Source = evaluation.SourceCache
		s.showLocked(res, mover)
		return
	}
	s.evaluator.Submit(evaluation.Request{FEN: fen, Generation: s.generation, Mover: mover})
}

// deliver runs on the pipeline worker.
func (s *Session) deliver(out evaluation.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if out.Request.Generation != s.generation || out.Request.FEN != s.game.FEN() {
		s.logger.Debug("eval_stale_discarded",
			zap.String("fen", out.Request.FEN),
			zap.Uint64("generation", out.Request.Generation),
			zap.Uint64("live_generation", s.generation),
		)
		return
	}
	if out.Err != nil {
		s.logger.Warn("eval_unavailable", zap.String("fen", out.Request.FEN), zap.Error(out.Err))
		s.showLocked(evaluation.Result{FEN: out.Request.FEN}, out.Request.Mover)
		return
	}
	s.showLocked(out.Result, out.Request.Mover)
}

func (s *Session) showLocked(res evaluation.Result, mover board.Color) {
	fen := s.game.FEN()
	ev := events.EvaluationUpdated{
		Display: evaluation.Display(res.Score, fen, s.perspective),
		Mover:   mover,
		FEN:     fen,
		Source:  res.Source,
		Score:   res.Score,
	}
	s.lastEval = &ev
	s.evals = append(s.evals, ev)
	s.sink.Emit(ev)
}
