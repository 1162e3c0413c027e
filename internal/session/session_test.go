package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/chess/rules"
	"github.com/park285/Cheese-Analysis-Board/internal/evalcache"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) moves() []events.MoveMade {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.MoveMade
	for _, e := range r.events {
		if mm, ok := e.(events.MoveMade); ok {
			out = append(out, mm)
		}
	}
	return out
}

func (r *recorder) evaluations() []events.EvaluationUpdated {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.EvaluationUpdated
	for _, e := range r.events {
		if ev, ok := e.(events.EvaluationUpdated); ok {
			out = append(out, ev)
		}
	}
	return out
}

type fakeEvaluator struct {
	mu       sync.Mutex
	deliver  evaluation.DeliverFunc
	requests []evaluation.Request
	cached   map[string]evaluation.Result
	closed   bool
}

func (f *fakeEvaluator) Start(d evaluation.DeliverFunc) { f.deliver = d }

func (f *fakeEvaluator) Submit(req evaluation.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func (f *fakeEvaluator) Lookup(_ context.Context, fen string) (evaluation.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.cached[fen]
	return res, ok
}

func (f *fakeEvaluator) Close() { f.closed = true }

func (f *fakeEvaluator) last(t *testing.T) evaluation.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no evaluation requested")
	}
	return f.requests[len(f.requests)-1]
}

type fakeSelector struct {
	moves []string
	err   error
	calls int
}

func (f *fakeSelector) SelectMove(context.Context, board.Position) (board.Move, bool, error) {
	f.calls++
	if f.err != nil {
		return board.Move{}, false, f.err
	}
	if len(f.moves) == 0 {
		return board.Move{}, false, nil
	}
	mv, err := board.ParseUCI(f.moves[0])
	f.moves = f.moves[1:]
	if err != nil {
		return board.Move{}, false, nil
	}
	return mv, true, nil
}

func sq(t *testing.T, s string) board.Square {
	t.Helper()
	out, err := board.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return out
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *recorder, *fakeEvaluator) {
	t.Helper()
	rec := &recorder{}
	ev := &fakeEvaluator{cached: map[string]evaluation.Result{}}
	base := []Option{WithSink(rec), WithEvaluator(ev), WithAutoColor(board.NoColor)}
	s, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s, rec, ev
}

func click(t *testing.T, s *Session, squares ...string) {
	t.Helper()
	for _, name := range squares {
		if err := s.HandleClick(context.Background(), sq(t, name)); err != nil {
			t.Fatalf("HandleClick(%s): %v", name, err)
		}
	}
}

func TestE4RequestsEvaluation(t *testing.T) {
	s, rec, ev := newTestSession(t)
	click(t, s, "e2", "e4")

	moves := rec.moves()
	if len(moves) != 1 || moves[0].SAN != "e4" || moves[0].Mover != board.White {
		t.Fatalf("unexpected moves %+v", moves)
	}
	snap := s.Snapshot()
	if snap.Turn != board.Black {
		t.Fatalf("expected black to move")
	}
	req := ev.last(t)
	if req.FEN != snap.FEN || req.Mover != board.White {
		t.Fatalf("evaluation requested for %+v, live fen %s", req, snap.FEN)
	}
	if snap.Selected != nil {
		t.Fatalf("selection should be cleared after a move")
	}
}

func TestIllegalDestinationDeselects(t *testing.T) {
	s, rec, _ := newTestSession(t)
	before := s.Snapshot().FEN
	click(t, s, "e2", "e5")
	if len(rec.moves()) != 0 || s.Snapshot().FEN != before {
		t.Fatalf("illegal click must not move")
	}
	if s.Snapshot().Selected != nil {
		t.Fatalf("expected deselection")
	}
}

func TestStaleEvaluationNeverShown(t *testing.T) {
	s, rec, ev := newTestSession(t)
	click(t, s, "e2", "e4")
	p1 := ev.last(t)
	click(t, s, "d7", "d5")
	p2 := ev.last(t)
	if p1.FEN == p2.FEN || p1.Generation == p2.Generation {
		t.Fatalf("expected distinct requests")
	}

	ev.deliver(evaluation.Outcome{Request: p1, Result: evaluation.Result{FEN: p1.FEN, Score: evaluation.Centipawns(35), Source: evaluation.SourceCloud}})
	if got := rec.evaluations(); len(got) != 0 {
		t.Fatalf("stale evaluation displayed: %+v", got)
	}
	if s.Snapshot().Evaluation != nil {
		t.Fatalf("stale evaluation stored")
	}

	ev.deliver(evaluation.Outcome{Request: p2, Result: evaluation.Result{FEN: p2.FEN, Score: evaluation.Centipawns(20), Source: evaluation.SourceCloud}})
	got := rec.evaluations()
	if len(got) != 1 || got[0].FEN != p2.FEN || got[0].Mover != board.Black {
		t.Fatalf("unexpected evaluations %+v", got)
	}
	// white to move, side-to-move perspective
	if got[0].Display != "+0.2" {
		t.Fatalf("display = %q", got[0].Display)
	}
}

func TestCachedEvaluationShownInline(t *testing.T) {
	g := rules.NewStandard()
	if err := g.Apply(board.Move{From: board.Square{File: 4, Rank: 1}, To: board.Square{File: 4, Rank: 3}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	s, rec, ev := newTestSession(t)
	ev.cached[g.FEN()] = evaluation.Result{FEN: g.FEN(), Score: evaluation.Centipawns(30), Source: evaluation.SourceCloud}
	submitted := len(ev.requests)

	click(t, s, "e2", "e4")
	if len(ev.requests) != submitted {
		t.Fatalf("cache hit must not submit a fetch")
	}
	got := rec.evaluations()
	if len(got) != 1 || got[0].Source != evaluation.SourceCache || got[0].Display != "-0.3" {
		t.Fatalf("unexpected evaluations %+v", got)
	}
}

func TestFailedEvaluationShowsNoEvaluation(t *testing.T) {
	s, rec, ev := newTestSession(t)
	click(t, s, "g1", "f3")
	req := ev.last(t)
	ev.deliver(evaluation.Outcome{Request: req, Err: evaluation.ErrLocalEvaluation})
	got := rec.evaluations()
	if len(got) != 1 || got[0].Display != evaluation.NoEvaluationText {
		t.Fatalf("unexpected evaluations %+v", got)
	}
}

func TestAutoReply(t *testing.T) {
	sel := &fakeSelector{moves: []string{"e7e5"}}
	s, rec, _ := newTestSession(t, WithSelector(sel), WithAutoColor(board.Black))
	click(t, s, "e2", "e4")

	moves := rec.moves()
	if len(moves) != 2 || moves[1].SAN != "e5" || !moves[1].Auto || moves[1].Mover != board.Black {
		t.Fatalf("unexpected moves %+v", moves)
	}
	if s.Snapshot().Turn != board.White {
		t.Fatalf("expected white to move after reply")
	}
}

func TestAutoReplyIllegalDiscarded(t *testing.T) {
	sel := &fakeSelector{moves: []string{"e2e4"}}
	s, rec, _ := newTestSession(t, WithSelector(sel), WithAutoColor(board.Black))
	click(t, s, "d2", "d4")
	if len(rec.moves()) != 1 || s.Snapshot().Turn != board.Black {
		t.Fatalf("illegal reply must be discarded")
	}
}

func TestAutoReplyStatsFailureSkipsTurn(t *testing.T) {
	sel := &fakeSelector{err: errors.New("explorer down")}
	s, rec, _ := newTestSession(t, WithSelector(sel), WithAutoColor(board.Black))
	click(t, s, "d2", "d4")
	if sel.calls != 1 || len(rec.moves()) != 1 {
		t.Fatalf("expected one attempt and no reply")
	}
}

func TestFlipLetsWhiteAutoMoveFirst(t *testing.T) {
	sel := &fakeSelector{moves: []string{"d2d4"}}
	s, rec, _ := newTestSession(t, WithSelector(sel), WithAutoColor(board.Black))
	if err := s.Flip(context.Background()); err != nil {
		t.Fatalf("Flip: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Flipped || snap.AutoColor != board.White {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	moves := rec.moves()
	if len(moves) != 1 || moves[0].Mover != board.White || !moves[0].Auto {
		t.Fatalf("expected white auto move, got %+v", moves)
	}
	// the human now plays black from the bottom of the board
	click(t, s, "e2", "e4")
	if got := rec.moves(); len(got) != 2 || got[1].SAN != "d5" {
		t.Fatalf("expected d5 from flipped clicks, got %+v", got)
	}
}

func TestNewGameIndex(t *testing.T) {
	s, rec, _ := newTestSession(t, WithRand(rand.New(rand.NewPCG(9, 9))))
	if err := s.NewGame(context.Background(), -1); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	idx := s.Snapshot().StartIndex
	if idx < 0 || idx >= rules.Chess960Positions {
		t.Fatalf("index out of range: %d", idx)
	}
	if err := s.NewGame(context.Background(), rules.StandardIndex); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if s.Snapshot().FEN != rules.NewStandard().FEN() {
		t.Fatalf("index 518 must be the standard position")
	}
	if !s.Snapshot().Castling {
		t.Fatalf("standard start must report castling")
	}
	if err := s.NewGame(context.Background(), 0); err != nil {
		t.Fatalf("NewGame(0): %v", err)
	}
	if s.Snapshot().Castling {
		t.Fatalf("index 0 must report castling unavailable")
	}
	if err := s.NewGame(context.Background(), 960); err == nil {
		t.Fatalf("expected error for index 960")
	}

	var resets []events.GameReset
	for _, e := range rec.events {
		if gr, ok := e.(events.GameReset); ok {
			resets = append(resets, gr)
		}
	}
	if len(resets) != 4 {
		t.Fatalf("expected 4 resets, got %d", len(resets))
	}
	if last := resets[len(resets)-1]; last.StartIndex != 0 || last.Castling {
		t.Fatalf("unexpected last reset %+v", last)
	}
	if !resets[len(resets)-2].Castling {
		t.Fatalf("standard reset must carry castling")
	}
}

func TestClosedSessionRejectsInput(t *testing.T) {
	s, _, ev := newTestSession(t)
	s.Close()
	if !ev.closed {
		t.Fatalf("evaluator not closed")
	}
	if err := s.HandleClick(context.Background(), sq(t, "e2")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

// stallStore never answers until released or cancelled.
type stallStore struct {
	release chan struct{}
}

func (s *stallStore) Load(ctx context.Context, _ string) (evaluation.Result, bool, error) {
	select {
	case <-s.release:
		return evaluation.Result{}, false, nil
	case <-ctx.Done():
		return evaluation.Result{}, false, ctx.Err()
	}
}

func (s *stallStore) Save(context.Context, evaluation.Result) error { return nil }
func (s *stallStore) Close() error                                  { return nil }

func TestSlowCacheStoreDoesNotBlockClicks(t *testing.T) {
	store := &stallStore{release: make(chan struct{})}
	defer close(store.release)

	cache := evalcache.New(evalcache.WithStore(store))
	s, err := New(context.Background(),
		WithEvaluator(evaluation.NewPipeline(cache)),
		WithAutoColor(board.NoColor),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	start := time.Now()
	click(t, s, "e2", "e4")
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Fatalf("click waited on the backing store for %s", took)
	}
	if snap := s.Snapshot(); len(snap.Moves) != 1 {
		t.Fatalf("expected one move, got %d", len(snap.Moves))
	}
}
