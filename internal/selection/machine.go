package selection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"go.uber.org/zap"
)

var ErrIllegalMove = errors.New("illegal move attempt")

type State int

const (
	Idle State = iota
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

type TransitionKind int

const (
	NoChange TransitionKind = iota
	SelectionChanged
	MoveMade
	MoveRejected
)

// MoveRecord is one entry of the move log.
type MoveRecord struct {
	Ply   int
	SAN   string
	UCI   string
	Mover board.Color
}

// Transition describes the effect of one input event.
// Origin and Destinations are in view coordinates.
type Transition struct {
	Kind         TransitionKind
	State        State
	Origin       *board.Square
	Destinations []board.Square
	Record       *MoveRecord
}

type Option func(*Machine)

func WithPromotion(kind board.PieceKind) Option {
	return func(m *Machine) {
		if kind != board.NoKind && kind != board.King && kind != board.Pawn {
			m.promotion = kind
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithOrientation(o board.Orientation) Option {
	return func(m *Machine) { m.orient = o }
}

// Machine is the click-driven selection state machine over a position.
type Machine struct {
	mu        sync.Mutex
	pos       board.Position
	orient    board.Orientation
	promotion board.PieceKind
	logger    *zap.Logger

	state  State
	origin board.Square
	dests  []board.Square // game coordinates
	log    []MoveRecord
}

func New(pos board.Position, opts ...Option) *Machine {
	m := &Machine{
		pos:       pos,
		promotion: board.Queen,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HandleClick routes a click on a view square through the state machine.
// The returned error is non-nil only when the rules engine refuses a move it
// reported as legal.
func (m *Machine) HandleClick(view board.Square) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !view.Valid() || m.pos == nil {
		return m.transitionLocked(NoChange, nil), nil
	}
	sq := m.orient.ToGame(view)

	if m.state == Idle {
		if !m.ownPieceLocked(sq) {
			return m.transitionLocked(NoChange, nil), nil
		}
		m.selectLocked(sq)
		return m.transitionLocked(SelectionChanged, nil), nil
	}

	if sq == m.origin {
		m.clearLocked()
		return m.transitionLocked(SelectionChanged, nil), nil
	}
	if m.ownPieceLocked(sq) {
		m.selectLocked(sq)
		return m.transitionLocked(SelectionChanged, nil), nil
	}

	candidate := board.Move{From: m.origin, To: sq}
	if m.needsPromotionLocked(candidate) {
		candidate.Promotion = m.promotion
	}
	rec, err := m.applyLocked(candidate)
	m.clearLocked()
	if errors.Is(err, ErrIllegalMove) {
		return m.transitionLocked(MoveRejected, nil), nil
	}
	if err != nil {
		return m.transitionLocked(NoChange, nil), err
	}
	return m.transitionLocked(MoveMade, &rec), nil
}

// ApplyMove applies a move produced outside the click flow, such as an
// automated reply. Illegal moves return ErrIllegalMove and change nothing.
func (m *Machine) ApplyMove(mv board.Move) (MoveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return MoveRecord{}, ErrIllegalMove
	}
	rec, err := m.applyLocked(mv)
	if err != nil {
		return MoveRecord{}, err
	}
	m.clearLocked()
	return rec, nil
}

// LegalDestinationsFrom lists the legal targets of the piece on a view
// square, in view coordinates.
func (m *Machine) LegalDestinationsFrom(view board.Square) []board.Square {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return nil
	}
	return m.orient.ViewSquares(m.destinationsLocked(m.orient.ToGame(view)))
}

// Selection returns the selected origin and its destinations in view
// coordinates. ok is false while idle.
func (m *Machine) Selection() (origin board.Square, dests []board.Square, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Selected {
		return board.Square{}, nil, false
	}
	return m.orient.ToView(m.origin), m.orient.ViewSquares(m.dests), true
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) SetOrientation(flipped bool) {
	m.mu.Lock()
	m.orient = board.Orientation{Flipped: flipped}
	m.mu.Unlock()
}

func (m *Machine) Flip() board.Orientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orient = m.orient.Flip()
	return m.orient
}

func (m *Machine) Orientation() board.Orientation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orient
}

func (m *Machine) SetPromotion(kind board.PieceKind) {
	m.mu.Lock()
	WithPromotion(kind)(m)
	m.mu.Unlock()
}

// Reset swaps in a new position and clears the selection and move log.
func (m *Machine) Reset(pos board.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
	m.clearLocked()
	m.log = nil
}

func (m *Machine) MoveLog() []MoveRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MoveRecord(nil), m.log...)
}

func (m *Machine) Position() board.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *Machine) ownPieceLocked(sq board.Square) bool {
	p := m.pos.PieceAt(sq)
	return !p.IsZero() && p.Color == m.pos.Turn()
}

func (m *Machine) selectLocked(sq board.Square) {
	m.state = Selected
	m.origin = sq
	m.dests = m.destinationsLocked(sq)
}

func (m *Machine) clearLocked() {
	m.state = Idle
	m.origin = board.Square{}
	m.dests = nil
}

func (m *Machine) destinationsLocked(from board.Square) []board.Square {
	var out []board.Square
	seen := make(map[board.Square]bool)
	for _, mv := range m.pos.LegalMoves() {
		if mv.From != from || seen[mv.To] {
			continue
		}
		seen[mv.To] = true
		out = append(out, mv.To)
	}
	return out
}

func (m *Machine) needsPromotionLocked(mv board.Move) bool {
	p := m.pos.PieceAt(mv.From)
	if p.Kind != board.Pawn {
		return false
	}
	return (p.Color == board.White && mv.To.Rank == 7) || (p.Color == board.Black && mv.To.Rank == 0)
}

func (m *Machine) applyLocked(mv board.Move) (MoveRecord, error) {
	if !board.ContainsMove(m.pos.LegalMoves(), mv) {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrIllegalMove, mv.UCI())
	}
	mover := m.pos.Turn()
	san, err := m.pos.SAN(mv)
	if err != nil {
		m.logger.Warn("san_fallback_uci", zap.String("move", mv.UCI()), zap.Error(err))
		san = mv.UCI()
	}
	if err := m.pos.Apply(mv); err != nil {
		return MoveRecord{}, fmt.Errorf("apply legal move %s: %w", mv.UCI(), err)
	}
	rec := MoveRecord{Ply: len(m.log) + 1, SAN: san, UCI: mv.UCI(), Mover: mover}
	m.log = append(m.log, rec)
	return rec, nil
}

func (m *Machine) transitionLocked(kind TransitionKind, rec *MoveRecord) Transition {
	t := Transition{Kind: kind, State: m.state, Record: rec}
	if m.state == Selected {
		origin := m.orient.ToView(m.origin)
		t.Origin = &origin
		t.Destinations = m.orient.ViewSquares(m.dests)
	}
	return t
}
