package events

import (
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
)

type Kind string

const (
	KindMoveMade           Kind = "move_made"
	KindEvaluationUpdated  Kind = "evaluation_updated"
	KindSelectionChanged   Kind = "selection_changed"
	KindGameReset          Kind = "game_reset"
	KindOrientationChanged Kind = "orientation_changed"
)

type Event interface {
	Kind() Kind
}

type MoveMade struct {
	SAN   string
	UCI   string
	Mover board.Color
	Ply   int
	FEN   string
	// Auto is set when the move came from the statistical selector.
	Auto bool
}

func (MoveMade) Kind() Kind { return KindMoveMade }

type EvaluationUpdated struct {
	Display string
	Mover   board.Color
	FEN     string
	Source  evaluation.Source
	Score   evaluation.Score
}

func (EvaluationUpdated) Kind() Kind { return KindEvaluationUpdated }

// SelectionChanged carries view coordinates. Origin is nil when cleared.
type SelectionChanged struct {
	Origin       *board.Square
	Destinations []board.Square
}

func (SelectionChanged) Kind() Kind { return KindSelectionChanged }

type GameReset struct {
	SessionID  string
	StartIndex int
	FEN        string
	Flipped    bool
	AutoColor  board.Color
	// Castling is false when the start position carries no castling rights.
	Castling bool
}

func (GameReset) Kind() Kind { return KindGameReset }

type OrientationChanged struct {
	Flipped bool
}

func (OrientationChanged) Kind() Kind { return KindOrientationChanged }

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})
