package session

import (
	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/park285/Cheese-Analysis-Board/internal/events"
	"github.com/park285/Cheese-Analysis-Board/internal/selection"
)

// Snapshot is a consistent copy of the session state for presentation.
// Squares in Selected and Destinations are view coordinates; Pieces is
// indexed by game coordinates as [file][rank].
type Snapshot struct {
	ID           string
	FEN          string
	StartIndex   int
	Castling     bool
	Flipped      bool
	Turn         board.Color
	AutoColor    board.Color
	Promotion    board.PieceKind
	Pieces       [8][8]board.Piece
	Selected     *board.Square
	Destinations []board.Square
	Moves        []selection.MoveRecord
	Evaluation   *events.EvaluationUpdated
	Evaluations  []events.EvaluationUpdated
	OpeningCode  string
	OpeningName  string
	Outcome      string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id,
		FEN:         s.game.FEN(),
		StartIndex:  s.startIndex,
		Castling:    s.game.StartCastling(),
		Flipped:     s.flipped,
		Turn:        s.game.Turn(),
		AutoColor:   s.autoColor,
		Promotion:   s.promotion,
		Moves:       s.machine.MoveLog(),
		Evaluations: append([]events.EvaluationUpdated(nil), s.evals...),
		Outcome:     s.game.Outcome(),
	}
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			snap.Pieces[f][r] = s.game.PieceAt(board.Square{File: f, Rank: r})
		}
	}
	if origin, dests, ok := s.machine.Selection(); ok {
		snap.Selected = &origin
		snap.Destinations = dests
	}
	if s.lastEval != nil {
		ev := *s.lastEval
		snap.Evaluation = &ev
	}
	if code, name, ok := s.game.Opening(); ok {
		snap.OpeningCode, snap.OpeningName = code, name
	}
	return snap
}

// PieceAtView returns the piece shown on a view square.
func (snap Snapshot) PieceAtView(view board.Square) board.Piece {
	if !view.Valid() {
		return board.NoPiece
	}
	sq := board.Orientation{Flipped: snap.Flipped}.ToGame(view)
	return snap.Pieces[sq.File][sq.Rank]
}
