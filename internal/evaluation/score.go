package evaluation

import (
	"fmt"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
)

const NoEvaluationText = "No evaluation"

type Source string

const (
	SourceNone  Source = ""
	SourceCache Source = "cache"
	SourceCloud Source = "cloud"
	SourceLocal Source = "local"
)

// Score is a position score from White's point of view.
// At most one of CP and Mate is set.
type Score struct {
	CP   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

func Centipawns(cp int) Score { return Score{CP: &cp} }
func MateIn(n int) Score      { return Score{Mate: &n} }

func (s Score) Empty() bool { return s.CP == nil && s.Mate == nil }

// Negate flips the point of view.
func (s Score) Negate() Score {
	var out Score
	if s.CP != nil {
		v := -*s.CP
		out.CP = &v
	}
	if s.Mate != nil {
		v := -*s.Mate
		out.Mate = &v
	}
	return out
}

// ForSideToMove re-expresses a White-relative score for the side to move.
func (s Score) ForSideToMove(turn board.Color) Score {
	if turn == board.Black {
		return s.Negate()
	}
	return s
}

// FromSideToMove converts an engine score reported for the side to move
// into a White-relative score.
func FromSideToMove(s Score, turn board.Color) Score {
	return s.ForSideToMove(turn)
}

// Text renders the score. Mate scores use ♔ for a positive count and ♚ for a
// negative one.
func (s Score) Text() string {
	switch {
	case s.Mate != nil && *s.Mate != 0:
		m := *s.Mate
		marker := " ♔"
		if m < 0 {
			marker = " ♚"
			m = -m
		}
		return fmt.Sprintf("Mate in %d%s", m, marker)
	case s.CP != nil:
		v := float64(*s.CP) / 100
		if v > 0 {
			return fmt.Sprintf("+%.1f", v)
		}
		return fmt.Sprintf("%.1f", v)
	default:
		return NoEvaluationText
	}
}

func (s Score) String() string { return s.Text() }

// Perspective selects the point of view used for display text.
type Perspective string

const (
	PerspectiveSideToMove Perspective = "side"
	PerspectiveWhite      Perspective = "white"
)

func ParsePerspective(s string) Perspective {
	if s == string(PerspectiveWhite) {
		return PerspectiveWhite
	}
	return PerspectiveSideToMove
}

// Display renders a White-relative score for the position described by fen.
// Mate text always names the mating side, so perspective only changes the
// sign of centipawn scores.
func Display(s Score, fen string, p Perspective) string {
	if p == PerspectiveWhite || (s.Mate != nil && *s.Mate != 0) {
		return s.Text()
	}
	return s.ForSideToMove(board.SideToMoveFromFEN(fen)).Text()
}

// Result is a cached evaluation of one position.
type Result struct {
	FEN    string `json:"fen"`
	Score  Score  `json:"score"`
	Source Source `json:"source"`
	Depth  int    `json:"depth,omitempty"`
}
