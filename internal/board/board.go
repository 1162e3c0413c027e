package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSquare = errors.New("invalid square")
	ErrInvalidMove   = errors.New("invalid move notation")
)

type Color int8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	case "", "none":
		return NoColor, nil
	default:
		return NoColor, fmt.Errorf("unknown color %q", s)
	}
}

type PieceKind int8

const (
	NoKind PieceKind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// Letter returns the lowercase UCI/FEN letter of the kind.
func (k PieceKind) Letter() string {
	switch k {
	case King:
		return "k"
	case Queen:
		return "q"
	case Rook:
		return "r"
	case Bishop:
		return "b"
	case Knight:
		return "n"
	case Pawn:
		return "p"
	default:
		return ""
	}
}

func (k PieceKind) String() string {
	switch k {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return "none"
	}
}

// ParsePromotion parses a promotion piece given as a UCI letter or a name.
func ParsePromotion(s string) (PieceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "queen":
		return Queen, nil
	case "r", "rook":
		return Rook, nil
	case "b", "bishop":
		return Bishop, nil
	case "n", "knight":
		return Knight, nil
	default:
		return NoKind, fmt.Errorf("unsupported promotion piece %q", s)
	}
}

type Piece struct {
	Color Color
	Kind  PieceKind
}

var NoPiece = Piece{}

func (p Piece) IsZero() bool { return p.Kind == NoKind }

// Square is a board coordinate with File and Rank in [0,7].
// In game coordinates file 0 is the a-file and rank 0 is the first rank.
type Square struct {
	File int
	Rank int
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string(rune('a'+s.File)) + string(rune('1'+s.Rank))
}

func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	sq := Square{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return sq, nil
}

type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

// UCI returns the coordinate encoding, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	return m.From.String() + m.To.String() + m.Promotion.Letter()
}

func (m Move) String() string { return m.UCI() }

func ParseUCI(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	mv := Move{From: from, To: to}
	if len(s) == 5 {
		promo, err := ParsePromotion(s[4:])
		if err != nil {
			return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
		}
		mv.Promotion = promo
	}
	return mv, nil
}

// Position is the live game state owned by the rules engine.
type Position interface {
	Turn() Color
	PieceAt(sq Square) Piece
	LegalMoves() []Move
	// SAN must be called before Apply for the same move.
	SAN(m Move) (string, error)
	Apply(m Move) error
	FEN() string
}

// ContainsMove reports whether m is in moves.
func ContainsMove(moves []Move, m Move) bool {
	for _, cand := range moves {
		if cand == m {
			return true
		}
	}
	return false
}

// SideToMoveFromFEN reads the active color field of a FEN record.
func SideToMoveFromFEN(fen string) Color {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return NoColor
	}
	switch fields[1] {
	case "w":
		return White
	case "b":
		return Black
	default:
		return NoColor
	}
}
