package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"github.com/park285/Cheese-Analysis-Board/internal/board"
)

var (
	ErrIllegalMove    = errors.New("move is not legal in the current position")
	ErrSANGeneration  = errors.New("san generation failed")
	ErrInvalidFEN     = errors.New("invalid fen")
	ErrStartIndex     = errors.New("chess960 start index out of range")
	ErrUnknownSANMove = errors.New("san does not match a legal move")
)

// Game adapts a corentings game to board.Position.
type Game struct {
	mu       sync.Mutex
	game     *nchess.Game
	startFEN string
}

var _ board.Position = (*Game)(nil)

func NewStandard() *Game {
	g := nchess.NewGame()
	return &Game{game: g, startFEN: g.FEN()}
}

func FromFEN(fen string) (*Game, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewStandard(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidFEN, fen, err)
	}
	g := nchess.NewGame(option)
	return &Game{game: g, startFEN: g.FEN()}, nil
}

// NewChess960 builds the start position with the given Scharnagl index.
func NewChess960(index int) (*Game, error) {
	fen, err := Chess960FEN(index)
	if err != nil {
		return nil, err
	}
	return FromFEN(fen)
}

func (g *Game) StartFEN() string { return g.startFEN }

// StartCastling reports whether the start position granted any castling
// rights. Non-standard Chess960 starts never do.
func (g *Game) StartCastling() bool {
	fields := strings.Fields(g.startFEN)
	return len(fields) > 2 && fields[2] != "-"
}

func (g *Game) Turn() board.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fromColor(g.game.Position().Turn())
}

func (g *Game) PieceAt(sq board.Square) board.Piece {
	if !sq.Valid() {
		return board.NoPiece
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.game.Position().Board().Piece(toSquare(sq))
	if p == nchess.NoPiece {
		return board.NoPiece
	}
	return board.Piece{Color: fromColor(p.Color()), Kind: fromPieceType(p.Type())}
}

func (g *Game) LegalMoves() []board.Move {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legalMovesLocked()
}

func (g *Game) legalMovesLocked() []board.Move {
	valid := g.game.ValidMoves()
	out := make([]board.Move, 0, len(valid))
	for _, mv := range valid {
		parsed, err := board.ParseUCI(mv.String())
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

func (g *Game) FEN() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.game.FEN()
}

// SAN encodes m in standard algebraic notation against the current position.
// Failures inside the notation encoder are returned as ErrSANGeneration.
func (g *Game) SAN(m board.Move) (san string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			san = ""
			err = fmt.Errorf("%w: %s: %v", ErrSANGeneration, m.UCI(), r)
		}
	}()

	pos := g.game.Position()
	mv, derr := nchess.UCINotation{}.Decode(pos, m.UCI())
	if derr != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSANGeneration, m.UCI(), derr)
	}
	san = nchess.AlgebraicNotation{}.Encode(pos, mv)
	if strings.TrimSpace(san) == "" {
		return "", fmt.Errorf("%w: %s: empty result", ErrSANGeneration, m.UCI())
	}
	return san, nil
}

func (g *Game) Apply(m board.Move) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !board.ContainsMove(g.legalMovesLocked(), m) {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m.UCI())
	}
	if err := g.game.PushNotationMove(m.UCI(), nchess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("apply %s: %w", m.UCI(), err)
	}
	return nil
}

// ParseSAN resolves a SAN string into a legal move of the current position.
func (g *Game) ParseSAN(san string) (board.Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	mv, err := nchess.AlgebraicNotation{}.Decode(g.game.Position(), strings.TrimSpace(san))
	if err != nil {
		return board.Move{}, fmt.Errorf("%w: %q: %v", ErrUnknownSANMove, san, err)
	}
	parsed, err := board.ParseUCI(mv.String())
	if err != nil {
		return board.Move{}, err
	}
	if !board.ContainsMove(g.legalMovesLocked(), parsed) {
		return board.Move{}, fmt.Errorf("%w: %q", ErrUnknownSANMove, san)
	}
	return parsed, nil
}

// Outcome reports "white", "black", "draw" or "" while the game is running.
func (g *Game) Outcome() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.game.Outcome() {
	case nchess.WhiteWon:
		return "white"
	case nchess.BlackWon:
		return "black"
	case nchess.Draw:
		return "draw"
	default:
		return ""
	}
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

// Opening names the ECO line matching the moves played so far. Games that
// did not start from the standard position never match.
func (g *Game) Opening() (code, title string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.startFEN != standardFEN {
		return "", "", false
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	eco := ecoBook.Find(g.game.Moves())
	if eco == nil {
		return "", "", false
	}
	return eco.Code(), eco.Title(), true
}

func toSquare(sq board.Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.File), nchess.Rank(sq.Rank))
}

func fromColor(c nchess.Color) board.Color {
	switch c {
	case nchess.White:
		return board.White
	case nchess.Black:
		return board.Black
	default:
		return board.NoColor
	}
}

func fromPieceType(pt nchess.PieceType) board.PieceKind {
	switch pt {
	case nchess.King:
		return board.King
	case nchess.Queen:
		return board.Queen
	case nchess.Rook:
		return board.Rook
	case nchess.Bishop:
		return board.Bishop
	case nchess.Knight:
		return board.Knight
	case nchess.Pawn:
		return board.Pawn
	default:
		return board.NoKind
	}
}
