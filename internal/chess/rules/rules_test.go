package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
)

func mustMove(t *testing.T, s string) board.Move {
	t.Helper()
	mv, err := board.ParseUCI(s)
	if err != nil {
		t.Fatalf("ParseUCI(%q): %v", s, err)
	}
	return mv
}

func TestStandardIndexMatchesStartPosition(t *testing.T) {
	rank, err := Chess960BackRank(StandardIndex)
	if err != nil {
		t.Fatalf("Chess960BackRank: %v", err)
	}
	if rank != "RNBQKBNR" {
		t.Fatalf("index 518 = %s, want RNBQKBNR", rank)
	}
	g, err := NewChess960(StandardIndex)
	if err != nil {
		t.Fatalf("NewChess960: %v", err)
	}
	if g.FEN() != NewStandard().FEN() {
		t.Fatalf("fen mismatch: %s vs %s", g.FEN(), NewStandard().FEN())
	}
	if !g.StartCastling() {
		t.Fatalf("standard start must allow castling")
	}
	other, err := NewChess960(0)
	if err != nil {
		t.Fatalf("NewChess960(0): %v", err)
	}
	if other.StartCastling() {
		t.Fatalf("index 0 starts without castling rights")
	}
}

func TestChess960BackRanksAreValid(t *testing.T) {
	seen := make(map[string]bool, Chess960Positions)
	for i := 0; i < Chess960Positions; i++ {
		rank, err := Chess960BackRank(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if seen[rank] {
			t.Fatalf("duplicate arrangement %s at %d", rank, i)
		}
		seen[rank] = true

		b1 := strings.IndexByte(rank, 'B')
		b2 := strings.LastIndexByte(rank, 'B')
		if (b1+b2)%2 == 0 {
			t.Fatalf("index %d: bishops on same color (%s)", i, rank)
		}
		r1 := strings.IndexByte(rank, 'R')
		r2 := strings.LastIndexByte(rank, 'R')
		k := strings.IndexByte(rank, 'K')
		if !(r1 < k && k < r2) {
			t.Fatalf("index %d: king not between rooks (%s)", i, rank)
		}
	}
	if rank, _ := Chess960BackRank(0); rank != "BBQNNRKR" {
		t.Fatalf("index 0 = %s, want BBQNNRKR", rank)
	}
	if _, err := Chess960BackRank(960); !errors.Is(err, ErrStartIndex) {
		t.Fatalf("expected ErrStartIndex, got %v", err)
	}
}

func TestApplyAndSAN(t *testing.T) {
	g := NewStandard()
	mv := mustMove(t, "e2e4")
	san, err := g.SAN(mv)
	if err != nil {
		t.Fatalf("SAN: %v", err)
	}
	if san != "e4" {
		t.Fatalf("SAN = %q, want e4", san)
	}
	if err := g.Apply(mv); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if g.Turn() != board.Black {
		t.Fatalf("expected black to move")
	}
	if p := g.PieceAt(board.Square{File: 4, Rank: 3}); p != (board.Piece{Color: board.White, Kind: board.Pawn}) {
		t.Fatalf("unexpected piece on e4: %+v", p)
	}
	if err := g.Apply(mustMove(t, "e4e5")); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
}

func TestSANRoundTrip(t *testing.T) {
	g := NewStandard()
	for _, uci := range []string{"e2e4", "d7d5", "e4d5", "g8f6", "f1b5", "c7c6", "d5c6", "d8d2", "b1d2"} {
		mv := mustMove(t, uci)
		san, err := g.SAN(mv)
		if err != nil {
			t.Fatalf("SAN(%s): %v", uci, err)
		}
		back, err := g.ParseSAN(san)
		if err != nil {
			t.Fatalf("ParseSAN(%q): %v", san, err)
		}
		if back != mv {
			t.Fatalf("round trip %s -> %q -> %s", uci, san, back.UCI())
		}
		if err := g.Apply(mv); err != nil {
			t.Fatalf("Apply(%s): %v", uci, err)
		}
	}
}

func TestLegalMovesFromStart(t *testing.T) {
	g := NewStandard()
	if n := len(g.LegalMoves()); n != 20 {
		t.Fatalf("expected 20 legal moves, got %d", n)
	}
}

func TestPromotionMoves(t *testing.T) {
	g, err := FromFEN("8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	promo := mustMove(t, "e7e8q")
	if !board.ContainsMove(g.LegalMoves(), promo) {
		t.Fatalf("expected e7e8q to be legal")
	}
	san, err := g.SAN(promo)
	if err != nil {
		t.Fatalf("SAN: %v", err)
	}
	if !strings.HasPrefix(san, "e8=Q") {
		t.Fatalf("unexpected promotion SAN %q", san)
	}
}

func TestFromFENRejectsGarbage(t *testing.T) {
	if _, err := FromFEN("not a fen"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestOpeningName(t *testing.T) {
	g := NewStandard()
	for _, uci := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"} {
		mv, err := board.ParseUCI(uci)
		if err != nil {
			t.Fatalf("ParseUCI(%s): %v", uci, err)
		}
		if err := g.Apply(mv); err != nil {
			t.Fatalf("Apply(%s): %v", uci, err)
		}
	}
	code, title, ok := g.Opening()
	if !ok || !strings.HasPrefix(code, "C") || title == "" {
		t.Fatalf("unexpected opening %q %q ok=%v", code, title, ok)
	}

	g960, err := NewChess960(0)
	if err != nil {
		t.Fatalf("NewChess960: %v", err)
	}
	if _, _, ok := g960.Opening(); ok {
		t.Fatalf("chess960 game must not match an opening")
	}
}
