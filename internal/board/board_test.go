package board

import "testing"

func TestParseUCI(t *testing.T) {
	mv, err := ParseUCI("e7e8q")
	if err != nil {
		t.Fatalf("ParseUCI: %v", err)
	}
	if mv.From != (Square{File: 4, Rank: 6}) || mv.To != (Square{File: 4, Rank: 7}) || mv.Promotion != Queen {
		t.Fatalf("unexpected move: %+v", mv)
	}
	if got := mv.UCI(); got != "e7e8q" {
		t.Fatalf("UCI() = %q", got)
	}

	for _, bad := range []string{"", "e2", "e2e9", "i2e4", "e7e8k", "e2e4qq"} {
		if _, err := ParseUCI(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestOrientationFlipTwiceIsIdentity(t *testing.T) {
	o := Orientation{}
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := Square{File: f, Rank: r}
			twice := o.Flip().Flip()
			if twice.ToView(sq) != sq || twice.ToGame(sq) != sq {
				t.Fatalf("double flip changed %s", sq)
			}
			flipped := o.Flip()
			if flipped.ToGame(flipped.ToView(sq)) != sq {
				t.Fatalf("round trip failed for %s", sq)
			}
		}
	}
}

func TestOrientationFlippedCorners(t *testing.T) {
	o := Orientation{Flipped: true}
	a1 := Square{File: 0, Rank: 0}
	if got := o.ToView(a1); got != (Square{File: 7, Rank: 7}) {
		t.Fatalf("a1 view = %+v", got)
	}
	if o.Bottom() != Black {
		t.Fatalf("flipped board should show black at the bottom")
	}
}

func TestSideToMoveFromFEN(t *testing.T) {
	if c := SideToMoveFromFEN("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"); c != Black {
		t.Fatalf("expected black, got %s", c)
	}
	if c := SideToMoveFromFEN("garbage"); c != NoColor {
		t.Fatalf("expected no color, got %s", c)
	}
}
