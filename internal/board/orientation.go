package board

// Orientation maps between game coordinates and view coordinates.
// View coordinates count columns from the left edge and rows from the
// bottom edge of the displayed board.
type Orientation struct {
	Flipped bool
}

func (o Orientation) ToGame(view Square) Square {
	if !o.Flipped {
		return view
	}
	return Square{File: 7 - view.File, Rank: 7 - view.Rank}
}

func (o Orientation) ToView(game Square) Square {
	if !o.Flipped {
		return game
	}
	return Square{File: 7 - game.File, Rank: 7 - game.Rank}
}

func (o Orientation) Flip() Orientation {
	return Orientation{Flipped: !o.Flipped}
}

// ViewSquares maps a slice of game squares into view coordinates.
func (o Orientation) ViewSquares(game []Square) []Square {
	if len(game) == 0 {
		return nil
	}
	out := make([]Square, 0, len(game))
	for _, sq := range game {
		out = append(out, o.ToView(sq))
	}
	return out
}

// Bottom returns the color whose home rank is drawn at the bottom.
func (o Orientation) Bottom() Color {
	if o.Flipped {
		return Black
	}
	return White
}
