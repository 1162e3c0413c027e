package rules

import (
	"fmt"
	"strings"
)

const (
	Chess960Positions = 960
	StandardIndex     = 518

	standardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// knight placements among the five squares left after bishops and queen.
var knightTable = [10][2]int{
	{0, 1}, {0, 2}, {0, 3}, {0, 4},
	{1, 2}, {1, 3}, {1, 4},
	{2, 3}, {2, 4},
	{3, 4},
}

// Chess960BackRank returns White's back rank for a Scharnagl index, a-file first.
func Chess960BackRank(index int) (string, error) {
	if index < 0 || index >= Chess960Positions {
		return "", fmt.Errorf("%w: %d", ErrStartIndex, index)
	}
	var rank [8]byte
	n := index

	rank[2*(n%4)+1] = 'B'
	n /= 4
	rank[2*(n%4)] = 'B'
	n /= 4

	placeOnEmpty(&rank, n%6, 'Q')
	n /= 6

	pair := knightTable[n]
	// second knight first so the first index still counts the same empties
	placeOnEmpty(&rank, pair[1], 'N')
	placeOnEmpty(&rank, pair[0], 'N')

	placeOnEmpty(&rank, 0, 'R')
	placeOnEmpty(&rank, 0, 'K')
	placeOnEmpty(&rank, 0, 'R')
	return string(rank[:]), nil
}

// Chess960FEN returns the FEN of a start position.
// Castling rights are only carried for the standard arrangement; the rules
// engine has no Chess960 castling support.
func Chess960FEN(index int) (string, error) {
	white, err := Chess960BackRank(index)
	if err != nil {
		return "", err
	}
	castling := "-"
	if index == StandardIndex {
		castling = "KQkq"
	}
	return fmt.Sprintf("%s/pppppppp/8/8/8/8/PPPPPPPP/%s w %s - 0 1", strings.ToLower(white), white, castling), nil
}

func placeOnEmpty(rank *[8]byte, nth int, piece byte) {
	seen := 0
	for i := range rank {
		if rank[i] != 0 {
			continue
		}
		if seen == nth {
			rank[i] = piece
			return
		}
		seen++
	}
}
