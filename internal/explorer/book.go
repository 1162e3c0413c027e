package explorer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// BookSource serves Polyglot book weights as move counts.
type BookSource struct {
	book *nchess.PolyglotBook
}

func LoadBook(r io.Reader) (*BookSource, error) {
	book, err := nchess.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	return &BookSource{book: book}, nil
}

func LoadBookFile(path string) (*BookSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()
	return LoadBook(file)
}

var _ Source = (*BookSource)(nil)

func (b *BookSource) Sample(_ context.Context, fen string) (Sample, error) {
	hashStr, err := nchess.NewZobristHasher().HashPosition(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: compute polyglot hash: %w", ErrStatsFetchFailed, err)
	}
	entries := b.book.FindMoves(nchess.ZobristHashToUint64(hashStr))
	out := make(Sample, 0, len(entries))
	for _, entry := range entries {
		move := nchess.DecodeMove(entry.Move).ToMove()
		out = append(out, MoveCount{UCI: move.String(), Count: int64(entry.Weight)})
	}
	return out, nil
}
