package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece glyphs on a 45x45 canvas. {{fill}} and {{line}} are replaced per color.
const pieceBase = `<path d="M 9 39 L 36 39 L 36 36 L 9 36 Z" />`

var pieceShapes = map[board.PieceKind]string{
	board.Pawn: `<circle cx="22.5" cy="14" r="5" />` +
		`<path d="M 17 33 L 19.5 20 L 25.5 20 L 28 33 Z" />`,
	board.Knight: `<path d="M 14 33 L 16 24 L 12 20 L 15 12 L 22 8 L 29 10 L 33 18 L 31 33 Z" />` +
		`<circle cx="20" cy="14" r="1.5" style="fill:{{line}}" />`,
	board.Bishop: `<path d="M 15 33 C 14 24 18 17 22.5 11 C 27 17 31 24 30 33 Z" />` +
		`<circle cx="22.5" cy="8" r="2.5" />` +
		`<path d="M 20 22 L 25 22" style="fill:none;stroke:{{line}};stroke-width:1.5" />`,
	board.Rook: `<path d="M 12 13 L 12 8 L 16 8 L 16 10 L 20.5 10 L 20.5 8 L 24.5 8 L 24.5 10 L 29 10 L 29 8 L 33 8 L 33 13 L 30 16 L 30 30 L 33 33 L 12 33 L 15 30 L 15 16 Z" />`,
	board.Queen: `<path d="M 9 14 L 14 28 L 14 33 L 31 33 L 31 28 L 36 14 L 29 24 L 27 11 L 22.5 23 L 18 11 L 16 24 Z" />` +
		`<circle cx="9" cy="12" r="2" /><circle cx="18" cy="9" r="2" /><circle cx="27" cy="9" r="2" /><circle cx="36" cy="12" r="2" />`,
	board.King: `<path d="M 21 4 L 24 4 L 24 7 L 27 7 L 27 10 L 24 10 L 24 14 L 21 14 L 21 10 L 18 10 L 18 7 L 21 7 Z" />` +
		`<path d="M 11 33 C 8 26 10 18 16 17 C 19 16.5 21 18 22.5 21 C 24 18 26 16.5 29 17 C 35 18 37 26 34 33 Z" />`,
}

func pieceSVG(p board.Piece) ([]byte, error) {
	shape, ok := pieceShapes[p.Kind]
	if !ok {
		return nil, fmt.Errorf("no glyph for piece kind %v", p.Kind)
	}
	fill, line := "#ffffff", "#000000"
	if p.Color == board.Black {
		fill, line = "#000000", "#ffffff"
	}
	var buf strings.Builder
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	buf.WriteString(`<g style="fill:{{fill}};stroke:#000000;stroke-width:1.5;stroke-linejoin:round">`)
	buf.WriteString(shape)
	buf.WriteString(pieceBase)
	buf.WriteString(`</g></svg>`)
	out := strings.NewReplacer("{{fill}}", fill, "{{line}}", line).Replace(buf.String())
	return []byte(out), nil
}

type pieceCacheKey struct {
	piece board.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(p board.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: p, size: size}
	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
