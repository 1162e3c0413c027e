package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/park285/Cheese-Analysis-Board/internal/board"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Frame is everything needed to draw one board image. Pieces is indexed by
// game coordinates; Selected and Destinations are view coordinates.
type Frame struct {
	Pieces       [8][8]board.Piece
	Orientation  board.Orientation
	Selected     *board.Square
	Destinations []board.Square
	LastMove     *board.Move
	Title        string
	Evaluation   string
	Turn         board.Color
}

type Renderer struct {
	squareSize int
	face       font.Face
}

type Option func(*Renderer)

func WithSquareSize(px int) Option {
	return func(r *Renderer) {
		if px >= 16 {
			r.squareSize = px
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{squareSize: 64, face: basicfont.Face7x13}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const (
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 28
	panelHeight  = 28
	panelRadius  = 8
	panelPadding = 14
)

var (
	lightSquare       = color.RGBA{233, 207, 163, 255}
	darkSquare        = color.RGBA{187, 136, 96, 255}
	backgroundColor   = color.RGBA{22, 24, 34, 255}
	selectedFill      = color.NRGBA{R: 255, G: 228, B: 120, A: 150}
	destinationFill   = color.NRGBA{R: 40, G: 40, B: 40, A: 110}
	whiteMoveArrow    = color.NRGBA{R: 255, G: 228, B: 120, A: 170}
	blackMoveArrow    = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudPanelColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor   = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	evaluationMarkers = strings.NewReplacer("♔", "(W)", "♚", "(B)")
)

// RenderPNG draws f from the viewer's side of the board.
func (r *Renderer) RenderPNG(ctx context.Context, f Frame) ([]byte, error) {
	size := r.squareSize
	boardSize := size * 8
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, f, boardRect)
	drawSquares(img, size, origin)
	if f.Selected != nil {
		drawSquareOverlay(img, *f.Selected, size, origin, selectedFill)
	}
	if err := drawPieces(img, f, size, origin); err != nil {
		return nil, err
	}
	for _, d := range f.Destinations {
		rect := viewRect(d, size, origin)
		center := image.Pt(rect.Min.X+size/2, rect.Min.Y+size/2)
		drawDisc(img, center, size/7, destinationFill)
	}
	if f.LastMove != nil {
		clr := whiteMoveArrow
		if p := pieceAt(f, f.Orientation.ToView(f.LastMove.To)); p.Color == board.Black {
			clr = blackMoveArrow
		}
		drawArrow(img, f.Orientation.ToView(f.LastMove.From), f.Orientation.ToView(f.LastMove.To), size, origin, clr)
	}
	r.drawCoordinates(img, f.Orientation, size, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func pieceAt(f Frame, view board.Square) board.Piece {
	sq := f.Orientation.ToGame(view)
	if !sq.Valid() {
		return board.NoPiece
	}
	return f.Pieces[sq.File][sq.Rank]
}

// viewRect maps a view square to pixels. View rank 0 is the bottom row.
func viewRect(view board.Square, size int, origin image.Point) image.Rectangle {
	x := origin.X + view.File*size
	y := origin.Y + (7-view.Rank)*size
	return image.Rect(x, y, x+size, y+size)
}

func drawSquares(dst *image.RGBA, size int, origin image.Point) {
	for f := 0; f < 8; f++ {
		for rk := 0; rk < 8; rk++ {
			clr := lightSquare
			// a1 stays dark from either side
			if (f+rk)%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, viewRect(board.Square{File: f, Rank: rk}, size, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst *image.RGBA, f Frame, size int, origin image.Point) error {
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			view := board.Square{File: file, Rank: rank}
			p := pieceAt(f, view)
			if p.IsZero() {
				continue
			}
			img, err := renderPieceImage(p, size)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, viewRect(view, size, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func (r *Renderer) drawHUD(img *image.RGBA, f Frame, boardRect image.Rectangle) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = "Analysis Board"
	}
	evalText := evaluationMarkers.Replace(strings.TrimSpace(f.Evaluation))
	if evalText == "" {
		evalText = "-"
	}
	turnText := "White to move"
	if f.Turn == board.Black {
		turnText = "Black to move"
	}

	bottom := boardRect.Min.Y - 14
	top := bottom - panelHeight

	evalWidth := drawer.MeasureString(evalText).Round() + panelPadding*2
	evalRect := image.Rect(boardRect.Max.X-evalWidth, top, boardRect.Max.X, bottom)

	turnWidth := drawer.MeasureString(turnText).Round() + panelPadding*2
	turnRect := image.Rect(evalRect.Min.X-turnWidth-8, top, evalRect.Min.X-8, bottom)

	titleRect := image.Rect(boardRect.Min.X, top, turnRect.Min.X-8, bottom)
	title = truncateWithEllipsis(r.face, title, titleRect.Dx()-panelPadding*2)

	for _, rect := range []image.Rectangle{titleRect, turnRect, evalRect} {
		drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	}
	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTextPrimary)
	drawCenteredString(drawer, evalRect, evalText, hudTextPrimary)
}

func (r *Renderer) drawCoordinates(dst *image.RGBA, o board.Orientation, size int, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		sq := o.ToGame(board.Square{File: i, Rank: i})
		fileLabel := string(rune('a' + sq.File))
		rankLabel := string(rune('1' + sq.Rank))

		col := viewRect(board.Square{File: i, Rank: 0}, size, origin)
		drawCenteredText(drawer, fileLabel, col.Min.X+size/2, origin.Y+8*size+ascent+4)

		row := viewRect(board.Square{File: 0, Rank: i}, size, origin)
		drawCenteredText(drawer, rankLabel, origin.X-sideMargin/2, row.Min.Y+size/2+ascent/2)
	}
}

func drawSquareOverlay(img *image.RGBA, view board.Square, size int, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, viewRect(view, size, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to board.Square, size int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	a, b := viewRect(from, size, origin), viewRect(to, size, origin)
	sx, sy := float64(a.Min.X+size/2), float64(a.Min.Y+size/2)
	ex, ey := float64(b.Min.X+size/2), float64(b.Min.Y+size/2)

	length := math.Hypot(ex-sx, ey-sy)
	dirX, dirY := (ex-sx)/length, (ey-sy)/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(size)*0.45
	if baseLength < float64(size)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(size) * 0.12
	headWidth := float64(size) * 0.32
	bx, by := sx+dirX*baseLength, sy+dirY*baseLength

	fillQuad(img,
		pointF{sx - perpX*halfWidth, sy - perpY*halfWidth},
		pointF{sx + perpX*halfWidth, sy + perpY*halfWidth},
		pointF{bx + perpX*halfWidth, by + perpY*halfWidth},
		pointF{bx - perpX*halfWidth, by - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		pointF{ex, ey},
		pointF{bx - perpX*headWidth/2, by - perpY*headWidth/2},
		pointF{bx + perpX*headWidth/2, by + perpY*headWidth/2},
		clr,
	)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	drawer := font.Drawer{Face: face}
	if maxWidth <= 0 || drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = min(radius, rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a disc that lies in a panel corner.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, panel image.Rectangle, clr color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Pt(center.X+x, center.Y+y)
			if x*x+y*y > radius*radius || !p.In(panel) {
				continue
			}
			inCore := p.X >= panel.Min.X+radius && p.X < panel.Max.X-radius
			inSide := p.Y >= panel.Min.Y+radius && p.Y < panel.Max.Y-radius
			if inCore || inSide {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
