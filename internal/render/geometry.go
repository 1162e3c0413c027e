package render

import (
	"image"
	"image/color"
	"math"
)

type pointF struct {
	X float64
	Y float64
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(min(a.X, b.X, c.X)))
	maxX := int(math.Ceil(max(a.X, b.X, c.X)))
	minY := int(math.Floor(min(a.Y, b.Y, c.Y)))
	maxY := int(math.Ceil(max(a.Y, b.Y, c.Y)))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func inTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// blendPixel composites clr over the pixel at (x, y) (source-over).
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 1 - float64(sa)/0xffff
	// RGBA() is premultiplied, as is image.RGBA storage
	img.SetRGBA(x, y, color.RGBA{
		R: toUint8(float64(sr)/257 + float64(dst.R)*inv),
		G: toUint8(float64(sg)/257 + float64(dst.G)*inv),
		B: toUint8(float64(sb)/257 + float64(dst.B)*inv),
		A: toUint8(float64(sa)/257 + float64(dst.A)*inv),
	})
}

func toUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
