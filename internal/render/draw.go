package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

func overlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if m := min(rect.Dx(), rect.Dy()) / 2; radius > m {
		radius = m
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	// body without the corner squares, then a quarter disc per corner
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []struct {
		center image.Point
		quad   image.Rectangle
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+radius, rect.Min.Y+radius)},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), image.Rect(rect.Max.X-radius, rect.Min.Y, rect.Max.X, rect.Min.Y+radius)},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), image.Rect(rect.Min.X, rect.Max.Y-radius, rect.Min.X+radius, rect.Max.Y)},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), image.Rect(rect.Max.X-radius, rect.Max.Y-radius, rect.Max.X, rect.Max.Y)},
	}
	r2 := radius * radius
	for _, c := range corners {
		cx, cy := c.center.X, c.center.Y
		for y := c.quad.Min.Y; y < c.quad.Max.Y; y++ {
			for x := c.quad.Min.X; x < c.quad.Max.X; x++ {
				dx, dy := x-cx, y-cy
				if dx*dx+dy*dy <= r2 && (image.Point{X: x, Y: y}).In(img.Bounds()) {
					imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), fill, image.Point{}, imagedraw.Over)
				}
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	m := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
