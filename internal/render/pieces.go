package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// piece tokens: a rasterized SVG disc with the piece letter stamped on top
const discTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">
<circle cx="50" cy="54" r="%[1]d" fill="#000000" fill-opacity="0.25"/>
<circle cx="50" cy="50" r="%[1]d" fill="%[2]s" stroke="%[3]s" stroke-width="6"/>
</svg>`

func renderPiece(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}
	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	fill, stroke, ink := "#f5f1e6", "#1c1f2e", color.RGBA{28, 31, 46, 255}
	if piece.Color() == nchess.Black {
		fill, stroke, ink = "#1c1f2e", "#f5f1e6", color.RGBA{245, 241, 230, 255}
	}
	radius := 38
	if piece.Type() == nchess.Pawn {
		radius = 30
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(fmt.Sprintf(discTemplate, radius, fill, stroke)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	stampGlyph(img, pieceLetter(piece.Type()), ink, size*radius/100)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

// stampGlyph upscales a bitmap glyph so it fills roughly the disc radius.
func stampGlyph(dst *image.RGBA, letter string, ink color.Color, radius int) {
	face := basicfont.Face7x13
	glyph := image.NewRGBA(image.Rect(0, 0, face.Width, face.Height))
	d := &font.Drawer{Dst: glyph, Src: image.NewUniform(ink), Face: face, Dot: fixed.P(0, face.Ascent)}
	d.DrawString(letter)

	h := radius
	w := h * face.Width / face.Height
	cx, cy := dst.Bounds().Dx()/2, dst.Bounds().Dy()/2
	target := image.Rect(cx-w/2, cy-h/2, cx-w/2+w, cy-h/2+h)
	xdraw.ApproxBiLinear.Scale(dst, target, glyph, glyph.Bounds(), xdraw.Over, nil)
}

func pieceLetter(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	default:
		return "P"
	}
}
