// Package render draws duel positions as PNG images for chat replies.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/chess-duel-bot/internal/duel"
)

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 28
	topMargin    = 64
	bottomMargin = 28
	panelHeight  = 28
	panelRadius  = 10
)

// Options tweaks a single render.
type Options struct {
	// Perspective puts this color at the bottom. NoColor means white.
	Perspective duel.Color
	// Header replaces the clock line; only ASCII renders legibly.
	Header string
}

type Renderer struct {
	face font.Face
}

func New() *Renderer {
	return &Renderer{face: basicfont.Face7x13}
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	background      = color.RGBA{22, 24, 36, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	hudPanelColor   = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudActiveColor  = color.NRGBA{R: 64, G: 92, B: 160, A: 255}
	hudTextPrimary  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// RenderPNG draws st.FEN with clocks above the board and the last move highlighted.
func (r *Renderer) RenderPNG(ctx context.Context, st duel.BoardState, opts Options) ([]byte, error) {
	board, err := boardFromFEN(st.FEN)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flip := opts.Perspective == duel.Black
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, imagedraw.Src)

	r.drawHUD(img, st, opts, origin)
	drawSquares(img, origin)
	if st.LastMove != nil {
		for _, sq := range []string{st.LastMove.From, st.LastMove.To} {
			if f, rk, ok := squareIndex(sq); ok {
				overlay(img, squareRect(f, rk, flip, origin), lastMoveFill)
			}
		}
	}
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		tile, err := renderPiece(piece, squareSize)
		if err != nil {
			return nil, err
		}
		rect := squareRect(int(sq.File()), int(sq.Rank()), flip, origin)
		imagedraw.Draw(img, rect, tile, image.Point{}, imagedraw.Over)
	}
	r.drawCoordinates(img, flip, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func boardFromFEN(fen string) (*nchess.Board, error) {
	if strings.TrimSpace(fen) == "" {
		return nil, fmt.Errorf("empty fen")
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return nchess.NewGame(opt).Position().Board(), nil
}

func (r *Renderer) drawHUD(img *image.RGBA, st duel.BoardState, opts Options, origin image.Point) {
	top := (topMargin - panelHeight) / 2
	half := boardSize/2 - 6
	left := image.Rect(origin.X, top, origin.X+half, top+panelHeight)
	right := image.Rect(origin.X+boardSize-half, top, origin.X+boardSize, top+panelHeight)

	drawer := &font.Drawer{Dst: img, Face: r.face}
	if h := strings.TrimSpace(opts.Header); h != "" {
		full := image.Rect(origin.X, top, origin.X+boardSize, top+panelHeight)
		drawRoundedPanel(img, full, panelRadius, hudPanelColor)
		drawCenteredString(drawer, full, h, hudTextPrimary)
		return
	}

	panels := []struct {
		rect  image.Rectangle
		side  duel.Color
		label string
	}{
		{left, duel.White, "WHITE " + duel.FormatClock(st.WhiteClock)},
		{right, duel.Black, "BLACK " + duel.FormatClock(st.BlackClock)},
	}
	for _, p := range panels {
		fill := hudPanelColor
		if st.Phase == duel.PhaseActive && st.SideToMove == p.side {
			fill = hudActiveColor
		}
		drawRoundedPanel(img, p.rect, panelRadius, fill)
		drawCenteredString(drawer, p.rect, p.label, hudTextPrimary)
	}
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for file := 0; file < boardSquares; file++ {
		for rank := 0; rank < boardSquares; rank++ {
			clr := lightSquare
			if (file+rank)%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(dst, squareRect(file, rank, false, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawCoordinates(dst imagedraw.Image, flip bool, origin image.Point) {
	drawer := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordinateColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for i := 0; i < boardSquares; i++ {
		rankRect := squareRect(0, i, flip, origin)
		drawCenteredText(drawer, string(rune('1'+i)), origin.X-sideMargin/2, rankRect.Min.Y+squareSize/2+ascent/2)
		fileRect := squareRect(i, 0, flip, origin)
		drawCenteredText(drawer, string(rune('a'+i)), fileRect.Min.X+squareSize/2, origin.Y+boardSize+ascent+4)
	}
}

// squareRect maps zero-based file and rank to pixels; flip puts rank 8 at the bottom.
func squareRect(file, rank int, flip bool, origin image.Point) image.Rectangle {
	row, col := 7-rank, file
	if flip {
		row, col = rank, 7-file
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareIndex(sq string) (file, rank int, ok bool) {
	if !duel.ValidSquare(sq) {
		return 0, 0, false
	}
	return int(sq[0] - 'a'), int(sq[1] - '1'), true
}
