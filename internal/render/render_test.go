package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-duel-bot/internal/duel"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestRenderStartingPosition(t *testing.T) {
	st := duel.BoardState{
		FEN:        startFEN,
		SideToMove: duel.White,
		WhiteClock: 10 * time.Minute,
		BlackClock: 10 * time.Minute,
		Phase:      duel.PhaseActive,
	}
	raw, err := New().RenderPNG(context.Background(), st, Options{})
	require.NoError(t, err)

	img := decode(t, raw)
	assert.Equal(t, boardSize+sideMargin*2, img.Bounds().Dx())
	assert.Equal(t, boardSize+topMargin+bottomMargin, img.Bounds().Dy())

	// e4 is empty and light
	rect := squareRect(4, 3, false, image.Pt(sideMargin, topMargin))
	got := color.RGBAModel.Convert(img.At(rect.Min.X+2, rect.Min.Y+2)).(color.RGBA)
	assert.Equal(t, lightSquare, got)
}

func TestRenderHighlightsLastMoveAndFlips(t *testing.T) {
	st := duel.BoardState{
		FEN:        "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		SideToMove: duel.Black,
		LastMove:   &duel.Move{From: "e2", To: "e4"},
		Phase:      duel.PhaseActive,
	}
	raw, err := New().RenderPNG(context.Background(), st, Options{Perspective: duel.Black})
	require.NoError(t, err)
	img := decode(t, raw)

	rect := squareRect(4, 1, true, image.Pt(sideMargin, topMargin))
	got := color.RGBAModel.Convert(img.At(rect.Min.X+1, rect.Min.Y+1)).(color.RGBA)
	assert.NotEqual(t, darkSquare, got)
	assert.NotEqual(t, lightSquare, got)
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := New()
	_, err := r.RenderPNG(context.Background(), duel.BoardState{}, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderPNG(ctx, duel.BoardState{FEN: startFEN}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSquareRectFlip(t *testing.T) {
	o := image.Pt(0, 0)
	assert.Equal(t, image.Rect(0, 7*squareSize, squareSize, 8*squareSize), squareRect(0, 0, false, o))
	assert.Equal(t, image.Rect(7*squareSize, 0, 8*squareSize, squareSize), squareRect(0, 0, true, o))
}
