package duelpresenter

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/render"
)

// BoardRenderer turns a board state into PNG bytes.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, st duel.BoardState, opts render.Options) ([]byte, error)
}

// Presenter delivers formatted messages and board images without coupling to the command layer.
type Presenter struct {
	sendMessage func(room, message string) error
	sendImage   func(room, imageBase64 string) error
	renderer    BoardRenderer
	logger      *zap.Logger
}

func NewPresenter(sendMessage func(room, message string) error, sendImage func(room, imageBase64 string) error, renderer BoardRenderer, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
		renderer:    renderer,
		logger:      logger,
	}
}

func (p *Presenter) Text(room, message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(room, message)
}

// Board sends message followed by a rendered image of st. A render failure
// is logged and the text still goes out.
func (p *Presenter) Board(ctx context.Context, room, message string, st duel.BoardState, perspective duel.Color) error {
	if p == nil {
		return nil
	}
	if err := p.Text(room, message); err != nil {
		return err
	}
	if p.renderer == nil || p.sendImage == nil || st.FEN == "" {
		return nil
	}
	png, err := p.renderer.RenderPNG(ctx, st, render.Options{Perspective: perspective})
	if err != nil {
		p.logger.Warn("duel_render_error", zap.String("game_id", st.Key), zap.Error(err))
		return nil
	}
	return p.sendImage(room, base64.StdEncoding.EncodeToString(png))
}
