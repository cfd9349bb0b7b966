// irischeck probes an Iris instance: config endpoint, websocket handshake
// and, with -room, a test board delivery.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/chess-duel-bot/internal/adapter/duelpresenter"
	"github.com/park285/chess-duel-bot/internal/chessrules"
	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/irisfast"
	"github.com/park285/chess-duel-bot/internal/obslog"
	"github.com/park285/chess-duel-bot/internal/render"
)

func main() {
	room := flag.String("room", "", "send a test board to this room")
	egressMode := flag.String("egress", "http", "egress mode for -room: http, ws or auto")
	watch := flag.Duration("watch", 10*time.Second, "how long to print incoming websocket messages")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	baseURL := strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	if baseURL == "" {
		log.Fatal("IRIS_BASE_URL is required")
	}
	headers := func() map[string]string {
		m := map[string]string{}
		for env, header := range map[string]string{"X_USER_ID": "X-User-Id", "X_USER_EMAIL": "X-User-Email", "X_SESSION_ID": "X-Session-Id"} {
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				m[header] = v
			}
		}
		return m
	}

	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
		irisfast.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	cfg, err := client.GetConfig(ctx)
	cancel()
	if err != nil {
		log.Printf("/config error: %v", err)
	} else {
		log.Printf("/config ok: bot=%s port=%d polling=%d rate=%d endpoint=%s", cfg.BotName, cfg.Port, cfg.PollingSpeed, cfg.MessageRate, cfg.WebserverEndpoint)
	}

	var ws *irisfast.WebSocket
	if wsURL != "" {
		ws = irisfast.NewWebSocket(wsURL, 5, time.Second)
		ws.SetLogger(logger)
		ws.SetHeaderProvider(headers)
		ws.OnStateChange(func(state irisfast.WebSocketState) { log.Printf("WS state: %s", state) })
		ws.OnMessage(func(msg *irisfast.Message) {
			fmt.Printf("WS msg room=%s user=%s from=%s text=%q\n", msg.Room, msg.UserID(), msg.SenderName(), msg.Msg)
		})
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := ws.Connect(cctx)
		ccancel()
		if err != nil {
			log.Printf("WS connect error: %v", err)
			ws = nil
		}
	} else {
		log.Println("IRIS_WS_URL not set; skipping WS check")
	}

	if *room != "" {
		if err := sendTestBoard(*room, irisfast.NewEgress(*egressMode, false, client, ws, logger)); err != nil {
			log.Printf("test board error: %v", err)
		} else {
			log.Printf("test board sent to %s", *room)
		}
	}

	if ws == nil {
		return
	}
	time.Sleep(*watch)
	_ = ws.Close(context.Background())
}

func sendTestBoard(room string, egress irisfast.Egress) error {
	rules := chessrules.New()
	pos, err := rules.NewPosition()
	if err != nil {
		return err
	}
	st := duel.BoardState{
		Key:        "irischeck",
		Room:       room,
		White:      duel.Player{ID: "white", Name: "White"},
		Black:      duel.Player{ID: "black", Name: "Black"},
		FEN:        rules.FEN(pos),
		SideToMove: duel.White,
		WhiteClock: duel.DefaultInitialClock,
		BlackClock: duel.DefaultInitialClock,
		Phase:      duel.PhaseActive,
	}
	send := func(kind string) func(room, data string) error {
		return func(room, data string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if kind == "image" {
				return egress.SendImage(ctx, room, data)
			}
			return egress.SendText(ctx, room, data)
		}
	}
	p := duelpresenter.NewPresenter(send("text"), send("image"), render.New(), zap.NewNop())
	return p.Board(context.Background(), room, "irischeck: board render test", st, duel.White)
}
