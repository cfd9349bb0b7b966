package duelpresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-duel-bot/internal/duel"
	"github.com/park285/chess-duel-bot/internal/msgcat"
	"github.com/park285/chess-duel-bot/internal/util"
	"github.com/park285/chess-duel-bot/pkg/dueldto"
)

const (
	duelHelpInstruction    = "♞ 체스 대결 명령어 안내"
	duelHistoryInstruction = "♜ 최근 대국"
	duelPGNInstruction     = "♜ 기보"
)

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

type staticPrefix string

func (s staticPrefix) Prefix() string { return string(s) }

// StaticPrefix wraps a fixed command prefix.
func StaticPrefix(p string) PrefixProvider { return staticPrefix(p) }

// Formatter renders duel DTOs into Kakao-friendly text blocks.
type Formatter struct {
	prefixProvider PrefixProvider
	cat            *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{prefixProvider: provider, cat: cat}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) text(key string, data map[string]any) string {
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Prefix"]; !ok {
		data["Prefix"] = f.Prefix()
	}
	return f.cat.Text(key, data, key)
}

func (f *Formatter) Help() string {
	content := f.text("duel.help", nil)
	return util.SeeMoreWithHeader(content, duelHelpInstruction)
}

func (f *Formatter) colorLabel(c string) string {
	return f.text("duel.color."+strings.ToLower(c), nil)
}

func (f *Formatter) OfferCreated(o *dueldto.OfferView, ttl time.Duration) string {
	return f.text("duel.offer.created", map[string]any{
		"Challenger": o.Challenger.Name,
		"Opponent":   o.Opponent.Name,
		"Color":      f.colorLabel(o.Color),
		"TTL":        formatDuration(ttl),
	})
}

// OfferClosed covers every terminal offer status except acceptance.
func (f *Formatter) OfferClosed(o *dueldto.OfferView) string {
	key := "duel.offer.expired"
	switch duel.OfferStatus(o.Status) {
	case duel.OfferDeclined:
		key = "duel.offer.declined"
	case duel.OfferCancelled:
		key = "duel.offer.cancelled"
	}
	return f.text(key, map[string]any{"Challenger": o.Challenger.Name, "Opponent": o.Opponent.Name})
}

func (f *Formatter) Start(v *dueldto.SessionView, budget time.Duration) string {
	return f.text("duel.start", map[string]any{
		"White": v.White.Name,
		"Black": v.Black.Name,
		"Clock": formatDuration(budget),
	})
}

// Move announces a committed move; san is the move just played.
func (f *Formatter) Move(v *dueldto.SessionView, san string) string {
	mover := v.White
	if v.SideToMove == string(duel.White) {
		mover = v.Black
	}
	next := v.Mover()
	return f.text("duel.move", map[string]any{
		"Mover":      mover.Name,
		"SAN":        san,
		"Next":       next.Name,
		"NextSide":   f.colorLabel(v.SideToMove),
		"WhiteClock": duel.FormatClock(v.WhiteClock),
		"BlackClock": duel.FormatClock(v.BlackClock),
	})
}

func (f *Formatter) Promotion(v *dueldto.SessionView) string {
	return f.text("duel.promotion", map[string]any{"Player": v.Mover().Name})
}

func (f *Formatter) DrawOffered(v *dueldto.SessionView) string {
	offerer, opponent := v.White, v.Black
	if v.DrawOfferBy == v.Black.ID {
		offerer, opponent = v.Black, v.White
	}
	return f.text("duel.draw.offered", map[string]any{"Offerer": offerer.Name, "Opponent": opponent.Name})
}

func (f *Formatter) DrawAlreadyOffered() string {
	return f.text("duel.draw.already", nil)
}

func (f *Formatter) Time(v *dueldto.SessionView) string {
	return f.text("duel.time", map[string]any{
		"White":      v.White.Name,
		"Black":      v.Black.Name,
		"WhiteClock": duel.FormatClock(v.WhiteClock),
		"BlackClock": duel.FormatClock(v.BlackClock),
		"Turn":       v.Mover().Name,
	})
}

func (f *Formatter) Board(v *dueldto.SessionView) string {
	return f.text("duel.board", map[string]any{
		"White":      v.White.Name,
		"Black":      v.Black.Name,
		"Moves":      formatRecentMoves(v.MovesSAN),
		"Turn":       v.Mover().Name,
		"WhiteClock": duel.FormatClock(v.WhiteClock),
		"BlackClock": duel.FormatClock(v.BlackClock),
	})
}

func (f *Formatter) LegalTargets(square string, targets []string) string {
	if len(targets) == 0 {
		return f.text("duel.legal.none", map[string]any{"Square": square})
	}
	return f.text("duel.legal.list", map[string]any{"Square": square, "Targets": strings.Join(targets, ", ")})
}

// Ended is the game-over announcement with the record footer.
func (f *Formatter) Ended(g *dueldto.GameSummary) string {
	data := map[string]any{"Detail": f.cat.Text("duel.detail."+g.Detail, nil, g.Detail)}
	if w, ok := g.Winner(); ok {
		data["Winner"] = w.Name
	}
	if l, ok := g.Loser(); ok {
		data["Loser"] = l.Name
	}
	if g.Detail == "" {
		data["Detail"] = f.text("duel.reason.draw", nil)
	}
	head := f.text("duel.end."+g.Reason, data)
	foot := f.text("duel.end.footer", map[string]any{
		"Result":   g.Result,
		"Moves":    len(g.MovesSAN),
		"Duration": formatGameDuration(g.Duration),
		"Key":      g.Key,
	})
	return head + "\n" + foot
}

// History lists games from the viewer's side.
func (f *Formatter) History(viewer dueldto.Player, games []*dueldto.GameSummary) string {
	if len(games) == 0 {
		return f.text("duel.history.empty", nil)
	}
	var sb strings.Builder
	sb.WriteString(f.text("duel.history.header", map[string]any{"Player": viewer.Name}))
	sb.WriteByte('\n')
	for i, g := range games {
		sb.WriteString(f.text("duel.history.line", map[string]any{
			"Index":  i + 1,
			"Date":   formatShortTime(g.EndedAt),
			"White":  g.White.Name,
			"Black":  g.Black.Name,
			"Result": formatResultBadge(g, viewer.ID),
			"Reason": f.text("duel.reason."+g.Reason, nil),
			"Key":    g.Key,
		}))
		sb.WriteByte('\n')
	}
	return util.SeeMoreWithHeader(strings.TrimRight(sb.String(), "\n"), duelHistoryInstruction)
}

func (f *Formatter) PGN(g *dueldto.GameSummary) string {
	var sb strings.Builder
	sb.WriteString(f.text("duel.pgn.header", map[string]any{"Key": g.Key}))
	sb.WriteString("\n```pgn\n")
	sb.WriteString(strings.TrimSpace(g.PGN))
	sb.WriteString("\n```")
	return util.SeeMore(sb.String(), duelPGNInstruction)
}

func (f *Formatter) PGNNotFound(key string) string {
	return f.text("duel.pgn.not_found", map[string]any{"Key": key})
}

func (f *Formatter) Error(de dueldto.DomainError) string {
	code := de.Code
	if code == "" || !f.cat.Has("duel.error."+code) {
		code = dueldto.CodeInternal
	}
	return f.text("duel.error."+code, nil)
}

func formatRecentMoves(moves []string) string {
	if len(moves) == 0 {
		return "0"
	}
	const limit = 4
	tail := moves
	if len(tail) > limit {
		tail = tail[len(tail)-limit:]
		return fmt.Sprintf("%d (… %s)", len(moves), strings.Join(tail, " "))
	}
	return fmt.Sprintf("%d (%s)", len(moves), strings.Join(tail, " "))
}

func formatResultBadge(g *dueldto.GameSummary, viewerID string) string {
	switch {
	case g.WinnerID != "" && g.WinnerID == viewerID:
		return "✅ 승"
	case g.LoserID != "" && g.LoserID == viewerID:
		return "❌ 패"
	case g.Result == "1/2-1/2":
		return "🤝 무"
	default:
		return "▫️ 취소"
	}
}

func formatShortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return util.FormatKST(t, "2006-01-02 15:04")
}

func formatGameDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}

func formatDuration(d time.Duration) string {
	if d%time.Minute == 0 && d >= time.Minute {
		return fmt.Sprintf("%d분", int(d/time.Minute))
	}
	return fmt.Sprintf("%d초", int(d.Round(time.Second)/time.Second))
}
