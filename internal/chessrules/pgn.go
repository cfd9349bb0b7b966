package chessrules

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-duel-bot/internal/duel"
)

// EncodeRecord writes a PGN document from SAN moves.
func (Rules) EncodeRecord(h duel.RecordHeader, sanMoves []string) (string, error) {
	var b strings.Builder
	date := h.Date
	if date.IsZero() {
		date = time.Now()
	}
	result := strings.TrimSpace(h.Result)
	if result == "" {
		result = "*"
	}
	writeTag(&b, "Event", h.Event)
	writeTag(&b, "Site", h.Site)
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	writeTag(&b, "White", h.White)
	writeTag(&b, "Black", h.Black)
	if strings.TrimSpace(h.TimeControl) != "" {
		writeTag(&b, "TimeControl", h.TimeControl)
	}
	if strings.TrimSpace(h.Termination) != "" {
		writeTag(&b, "Termination", strings.ToLower(h.Termination))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(sanMoves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(sanMoves[i])))
		if i+1 < len(sanMoves) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(sanMoves[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String(), nil
}

func writeTag(b *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		value = "?"
	}
	b.WriteString(fmt.Sprintf("[%s \"%s\"]\n", name, sanitizePGN(value)))
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
