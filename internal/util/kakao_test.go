package util

import (
	"strings"
	"testing"
	"time"
)

func TestSeeMore(t *testing.T) {
	out := SeeMore("body", " header ")
	if !strings.HasPrefix(out, "header"+ZeroWidthSpace) || !strings.HasSuffix(out, "\nbody") {
		t.Fatalf("unexpected layout: %q", out[:20])
	}
	if got := strings.Count(out, ZeroWidthSpace); got != SeeMorePadding {
		t.Fatalf("padding = %d, want %d", got, SeeMorePadding)
	}
	if SeeMore("  ", "x") != "  " {
		t.Fatal("blank text must pass through")
	}
}

func TestSeeMoreWithHeaderStripsDuplicate(t *testing.T) {
	out := SeeMoreWithHeader("H\n\nline", "H")
	if strings.Count(out, "H") != 1 {
		t.Fatalf("header repeated: %q", out)
	}
	if !strings.HasSuffix(out, ZeroWidthSpace+"\nline") {
		t.Fatalf("body not folded: %q", out)
	}
}

func TestStripLeadingHeader(t *testing.T) {
	cases := map[string]string{
		"H\r\nbody": "body",
		"H\n\nbody": "body",
		"Hbody":     "body",
		"xH\nbody":  "xH\nbody",
	}
	for in, want := range cases {
		if got := StripLeadingHeader(in, "H"); got != want {
			t.Errorf("StripLeadingHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatKST(t *testing.T) {
	ts := time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC)
	if got := FormatKST(ts, "2006-01-02 15:04"); got != "2026-01-02 00:30" {
		t.Fatalf("got %s", got)
	}
}
