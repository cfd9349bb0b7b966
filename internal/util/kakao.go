package util

import "strings"

// KakaoTalk folds a message behind a "전체보기" button when the first line is
// followed by enough invisible characters.
const (
	SeeMorePadding = 500
	ZeroWidthSpace = "\u200b"
)

// SeeMore shows instruction on the visible first line and folds text behind it.
// Blank text is returned unchanged.
func SeeMore(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	instruction = strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(instruction) + SeeMorePadding*len(ZeroWidthSpace) + len(text) + 1)
	b.WriteString(instruction)
	b.WriteString(strings.Repeat(ZeroWidthSpace, SeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// SeeMoreWithHeader moves text's own header line in front of the fold so it
// is not shown twice.
func SeeMoreWithHeader(text, header string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return SeeMore(StripLeadingHeader(text, header), header)
}

// StripLeadingHeader removes header and the line breaks right after it.
func StripLeadingHeader(text, header string) string {
	if strings.TrimSpace(header) == "" || !strings.HasPrefix(text, header) {
		return text
	}
	rest := strings.TrimPrefix(text, header)
	for i := 0; i < 2; i++ {
		switch {
		case strings.HasPrefix(rest, "\r\n"):
			rest = rest[2:]
		case strings.HasPrefix(rest, "\n"):
			rest = rest[1:]
		}
	}
	return rest
}
