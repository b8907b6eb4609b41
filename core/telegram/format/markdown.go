// Package format renders values for Telegram message text.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

var (
	mdV1Re = regexp.MustCompile("([_*`\\[])")
	mdV2Re = regexp.MustCompile("([" + regexp.QuoteMeta(mdV2Specials) + "])")
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
func EscapeMarkdown(text string, version int) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// Bold renders text in MarkdownV1 emphasis. V1 has no escapes inside an
// entity, so every literal '*' closes the entity, is escaped outside it,
// and the entity is reopened for the rest.
func Bold(text string) string {
	var b strings.Builder
	for i, part := range strings.Split(strings.TrimSpace(text), "*") {
		if i > 0 {
			b.WriteString(`\*`)
		}
		if part != "" {
			b.WriteString("*" + part + "*")
		}
	}
	return b.String()
}
