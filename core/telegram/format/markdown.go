// Package format holds Telegram text formatting helpers.
package format

import "strings"

const mdV2Specials = "\\_*[]()~`>#+-=|{}.!"

var v2Replacer = func() *strings.Replacer {
	pairs := make([]string, 0, len(mdV2Specials)*2)
	for _, r := range mdV2Specials {
		pairs = append(pairs, string(r), "\\"+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeV2 escapes text for MarkdownV2 outside code entities.
func EscapeV2(text string) string {
	return v2Replacer.Replace(text)
}
