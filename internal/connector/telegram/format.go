package telegram

import (
	"regexp"
	"strings"
)

var (
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*([^*\n]+)\*`)
	reItalic     = regexp.MustCompile(`_([^_\n]+)_`)
)

// MarkdownToTelegramHTML converts the Markdown subset the bot emits
// (*bold*, _italic_, `code`) to Telegram's HTML parse mode.
func MarkdownToTelegramHTML(md string) string {
	out := escapeHTML(md)
	out = reInlineCode.ReplaceAllString(out, "<code>$1</code>")
	out = reBold.ReplaceAllString(out, "<b>$1</b>")
	out = reItalic.ReplaceAllString(out, "<i>$1</i>")
	return out
}

// StripMarkdown removes emphasis markers, for the plain-text send fallback.
func StripMarkdown(md string) string {
	out := reInlineCode.ReplaceAllString(md, "$1")
	out = reBold.ReplaceAllString(out, "$1")
	out = reItalic.ReplaceAllString(out, "$1")
	return out
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
