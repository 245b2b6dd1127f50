// Package markdown strips markdown formatting from model output before it is
// pushed into a plain-text messaging channel.
package markdown

import (
	"regexp"
	"strings"
)

var (
	reFencedBlock    = regexp.MustCompile("(?s)```.*?```")
	reInlineCode     = regexp.MustCompile("`([^`]+)`")
	reImage          = regexp.MustCompile(`!\[([^\]]*)\]\([^\)]+\)`)
	reLink           = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	reBoldAsterisks  = regexp.MustCompile(`\*\*([^\*]+)\*\*`)
	reBoldUnderscore = regexp.MustCompile(`__([^_]+)__`)
	reItalicAsterisk = regexp.MustCompile(`\*([^\*]+)\*`)
	reItalicUnder    = regexp.MustCompile(`_([^_]+)_`)
	reStrikethrough  = regexp.MustCompile(`~~([^~]+)~~`)
	reHeading        = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reHorizontalRule = regexp.MustCompile(`(?m)^[\-\*_]{3,}\s*$`)
	reUnorderedList  = regexp.MustCompile(`(?m)^\s*[\*\-\+]\s+`)
	reOrderedList    = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reBlockQuote     = regexp.MustCompile(`(?m)^>\s+`)
	reExtraBlank     = regexp.MustCompile(`\n{3,}`)
)

// StripFences removes fenced code blocks entirely, including their content.
func StripFences(text string) string {
	return reFencedBlock.ReplaceAllString(text, "")
}

// Strip removes markdown formatting, keeping only plain text content.
// Fenced code blocks are dropped entirely; inline formatting keeps its inner
// text.
func Strip(text string) string {
	if text == "" {
		return text
	}

	text = reFencedBlock.ReplaceAllString(text, "")
	text = reInlineCode.ReplaceAllString(text, "$1")
	text = reImage.ReplaceAllString(text, "$1")
	text = reLink.ReplaceAllString(text, "$1")
	text = reBoldAsterisks.ReplaceAllString(text, "$1")
	text = reBoldUnderscore.ReplaceAllString(text, "$1")
	text = reItalicAsterisk.ReplaceAllString(text, "$1")
	text = reItalicUnder.ReplaceAllString(text, "$1")
	text = reStrikethrough.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reHorizontalRule.ReplaceAllString(text, "")
	text = reUnorderedList.ReplaceAllString(text, "")
	text = reOrderedList.ReplaceAllString(text, "")
	text = reBlockQuote.ReplaceAllString(text, "")
	text = reExtraBlank.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
