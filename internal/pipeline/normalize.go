package pipeline

import (
	"html"
	"regexp"
	"strings"
)

// The normalizer is a fixed sequence of rewrites. Order matters: tag
// stripping and entity canonicalization must run before the punctuation
// passes, and whitespace collapsing must run last so the tokenizer can
// split on single spaces.
var (
	markupTags     = regexp.MustCompile(`<[^>]*>`)
	possessives    = regexp.MustCompile(`'s\b`)
	outerNonWord   = regexp.MustCompile(`^\W+|\W+$`)
	leadingPunct   = regexp.MustCompile(`(^|\s)[^\s\w]+`)
	trailingPunct  = regexp.MustCompile(`[^\s\w]+(\s|$)`)
	dashRuns       = regexp.MustCompile(`-{2,}`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// entityEscaper re-encodes the four classic markup entities. Apostrophes are
// deliberately left alone: the possessive pass still needs to see them.
var entityEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// NormalizeKeywords lowercases text, strips markup and stray punctuation,
// and collapses whitespace so the result splits cleanly on single spaces.
// It is total: malformed or empty input yields empty output, never an error.
func NormalizeKeywords(text string) string {
	text = strings.ToLower(text)
	text = markupTags.ReplaceAllString(text, " ")
	// Decode entities and re-encode so "&amp;" and a literal "&" end up in
	// the same canonical form before the punctuation passes see them.
	text = entityEscaper.Replace(html.UnescapeString(text))
	text = possessives.ReplaceAllString(text, "")
	text = outerNonWord.ReplaceAllString(text, "")
	text = leadingPunct.ReplaceAllString(text, "$1")
	text = trailingPunct.ReplaceAllString(text, "$1")
	text = dashRuns.ReplaceAllString(text, "-")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return text
}
