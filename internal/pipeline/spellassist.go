package pipeline

import (
	"context"
	"unicode"
)

// recordIfMisspelled feeds the original, pre-stem token to the spell-assist
// collaborator. A token is recorded once per session when the collaborator
// flags it, the first suggestion differs from it, and it is purely
// alphabetic. Collaborator failures are logged and swallowed; spell-assist
// never interrupts keyword production.
func (p *Pipeline) recordIfMisspelled(ctx context.Context, raw string) {
	correct, err := p.speller.Check(ctx, raw)
	if err != nil {
		p.logger.Warn("spell check failed", "word", raw, "error", err)
		return
	}
	if correct {
		return
	}
	suggestions, err := p.speller.Suggest(ctx, raw)
	if err != nil {
		p.logger.Warn("spell suggestions failed", "word", raw, "error", err)
		return
	}
	if len(suggestions) == 0 || suggestions[0] == raw {
		return
	}
	if !isAlphabetic(raw) {
		return
	}
	if _, seen := p.recorded[raw]; seen {
		return
	}
	p.recorded[raw] = struct{}{}
	if err := p.speller.AddToPersonalWordlist(ctx, raw); err != nil {
		p.logger.Warn("recording misspelled word failed", "word", raw, "error", err)
	}
}

func isAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
