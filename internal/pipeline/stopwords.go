package pipeline

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed stopwords.txt
var stopwordData string

var (
	stopwordsOnce sync.Once
	stopwords     []string
)

// DefaultUnindexedWords returns the built-in English stop-word list. The
// embedded resource is parsed once per process; the returned slice is shared
// and must be treated as read-only.
func DefaultUnindexedWords() []string {
	stopwordsOnce.Do(func() {
		for _, line := range strings.Split(stopwordData, "\n") {
			word := strings.TrimSpace(line)
			if word == "" {
				continue
			}
			stopwords = append(stopwords, word)
		}
	})
	return stopwords
}
