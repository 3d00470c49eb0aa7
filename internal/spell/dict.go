// Package spell provides the optional spell-assist collaborator used by the
// indexing pipeline. DictChecker is a small dictionary-backed implementation
// with edit-distance-1 suggestions; the personal wordlist is persisted as a
// Redis set so it survives process restarts and is shared across indexer
// instances.
package spell

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	pkgredis "github.com/searchcore/keywordindexer/pkg/redis"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// DictChecker checks words against an in-memory dictionary plus a personal
// wordlist persisted in Redis. Safe for concurrent use.
type DictChecker struct {
	mu       sync.RWMutex
	words    map[string]struct{}
	personal map[string]struct{}

	cache    *pkgredis.Client
	listName string
	logger   *slog.Logger
}

// NewDictChecker builds a checker over the given dictionary words. cache may
// be nil, in which case the personal wordlist is process-local only.
// listName namespaces the Redis set (one list per dictionary).
func NewDictChecker(words []string, cache *pkgredis.Client, listName string) (*DictChecker, error) {
	c := &DictChecker{
		words:    make(map[string]struct{}, len(words)),
		personal: make(map[string]struct{}),
		cache:    cache,
		listName: listName,
		logger:   slog.Default().With("component", "spell-checker", "wordlist", listName),
	}
	for _, w := range words {
		c.words[strings.ToLower(w)] = struct{}{}
	}
	if cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pkgredis.OpTimeout)
		defer cancel()
		members, err := cache.SetMembers(ctx, c.redisKey())
		if err != nil {
			return nil, fmt.Errorf("loading personal wordlist %q: %w", listName, err)
		}
		for _, w := range members {
			c.personal[w] = struct{}{}
		}
		c.logger.Info("personal wordlist loaded", "words", len(members))
	}
	return c, nil
}

// Check reports whether word is known to the dictionary or the personal
// wordlist. Matching is case-insensitive.
func (c *DictChecker) Check(_ context.Context, word string) (bool, error) {
	word = strings.ToLower(word)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.words[word]; ok {
		return true, nil
	}
	_, ok := c.personal[word]
	return ok, nil
}

// Suggest returns dictionary words within edit distance one of word, in
// deterministic order. An unknown word with no close neighbours yields an
// empty slice, never an error.
func (c *DictChecker) Suggest(_ context.Context, word string) ([]string, error) {
	word = strings.ToLower(word)
	seen := make(map[string]struct{})
	c.mu.RLock()
	for _, candidate := range editsAtDistanceOne(word) {
		if _, ok := c.words[candidate]; ok {
			seen[candidate] = struct{}{}
		}
	}
	c.mu.RUnlock()
	suggestions := make([]string, 0, len(seen))
	for s := range seen {
		suggestions = append(suggestions, s)
	}
	sort.Strings(suggestions)
	return suggestions, nil
}

// AddToPersonalWordlist records word in memory and, when Redis is
// configured, in the persistent set.
func (c *DictChecker) AddToPersonalWordlist(ctx context.Context, word string) error {
	word = strings.ToLower(word)
	c.mu.Lock()
	c.personal[word] = struct{}{}
	c.mu.Unlock()
	if c.cache == nil {
		return nil
	}
	if err := c.cache.SetAdd(ctx, c.redisKey(), word); err != nil {
		return fmt.Errorf("persisting personal word %q: %w", word, err)
	}
	return nil
}

func (c *DictChecker) redisKey() string {
	return "spell:personal:" + c.listName
}

// editsAtDistanceOne generates every deletion, transposition, replacement,
// and insertion of one character.
func editsAtDistanceOne(word string) []string {
	runes := []rune(word)
	edits := make([]string, 0, len(runes)*2*(len(alphabet)+1))
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) {
			edits = append(edits, string(runes[:i])+string(runes[i+1:]))
		}
		if i < len(runes)-1 {
			swapped := append([]rune(nil), runes...)
			swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
			edits = append(edits, string(swapped))
		}
		for _, r := range alphabet {
			if i < len(runes) {
				edits = append(edits, string(runes[:i])+string(r)+string(runes[i+1:]))
			}
			edits = append(edits, string(runes[:i])+string(r)+string(runes[i:]))
		}
	}
	return edits
}
