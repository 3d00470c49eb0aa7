package spell

import (
	"context"
	"errors"
	"testing"

	"github.com/searchcore/keywordindexer/pkg/resilience"
)

func newTestChecker(t *testing.T, words ...string) *DictChecker {
	t.Helper()
	c, err := NewDictChecker(words, nil, "test")
	if err != nil {
		t.Fatalf("building checker: %v", err)
	}
	return c
}

func TestDictCheckerCheck(t *testing.T) {
	c := newTestChecker(t, "sample", "Words")
	tests := []struct {
		word string
		want bool
	}{
		{"sample", true},
		{"SAMPLE", true}, // case-insensitive
		{"words", true},
		{"smaple", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := c.Check(context.Background(), tt.word)
		if err != nil {
			t.Fatalf("Check(%q): %v", tt.word, err)
		}
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestDictCheckerSuggest(t *testing.T) {
	c := newTestChecker(t, "sample", "simple", "ample")
	got, err := c.Suggest(context.Background(), "samply")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) == 0 || got[0] != "sample" {
		t.Errorf("Suggest(samply) = %v, want [sample ...]", got)
	}

	got, err = c.Suggest(context.Background(), "zzzzzz")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Suggest(zzzzzz) = %v, want no candidates", got)
	}
}

func TestDictCheckerSuggestDeterministic(t *testing.T) {
	c := newTestChecker(t, "cat", "bat", "rat")
	first, _ := c.Suggest(context.Background(), "zat")
	second, _ := c.Suggest(context.Background(), "zat")
	if len(first) != 3 {
		t.Fatalf("Suggest(zat) = %v, want all three neighbours", first)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("suggestion order unstable: %v vs %v", first, second)
		}
	}
}

func TestPersonalWordlistFeedsCheck(t *testing.T) {
	c := newTestChecker(t, "sample")
	if ok, _ := c.Check(context.Background(), "smaple"); ok {
		t.Fatal("unknown word reported as correct before recording")
	}
	if err := c.AddToPersonalWordlist(context.Background(), "smaple"); err != nil {
		t.Fatalf("AddToPersonalWordlist: %v", err)
	}
	if ok, _ := c.Check(context.Background(), "smaple"); !ok {
		t.Error("recorded personal word still reported as misspelled")
	}
}

// failingChecker always errors, for exercising the breaker decorator.
type failingChecker struct{}

func (failingChecker) Check(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}
func (failingChecker) Suggest(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}
func (failingChecker) AddToPersonalWordlist(context.Context, string) error {
	return errors.New("backend down")
}

func TestGuardedCheckerTripsBreaker(t *testing.T) {
	breaker := resilience.NewBreaker("spell-test", resilience.BreakerConfig{FailureThreshold: 3})
	g := Guard(failingChecker{}, breaker, nil)

	for i := 0; i < 3; i++ {
		if _, err := g.Check(context.Background(), "word"); err == nil {
			t.Fatal("failing backend returned no error")
		}
	}
	_, err := g.Check(context.Background(), "word")
	if !errors.Is(err, resilience.ErrOpen) {
		t.Errorf("after threshold failures error = %v, want ErrOpen", err)
	}
	if !breaker.Open() {
		t.Error("breaker not open after consecutive failures")
	}
}
