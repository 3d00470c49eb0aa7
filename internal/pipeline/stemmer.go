package pipeline

import (
	snowballeng "github.com/kljensen/snowball/english"
)

// Stemmer reduces a word to its root form. Implementations must be total:
// a word that cannot be stemmed is returned unchanged, never an error.
type Stemmer interface {
	Stem(word string) string
}

// IdentityStemmer is the no-backend fallback; it returns every word as-is.
type IdentityStemmer struct{}

func (IdentityStemmer) Stem(word string) string { return word }

// SnowballStemmer applies the Snowball English stemmer.
type SnowballStemmer struct{}

func (SnowballStemmer) Stem(word string) string {
	return snowballeng.Stem(word, false)
}

// StemKeyword stems a single word with the default Snowball backend.
func StemKeyword(word string) string {
	return SnowballStemmer{}.Stem(word)
}
