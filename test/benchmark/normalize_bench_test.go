package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/searchcore/keywordindexer/internal/pipeline"
)

var sampleTexts = map[string]string{
	"plain": "The quick brown fox jumps over the lazy dog",
	"markup": `<h1>Keyword Indexing</h1><p>An inverted index maps each <em>keyword</em>
        back to the documents containing it. Field weights let a hit in the title
        outrank the same hit in the body, and per-document locations preserve the
        order the words appeared in.</p>`,
	"entities": strings.Repeat(`Fish &amp; chips &lt;cheap&gt; &quot;classic&quot; --
        the customer's favourite -- served daily. `, 20),
}

func BenchmarkNormalizeKeywords(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				out := pipeline.NormalizeKeywords(text)
				_ = out
			}
		})
	}
}

func BenchmarkNormalizeKeywordsParallel(b *testing.B) {
	text := sampleTexts["markup"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			out := pipeline.NormalizeKeywords(text)
			_ = out
		}
	})
}

func BenchmarkSnowballStem(b *testing.B) {
	stemmer := pipeline.SnowballStemmer{}
	words := []string{
		"running", "indexes", "normalization", "documents",
		"keywords", "weighted", "locations", "accumulates",
		"transactional", "replacement",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			stemmed := stemmer.Stem(w)
			_ = stemmed
		}
	}
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseText := "the <b>customer's</b> favourite keywords -- indexed &amp; stored "
	for _, size := range sizes {
		text := strings.Repeat(baseText, size/len(baseText)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				out := pipeline.NormalizeKeywords(text)
				_ = out
			}
		})
	}
}
