package matching

import "math"

// ngram sizes used for name vectorization. Character grams tolerate venue
// spelling drift ("100k" vs "100,000") better than word tokens.
const (
	minGram = 2
	maxGram = 3
)

// sparseVec maps vocabulary column to weight.
type sparseVec map[int]float64

// tfidfVectorizer holds the vocabulary and inverse document frequencies
// learned from one corpus of cleaned market names.
type tfidfVectorizer struct {
	vocab map[string]int
	idf   []float64
}

// charNgrams emits all character n-grams of the configured sizes.
func charNgrams(text string) []string {
	runes := []rune(text)
	var grams []string
	for n := minGram; n <= maxGram; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// newTFIDFVectorizer fits vocabulary and smoothed IDF over the corpus:
// idf(t) = ln((1+n)/(1+df(t))) + 1.
func newTFIDFVectorizer(corpus []string) *tfidfVectorizer {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, g := range charNgrams(doc) {
			if !seen[g] {
				seen[g] = true
				df[g]++
			}
		}
	}

	v := &tfidfVectorizer{
		vocab: make(map[string]int, len(df)),
		idf:   make([]float64, 0, len(df)),
	}
	n := float64(len(corpus))
	for _, doc := range corpus {
		for _, g := range charNgrams(doc) {
			if _, ok := v.vocab[g]; ok {
				continue
			}
			v.vocab[g] = len(v.idf)
			v.idf = append(v.idf, math.Log((1+n)/(1+float64(df[g])))+1)
		}
	}
	return v
}

// transform maps a document to its L2-normalized TF-IDF vector. N-grams
// outside the fitted vocabulary are ignored; a document sharing no
// vocabulary yields the zero vector.
func (v *tfidfVectorizer) transform(doc string) sparseVec {
	vec := make(sparseVec)
	for _, g := range charNgrams(doc) {
		col, ok := v.vocab[g]
		if !ok {
			continue
		}
		vec[col] += v.idf[col]
	}

	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for col, w := range vec {
		vec[col] = w / norm
	}
	return vec
}

// cosine returns the dot product of two L2-normalized sparse vectors.
func cosine(a, b sparseVec) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for col, w := range a {
		dot += w * b[col]
	}
	if dot > 1 {
		// Normalization leaves float dust; keep the score in [0,1].
		return 1
	}
	return dot
}
