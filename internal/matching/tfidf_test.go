package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTFIDF_IdenticalDocs(t *testing.T) {
	v := newTFIDFVectorizer([]string{"bitcoin above 100k", "fed rate decision"})
	a := v.transform("bitcoin above 100k")
	b := v.transform("bitcoin above 100k")
	assert.InDelta(t, 1.0, cosine(a, b), 1e-9)
}

func TestTFIDF_DisjointDocs(t *testing.T) {
	v := newTFIDFVectorizer([]string{"abc", "xyz"})
	assert.InDelta(t, 0.0, cosine(v.transform("abc"), v.transform("xyz")), 1e-9)
}

func TestTFIDF_PartialOverlapOrdering(t *testing.T) {
	corpus := []string{"bitcoin price", "bitcoin close", "senate race"}
	v := newTFIDFVectorizer(corpus)

	near := cosine(v.transform("bitcoin price"), v.transform("bitcoin close"))
	far := cosine(v.transform("bitcoin price"), v.transform("senate race"))

	assert.Greater(t, near, far)
	assert.Greater(t, near, 0.0)
	assert.Less(t, near, 1.0)
}

func TestTFIDF_UnseenNgramsIgnored(t *testing.T) {
	v := newTFIDFVectorizer([]string{"bitcoin"})
	// Entirely outside the fitted vocabulary: zero vector, zero similarity.
	vec := v.transform("zzzz")
	assert.Empty(t, vec)
	assert.InDelta(t, 0.0, cosine(vec, v.transform("bitcoin")), 1e-9)
}
