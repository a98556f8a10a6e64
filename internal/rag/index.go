package rag

import (
	"math"
	"sort"
	"sync"
)

// epsilon keeps CosineSimilarity finite for zero vectors.
const epsilon = 1e-8

// Chunk is a text fragment paired with its embedding.
type Chunk struct {
	Text      string
	Embedding []float64
}

// Match is a Chunk with its similarity to a query.
type Match struct {
	Chunk
	Score float64
}

// Index is an in-memory list of chunks searched by linear cosine scan.
// It is safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	chunks []Chunk
}

func NewIndex() *Index { return &Index{} }

// Add appends a chunk. Duplicates are kept.
func (x *Index) Add(text string, embedding []float64) {
	x.mu.Lock()
	x.chunks = append(x.chunks, Chunk{Text: text, Embedding: embedding})
	x.mu.Unlock()
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Chunks returns a copy of the stored chunks in insertion order.
func (x *Index) Chunks() []Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// BestMatch returns the chunk most similar to query. A chunk replaces the
// current best only when it scores strictly higher, so ties go to the chunk
// added first. ok is false when the index is empty.
func (x *Index) BestMatch(query []float64) (best Match, ok bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	bestScore := -1.0
	for _, c := range x.chunks {
		score := CosineSimilarity(query, c.Embedding)
		if score > bestScore {
			bestScore = score
			best = Match{Chunk: c, Score: score}
			ok = true
		}
	}
	return best, ok
}

// TopK returns up to k chunks ordered by descending similarity, insertion
// order breaking ties.
func (x *Index) TopK(query []float64, k int) []Match {
	x.mu.RLock()
	matches := make([]Match, len(x.chunks))
	for i, c := range x.chunks {
		matches[i] = Match{Chunk: c, Score: CosineSimilarity(query, c.Embedding)}
	}
	x.mu.RUnlock()
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// CosineSimilarity is dot(a, b) / (|a||b| + 1e-8). Vectors of unequal length
// are compared over the shorter prefix.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}
