package rag

import (
	"context"
	"math"
	"strings"
	"unicode/utf16"
)

// Dimensions is the length of every vector produced by Embed.
const Dimensions = 128

// Embed maps text to a fixed-length vector. Each UTF-16 code unit at position
// i adds its value to dimensions i, 7i and 13i (mod Dimensions) with weights
// 1, 0.5 and 0.25. The result is unit length unless the text is empty after
// trimming, in which case it is all zeros.
func Embed(text string) []float64 {
	vec := make([]float64, Dimensions)
	normalized := strings.ToLower(strings.TrimSpace(text))
	for i, c := range utf16.Encode([]rune(normalized)) {
		v := float64(c)
		vec[i%Dimensions] += v
		vec[(i*7)%Dimensions] += v * 0.5
		vec[(i*13)%Dimensions] += v * 0.25
	}
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if mag := math.Sqrt(sum); mag > 0 {
		for i := range vec {
			vec[i] /= mag
		}
	}
	return vec
}

// Embedder converts a batch of texts into vectors. The returned slice is
// parallel to texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// HashEmbedder is the Embedder backed by Embed.
type HashEmbedder struct{}

func (HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = Embed(t)
	}
	return out, nil
}
