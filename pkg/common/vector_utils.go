// Package common holds the vector math shared by the intent router, the
// scoring engine, and the store adapter's pgvector bindings.
package common

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrDimensionMismatch is returned when two vectors of different lengths
// are combined.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// NormalizeL2 normalizes a vector to unit Euclidean norm. Vectors with a
// near-zero norm are returned unchanged.
func NormalizeL2(vector []float32) []float32 {
	var sum float32
	for _, v := range vector {
		sum += v * v
	}
	norm := float32(math.Sqrt(float64(sum)))

	if norm < 1e-10 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = v / norm
	}
	return normalized
}

// DotProduct returns the dot product of two equal-length vectors.
func DotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity returns the cosine similarity of two vectors in
// [-1, 1]. Vectors must have equal length; when either has zero norm the
// similarity is 0.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA < 1e-10 || normB < 1e-10 {
		return 0, nil
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))), nil
}

// AverageEmbeddings returns the elementwise mean of the given vectors.
// Used to compute intent route centroids from seed utterances.
func AverageEmbeddings(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to average")
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(v), dim)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	avg := make([]float32, dim)
	n := float64(len(vectors))
	for i := range sum {
		avg[i] = float32(sum[i] / n)
	}
	return avg, nil
}

// FormatPgVector formats a vector as a pgvector literal: [0.1,0.2,...].
func FormatPgVector(vector []float32) string {
	if len(vector) == 0 {
		return "[]"
	}

	var b strings.Builder
	b.WriteString("[")
	for i, v := range vector {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteString("]")
	return b.String()
}

// ParsePgVector parses a pgvector literal. Both bracket and brace forms
// are accepted.
func ParsePgVector(s string) ([]float32, error) {
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimSuffix(s, "}")

	if s == "" {
		return []float32{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float32, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vector component %q: %w", part, err)
		}
		result[i] = float32(f)
	}
	return result, nil
}
