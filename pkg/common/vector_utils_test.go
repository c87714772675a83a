package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAverageEmbeddings(t *testing.T) {
	avg, err := AverageEmbeddings([][]float32{
		{1, 2, 3},
		{3, 4, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3, 4}, avg)
}

func TestAverageEmbeddingsErrors(t *testing.T) {
	_, err := AverageEmbeddings(nil)
	assert.Error(t, err)

	_, err = AverageEmbeddings([][]float32{{1, 2}, {1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalizeL2(t *testing.T) {
	normalized := NormalizeL2([]float32{3, 4})
	assert.InDelta(t, 0.6, normalized[0], 1e-6)
	assert.InDelta(t, 0.8, normalized[1], 1e-6)

	var norm float64
	for _, v := range normalized {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, NormalizeL2(zero))
}

func TestFormatAndParsePgVector(t *testing.T) {
	v := []float32{0.25, -1, 3.5}
	s := FormatPgVector(v)
	assert.Equal(t, "[0.25,-1,3.5]", s)

	parsed, err := ParsePgVector(s)
	require.NoError(t, err)
	assert.Equal(t, v, parsed)
}

func TestParsePgVectorBraceForm(t *testing.T) {
	parsed, err := ParsePgVector("{0.5, 1.5}")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.5}, parsed)
}

func TestParsePgVectorEmptyAndInvalid(t *testing.T) {
	parsed, err := ParsePgVector("[]")
	require.NoError(t, err)
	assert.Empty(t, parsed)

	_, err = ParsePgVector("[a,b]")
	assert.Error(t, err)
}
