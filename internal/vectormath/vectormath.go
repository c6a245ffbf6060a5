// Package vectormath provides the dense vector arithmetic the search
// engine is built on: L2 normalization and batched cosine similarity
// against a row-major matrix of pre-normalized document vectors.
package vectormath

import (
	"math"

	"github.com/vecturakit/vectura/internal/verrors"
)

// Normalize returns v scaled to unit L2 length.
//
// Fails with verrors.KindInvalidInput if the norm is zero or non-finite,
// per SPEC_FULL.md §4.1.
func Normalize(v []float32) ([]float32, error) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, verrors.InvalidInput("zero norm")
	}

	out := make([]float32, len(v))
	invNorm := float32(1.0 / norm)
	for i, x := range v {
		out[i] = x * invNorm
	}
	return out, nil
}

// BatchedCosine computes S[i] = dot(matrix[i*dim:(i+1)*dim], query) for a
// row-major matrix of n rows, each of length dim, assumed pre-normalized.
// query must already be normalized and of length dim.
//
// A naive triple-loop (here, a double loop: rows × dim) is used, per
// SPEC_FULL.md §4.1's allowance for a non-BLAS implementation; accumulation
// is done in float64 for precision before writing back to float32, mirroring
// the teacher's normalizeVectorInPlace/distanceToScore accumulation style.
func BatchedCosine(query []float32, matrix []float32, n, dim int) ([]float32, error) {
	if len(query) != dim {
		return nil, verrors.DimensionMismatch(dim, len(query))
	}
	if len(matrix) != n*dim {
		return nil, verrors.InvalidInput("matrix size mismatch: got %d elements, want %d (n=%d, dim=%d)", len(matrix), n*dim, n, dim)
	}

	scores := make([]float32, n)
	for i := 0; i < n; i++ {
		row := matrix[i*dim : (i+1)*dim]
		var acc float64
		for j := 0; j < dim; j++ {
			acc += float64(row[j]) * float64(query[j])
		}
		scores[i] = float32(acc)
	}
	return scores, nil
}
