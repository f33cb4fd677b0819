package embedding

import "math"

// #region vector

// Vector is a fixed-length embedding. All vectors in one run share a single
// dimensionality and one pre-aligned cross-vocabulary space.
type Vector []float32

// Dim returns the vector's dimensionality.
func (v Vector) Dim() int { return len(v) }

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// IsZero reports whether every element is zero (or the vector is empty).
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// #endregion vector

// #region ops

// Dot computes the dot product of a and b. Mismatched lengths yield 0.
func Dot(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Norm computes the L2 norm of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Sub computes a - b element-wise. Mismatched lengths yield nil.
func Sub(a, b Vector) Vector {
	if len(a) != len(b) {
		return nil
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Cosine computes cosine similarity between a and b.
// Returns 0 for zero-length, mismatched, or zero-norm vectors.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Normalize returns an L2-normalized copy of v. A zero vector is returned
// unchanged rather than dividing by zero.
func Normalize(v Vector) Vector {
	n := Norm(v)
	out := make(Vector, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// #endregion ops
