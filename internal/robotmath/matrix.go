// Package robotmath collects the small numeric helpers shared by the robot
// subsystems: dense linear algebra thin-wrapped over gonum, rate limiting
// for drive control, and elapsed-time measurement.
package robotmath

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular reports a matrix that cannot be inverted.
	ErrSingular = errors.New("robotmath: matrix is singular")

	// ErrNotSymmetric reports a matrix handed to the symmetric eigen
	// decomposition that is not symmetric.
	ErrNotSymmetric = errors.New("robotmath: matrix is not symmetric")

	// ErrDimension reports mismatched or unsupported dimensions.
	ErrDimension = errors.New("robotmath: dimension mismatch")
)

// symTolerance is the largest |a[i][j]-a[j][i]| still considered symmetric.
const symTolerance = 1e-10

// Inverse returns the inverse of a square matrix.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: cannot invert %dx%d matrix", ErrDimension, r, c)
	}

	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}

// Determinant returns the determinant of a square matrix.
func Determinant(a mat.Matrix) (float64, error) {
	r, c := a.Dims()
	if r != c {
		return 0, fmt.Errorf("%w: determinant of %dx%d matrix", ErrDimension, r, c)
	}
	return mat.Det(a), nil
}

// Eigen holds the eigen decomposition of a symmetric matrix: eigenvalues in
// ascending order with the corresponding eigenvectors stored column-wise.
type Eigen struct {
	Values  []float64
	Vectors *mat.Dense
}

// EigenSym computes the eigen decomposition of a symmetric matrix.
func EigenSym(a mat.Matrix) (*Eigen, error) {
	sym, err := asSym(a)
	if err != nil {
		return nil, err
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, fmt.Errorf("robotmath: eigen decomposition failed to converge")
	}

	var vecs mat.Dense
	es.VectorsTo(&vecs)
	return &Eigen{
		Values:  es.Values(nil),
		Vectors: &vecs,
	}, nil
}

// asSym validates symmetry and converts to gonum's symmetric storage.
func asSym(a mat.Matrix) (*mat.SymDense, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: eigen decomposition of %dx%d matrix", ErrDimension, r, c)
	}
	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			if math.Abs(a.At(i, j)-a.At(j, i)) > symTolerance {
				return nil, ErrNotSymmetric
			}
		}
	}

	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < c; j++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	return sym, nil
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dot of length %d and %d", ErrDimension, len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}

// Cross returns the cross product of two 3-dimensional vectors.
func Cross(a, b []float64) ([]float64, error) {
	if len(a) != 3 || len(b) != 3 {
		return nil, fmt.Errorf("%w: cross product needs 3-dimensional vectors", ErrDimension)
	}
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}, nil
}
