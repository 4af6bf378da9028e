package robotmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestInverse(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{4, 7, 2, 6})

	inv, err := Inverse(a)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(a, inv)
	ident := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	assert.True(t, mat.EqualApprox(&prod, ident, 1e-12))
}

func TestInverseSingular(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 4})

	_, err := Inverse(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestInverseNonSquare(t *testing.T) {
	a := mat.NewDense(2, 3, nil)

	_, err := Inverse(a)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestDeterminant(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 3, 0,
		0, 0, 4,
	})

	det, err := Determinant(a)
	require.NoError(t, err)
	assert.InDelta(t, 24, det, 1e-12)
}

func TestDeterminantNonSquare(t *testing.T) {
	a := mat.NewDense(3, 2, nil)

	_, err := Determinant(a)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestEigenSym(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{2, 1, 1, 2})

	eig, err := EigenSym(a)
	require.NoError(t, err)
	require.Len(t, eig.Values, 2)

	// Eigenvalues of [[2,1],[1,2]] are 1 and 3, ascending.
	assert.InDelta(t, 1, eig.Values[0], 1e-12)
	assert.InDelta(t, 3, eig.Values[1], 1e-12)

	// Each eigenvector v must satisfy A*v = lambda*v.
	for i, lambda := range eig.Values {
		v := mat.NewVecDense(2, []float64{eig.Vectors.At(0, i), eig.Vectors.At(1, i)})
		var av mat.VecDense
		av.MulVec(a, v)
		var lv mat.VecDense
		lv.ScaleVec(lambda, v)
		assert.True(t, mat.EqualApprox(&av, &lv, 1e-12), "eigenpair %d", i)
	}
}

func TestEigenSymRejectsAsymmetric(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := EigenSym(a)
	assert.ErrorIs(t, err, ErrNotSymmetric)
}

func TestDot(t *testing.T) {
	got, err := Dot([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 32, got, 1e-12)
}

func TestDotLengthMismatch(t *testing.T) {
	_, err := Dot([]float64{1, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestCross(t *testing.T) {
	got, err := Cross([]float64{1, 0, 0}, []float64{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, got)

	// Anti-commutative.
	flipped, err := Cross([]float64{0, 1, 0}, []float64{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, -1}, flipped)
}

func TestCrossWrongDimension(t *testing.T) {
	_, err := Cross([]float64{1, 0}, []float64{0, 1, 0})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestCrossOrthogonal(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-4, 5, 0.5}

	c, err := Cross(a, b)
	require.NoError(t, err)

	da, err := Dot(a, c)
	require.NoError(t, err)
	db, err := Dot(b, c)
	require.NoError(t, err)
	assert.True(t, math.Abs(da) < 1e-12)
	assert.True(t, math.Abs(db) < 1e-12)
}
