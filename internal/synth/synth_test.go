package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func testComponents() []Component {
	return []Component{
		{Mean: []float64{.8, -2}, Covariance: SymmetricCovariance(.1, .02, .02, .15), Count: 300},
		{Mean: []float64{-2.5, -.05}, Covariance: SymmetricCovariance(.3, -.01, -.01, .3), Count: 500},
		{Mean: []float64{-2, 2}, Covariance: SymmetricCovariance(.7, .4, .3, .6), Count: 400},
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(2, testComponents())
	require.NoError(t, err)
	b, err := Generate(2, testComponents())
	require.NoError(t, err)
	assert.Equal(t, a.Samples(), b.Samples())

	c, err := Generate(3, testComponents())
	require.NoError(t, err)
	assert.NotEqual(t, a.Samples(), c.Samples())
}

func TestGenerateCounts(t *testing.T) {
	d, err := Generate(2, testComponents())
	require.NoError(t, err)
	assert.Equal(t, 1200, d.Len())
	assert.Equal(t, []int{300, 500, 400}, d.Counts())
	assert.Equal(t, 3, d.NumLabels())

	counts := make([]int, 3)
	prev := 0
	for i, l := range d.Labels() {
		counts[l]++
		// Labels are emitted in component order.
		assert.GreaterOrEqual(t, l, prev, "sample %d", i)
		prev = l
	}
	assert.Equal(t, []int{300, 500, 400}, counts)
}

func TestGenerateMoments(t *testing.T) {
	comps := []Component{
		{Mean: []float64{1.2, 2.5}, Covariance: SymmetricCovariance(.3, .03, .09, .3), Count: 20000},
	}
	d, err := Generate(7, comps)
	require.NoError(t, err)
	m := d.Matrix()
	col := mat.Col(nil, 0, m)
	assert.InDelta(t, 1.2, stat.Mean(col, nil), 0.02)
	col = mat.Col(nil, 1, m)
	assert.InDelta(t, 2.5, stat.Mean(col, nil), 0.02)

	cov := mat.NewSymDense(2, nil)
	stat.CovarianceMatrix(cov, m, nil)
	assert.InDelta(t, .3, cov.At(0, 0), 0.02)
	assert.InDelta(t, .06, cov.At(0, 1), 0.02)
}

func TestMatrixMatchesSamples(t *testing.T) {
	d, err := Generate(1, testComponents())
	require.NoError(t, err)
	m := d.Matrix()
	r, c := m.Dims()
	assert.Equal(t, d.Len(), r)
	assert.Equal(t, 2, c)
	for _, i := range []int{0, 299, 300, 1199} {
		s := d.At(i)
		assert.Equal(t, s.Point[0], m.At(i, 0))
		assert.Equal(t, s.Point[1], m.At(i, 1))
	}
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(1, nil)
	assert.ErrorIs(t, err, ErrNoComponents)

	_, err = Generate(1, []Component{{Mean: []float64{0, 0}, Covariance: SymmetricCovariance(1, 0, 0, 1)}})
	assert.ErrorIs(t, err, ErrNoComponents)

	_, err = Generate(1, []Component{{Mean: []float64{0}, Covariance: SymmetricCovariance(1, 0, 0, 1), Count: 1}})
	assert.ErrorIs(t, err, ErrDimension)

	_, err = Generate(1, []Component{{Mean: []float64{0, 0}, Covariance: SymmetricCovariance(1, 0, 0, 1), Count: -1}})
	assert.ErrorIs(t, err, ErrNegativeCount)

	_, err = Generate(1, []Component{{Mean: []float64{0, 0}, Covariance: SymmetricCovariance(1, 2, 2, 1), Count: 1}})
	assert.ErrorIs(t, err, ErrCovariance)
}
