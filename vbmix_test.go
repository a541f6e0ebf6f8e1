package vbmix

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// threeBlobs samples n points from each of three well separated Gaussians.
func threeBlobs(t *testing.T, seed uint64, n int) *mat.Dense {
	t.Helper()
	src := rand.NewSource(seed)
	means := [][]float64{{-6, 0}, {6, 0}, {0, 8}}
	covs := []*mat.SymDense{
		mat.NewSymDense(2, []float64{1, 0.2, 0.2, 0.5}),
		mat.NewSymDense(2, []float64{0.5, 0, 0, 1}),
		mat.NewSymDense(2, []float64{0.8, -0.3, -0.3, 0.8}),
	}
	xs := mat.NewDense(3*n, 2, nil)
	for j := range means {
		dist, ok := distmv.NewNormal(means[j], covs[j], src)
		require.True(t, ok)
		for i := 0; i < n; i++ {
			dist.Rand(xs.RawRowView(j*n + i))
		}
	}
	return xs
}

func TestFitWeightsSumToOne(t *testing.T) {
	xs := threeBlobs(t, 1, 200)
	for _, prior := range []WeightPrior{DirichletDistribution, DirichletProcess} {
		t.Run(prior.String(), func(t *testing.T) {
			bgm := &BayesianGaussianMixture{
				NumComponents: 6,
				WeightPrior:   prior,
				MaxIter:       5,
				WarmStart:     true,
				Src:           rand.NewSource(2),
			}
			for call := 0; call < 10; call++ {
				require.NoError(t, bgm.Fit(xs))
				w := bgm.Weights()
				require.Len(t, w, 6)
				assert.InDelta(t, 1, floats.Sum(w), 1e-6)
				for _, v := range w {
					assert.GreaterOrEqual(t, v, 0.0)
				}
			}
		})
	}
}

func TestFitRecoversComponents(t *testing.T) {
	xs := threeBlobs(t, 3, 300)
	bgm := &BayesianGaussianMixture{
		NumComponents:       6,
		WeightConcentration: 0.01,
		MaxIter:             1000,
		Src:                 rand.NewSource(4),
	}
	require.NoError(t, bgm.Fit(xs))
	assert.True(t, bgm.Converged())

	state := bgm.State()
	for _, want := range [][]float64{{-6, 0}, {6, 0}, {0, 8}} {
		var near float64
		for _, c := range state.Components {
			if floats.Distance(c.Mean, want, 2) < 1 {
				near += c.Weight
			}
		}
		assert.InDelta(t, 1.0/3, near, 0.05, "weight near %v", want)
	}
	assert.LessOrEqual(t, len(state.ActiveWeights(0.05)), 6)
}

func TestLowerBoundMonotone(t *testing.T) {
	xs := threeBlobs(t, 5, 100)
	for _, prior := range []WeightPrior{DirichletDistribution, DirichletProcess} {
		t.Run(prior.String(), func(t *testing.T) {
			bgm := &BayesianGaussianMixture{
				NumComponents: 6,
				WeightPrior:   prior,
				MeanPrecision: 0.8,
				MaxIter:       1,
				Tol:           1e-3,
				WarmStart:     true,
				Src:           rand.NewSource(6),
			}
			prev := math.Inf(-1)
			for call := 0; call < 2000; call++ {
				require.NoError(t, bgm.Fit(xs))
				lb := bgm.LowerBound()
				assert.GreaterOrEqual(t, lb, prev-1e-6*math.Abs(prev), "call %d", call)
				prev = lb
				if bgm.Converged() {
					break
				}
			}
			assert.True(t, bgm.Converged())
		})
	}
}

func TestWarmStartResumes(t *testing.T) {
	xs := threeBlobs(t, 7, 100)
	bgm := &BayesianGaussianMixture{
		NumComponents: 4,
		MaxIter:       3,
		Tol:           1e-12,
		WarmStart:     true,
		Src:           rand.NewSource(8),
	}
	require.NoError(t, bgm.Fit(xs))
	assert.Equal(t, 3, bgm.NumIter())
	assert.False(t, bgm.Converged())
	first := bgm.LowerBound()

	require.NoError(t, bgm.Fit(xs))
	assert.Equal(t, 6, bgm.NumIter())
	assert.GreaterOrEqual(t, bgm.LowerBound(), first-1e-6*math.Abs(first))

	bgm.WarmStart = false
	require.NoError(t, bgm.Fit(xs))
	assert.Equal(t, 3, bgm.NumIter())
}

func TestFitErrors(t *testing.T) {
	xs := threeBlobs(t, 9, 10)
	for _, test := range []struct {
		name string
		bgm  *BayesianGaussianMixture
		xs   mat.Matrix
		want error
	}{
		{
			name: "nil data",
			bgm:  &BayesianGaussianMixture{NumComponents: 2},
			want: ErrEmptySet,
		},
		{
			name: "no components",
			bgm:  &BayesianGaussianMixture{},
			xs:   xs,
			want: ErrTooFewComponents,
		},
		{
			name: "too few samples",
			bgm:  &BayesianGaussianMixture{NumComponents: 31},
			xs:   xs,
			want: ErrTooFewSamples,
		},
		{
			name: "negative concentration",
			bgm:  &BayesianGaussianMixture{NumComponents: 2, WeightConcentration: -1},
			xs:   xs,
			want: ErrBadPrior,
		},
		{
			name: "negative mean precision",
			bgm:  &BayesianGaussianMixture{NumComponents: 2, MeanPrecision: -1},
			xs:   xs,
			want: ErrBadPrior,
		},
		{
			name: "low degrees of freedom",
			bgm:  &BayesianGaussianMixture{NumComponents: 2, DegreesOfFreedom: 0.5},
			xs:   xs,
			want: ErrBadPrior,
		},
		{
			name: "unknown weight prior",
			bgm:  &BayesianGaussianMixture{NumComponents: 2, WeightPrior: WeightPrior(7)},
			xs:   xs,
			want: ErrBadPrior,
		},
		{
			name: "mean prior dimension",
			bgm:  &BayesianGaussianMixture{NumComponents: 2, MeanPrior: []float64{1, 2, 3}},
			xs:   xs,
			want: ErrDimensionMismatch,
		},
		{
			name: "indefinite covariance prior",
			bgm: &BayesianGaussianMixture{
				NumComponents:   2,
				CovariancePrior: mat.NewSymDense(2, []float64{1, 2, 2, 1}),
			},
			xs:   xs,
			want: ErrBadPrior,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var err error
			if test.xs == nil {
				err = test.bgm.Fit(nil)
			} else {
				err = test.bgm.Fit(test.xs)
			}
			assert.True(t, errors.Is(err, test.want), "got %v, want %v", err, test.want)
		})
	}
}

func TestFitDimensionChange(t *testing.T) {
	xs := threeBlobs(t, 10, 20)
	bgm := &BayesianGaussianMixture{NumComponents: 3, WarmStart: true, Src: rand.NewSource(1)}
	require.NoError(t, bgm.Fit(xs))
	err := bgm.Fit(mat.NewDense(10, 3, nil))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDegenerateDataWithoutRegularization(t *testing.T) {
	// Identical samples make the empirical covariance prior singular.
	xs := mat.NewDense(10, 2, nil)
	bgm := &BayesianGaussianMixture{NumComponents: 2, Src: rand.NewSource(1)}
	err := bgm.Fit(xs)
	assert.ErrorIs(t, err, ErrIllDefinedCovariance)
}

func TestConcentrationParams(t *testing.T) {
	xs := threeBlobs(t, 11, 50)
	bgm := &BayesianGaussianMixture{
		NumComponents:       5,
		WeightPrior:         DirichletDistribution,
		WeightConcentration: 1,
		Src:                 rand.NewSource(1),
	}
	alpha, beta := bgm.ConcentrationParams()
	assert.Nil(t, alpha)
	require.NoError(t, bgm.Fit(xs))
	alpha, beta = bgm.ConcentrationParams()
	assert.Nil(t, beta)
	require.Len(t, alpha, 5)
	// Each Dirichlet parameter is the prior plus the effective count.
	assert.InDelta(t, 5+150, floats.Sum(alpha), 1e-6)

	bgm = &BayesianGaussianMixture{
		NumComponents:       5,
		WeightPrior:         DirichletProcess,
		WeightConcentration: 1,
		Src:                 rand.NewSource(1),
	}
	require.NoError(t, bgm.Fit(xs))
	alpha, beta = bgm.ConcentrationParams()
	require.Len(t, alpha, 5)
	require.Len(t, beta, 5)
	assert.InDelta(t, 1, beta[4], 1e-9)
}

func TestStateSnapshot(t *testing.T) {
	xs := threeBlobs(t, 12, 50)
	bgm := &BayesianGaussianMixture{NumComponents: 4, Src: rand.NewSource(1)}
	assert.Empty(t, bgm.State().Components)
	require.NoError(t, bgm.Fit(xs))
	assert.True(t, bgm.Fitted())

	state := bgm.State()
	require.Len(t, state.Components, 4)
	assert.Equal(t, bgm.Converged(), state.Converged)
	assert.Equal(t, bgm.LowerBound(), state.LowerBound)
	assert.InDelta(t, 1, floats.Sum(state.Weights()), 1e-9)

	// Mutating the snapshot leaves the estimator untouched.
	state.Components[0].Mean[0] = 1e9
	state.Components[0].Covariance.SetSym(0, 0, 1e9)
	assert.NotEqual(t, 1e9, bgm.Means().At(0, 0))
	assert.NotEqual(t, 1e9, bgm.Covariances()[0].At(0, 0))

	assert.Len(t, state.ActiveWeights(-1), 4)
	assert.Empty(t, state.ActiveWeights(1))
}
