package vbmix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Component is one slot of a fitted mixture.
type Component struct {
	Weight     float64
	Mean       []float64
	Covariance *mat.SymDense
}

// MixtureState is a snapshot of the estimator's current belief.
type MixtureState struct {
	Components []Component
	Converged  bool
	LowerBound float64
	NumIter    int
}

// Weights returns the weight of every component slot.
func (s MixtureState) Weights() []float64 {
	w := make([]float64, len(s.Components))
	for k, c := range s.Components {
		w[k] = c.Weight
	}
	return w
}

// ActiveWeights returns, in slot order, the weights strictly above
// threshold. Components at or below the threshold stay in the state.
func (s MixtureState) ActiveWeights(threshold float64) []float64 {
	var w []float64
	for _, c := range s.Components {
		if c.Weight > threshold {
			w = append(w, c.Weight)
		}
	}
	return w
}

// Score returns the log density of the fitted mixture at x, the log-sum-exp
// over components of the weighted log probabilities. Score panics if the
// estimator has not been fitted or if len(x) does not match the data
// dimension.
func (b *BayesianGaussianMixture) Score(x []float64) float64 {
	if !b.Fitted() {
		panic("vbmix: score before fit")
	}
	if len(x) != b.dim {
		panic("vbmix: score dimension mismatch")
	}
	w := make([]float64, len(b.logConst))
	b.weightedLogProb(w, x)
	return floats.LogSumExp(w)
}

// ScoreSamples returns the log density of the fitted mixture at every row
// of xs.
func (b *BayesianGaussianMixture) ScoreSamples(xs mat.Matrix) ([]float64, error) {
	r, err := b.checkInput(xs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, r)
	w := make([]float64, len(b.logConst))
	x := make([]float64, b.dim)
	for i := range out {
		mat.Row(x, i, xs)
		b.weightedLogProb(w, x)
		out[i] = floats.LogSumExp(w)
	}
	return out, nil
}

// PredictProba returns the responsibility of every component for every row
// of xs.
func (b *BayesianGaussianMixture) PredictProba(xs mat.Matrix) (*mat.Dense, error) {
	r, err := b.checkInput(xs)
	if err != nil {
		return nil, err
	}
	resp := mat.NewDense(r, len(b.logConst), nil)
	b.eStep(mat.DenseCopyOf(xs), resp)
	resp.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, resp)
	return resp, nil
}

// Predict returns the most responsible component for every row of xs.
func (b *BayesianGaussianMixture) Predict(xs mat.Matrix) ([]int, error) {
	r, err := b.checkInput(xs)
	if err != nil {
		return nil, err
	}
	labels := make([]int, r)
	w := make([]float64, len(b.logConst))
	x := make([]float64, b.dim)
	for i := range labels {
		mat.Row(x, i, xs)
		b.weightedLogProb(w, x)
		labels[i] = floats.MaxIdx(w)
	}
	return labels, nil
}

func (b *BayesianGaussianMixture) checkInput(xs mat.Matrix) (int, error) {
	if !b.Fitted() {
		return 0, ErrNotFitted
	}
	if xs == nil {
		return 0, ErrEmptySet
	}
	r, c := xs.Dims()
	if c != b.dim {
		return 0, fmt.Errorf("%w: fitted with %d features, got %d", ErrDimensionMismatch, b.dim, c)
	}
	return r, nil
}

// ComponentDensity returns the probability density function of a single
// Gaussian with the given mean and covariance.
func ComponentDensity(mean []float64, cov mat.Symmetric) (func(x []float64) float64, error) {
	if cov.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("%w: mean has %d values, covariance is %d×%d",
			ErrDimensionMismatch, len(mean), cov.SymmetricDim(), cov.SymmetricDim())
	}
	n, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, ErrIllDefinedCovariance
	}
	return n.Prob, nil
}

// ScoreComponent returns the density at x of the Gaussian with the given
// mean and covariance.
func ScoreComponent(x, mean []float64, cov mat.Symmetric) (float64, error) {
	pdf, err := ComponentDensity(mean, cov)
	if err != nil {
		return 0, err
	}
	if len(x) != len(mean) {
		return 0, fmt.Errorf("%w: point has %d values for %d features", ErrDimensionMismatch, len(x), len(mean))
	}
	return pdf(x), nil
}
