package vbmix

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// eps is the float64 machine epsilon. It keeps the effective count of an
// abandoned component strictly positive.
var eps = math.Nextafter(1, 2) - 1

// minWeightSum is the smallest total responsibility for which the weighted
// statistics of a component are computed. Below it the component holds no
// samples and its statistics are zero.
const minWeightSum = 1e-300

// gaussianStats accumulates the responsibility-weighted sufficient statistics
// of every mixture component. Storage is allocated once by init and reused
// across iterations.
type gaussianStats struct {
	nk    []float64       // effective number of samples per component
	means *mat.Dense      // weighted mean per component, one row each
	covs  []*mat.SymDense // weighted covariance per component

	weights []float64
	col     []float64
}

func (gs *gaussianStats) init(nSamples, dim, nComp int) {
	gs.nk = make([]float64, nComp)
	gs.means = mat.NewDense(nComp, dim, nil)
	gs.covs = make([]*mat.SymDense, nComp)
	for i := range gs.covs {
		gs.covs[i] = mat.NewSymDense(dim, nil)
	}
	gs.weights = make([]float64, nSamples)
	gs.col = make([]float64, nSamples)
}

// fit computes the statistics of all components from the samples x and the
// responsibilities resp, where resp has one row per sample and one column per
// component. The covariances are normalized by the effective count, not by
// the unbiased weighted count. regCovar is added to the diagonal of every
// covariance.
func (gs *gaussianStats) fit(x, resp *mat.Dense, regCovar float64) {
	for comp := range gs.nk {
		mat.Col(gs.weights, comp, resp)
		sum := floats.Sum(gs.weights)
		nk := sum + 10*eps
		gs.nk[comp] = nk

		mu := gs.means.RawRowView(comp)
		sigma := gs.covs[comp]
		if sum < minWeightSum {
			for j := range mu {
				mu[j] = 0
			}
			sigma.Zero()
		} else {
			// With weights summing to two the weighted covariance divides by
			// one, leaving the plain weighted scatter.
			floats.Scale(2/sum, gs.weights)
			for j := range mu {
				mat.Col(gs.col, j, x)
				mu[j] = stat.Mean(gs.col, gs.weights)
			}
			stat.CovarianceMatrix(sigma, x, gs.weights)
			sigma.ScaleSym(sum/(2*nk), sigma)
		}
		for j := range mu {
			sigma.SetSym(j, j, sigma.At(j, j)+regCovar)
		}
	}
}
