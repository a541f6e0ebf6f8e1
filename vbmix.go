// Package vbmix fits Gaussian mixture models to data with variational
// inference.
//
// The weights of the mixture carry a Dirichlet-type prior, either a finite
// Dirichlet distribution or a truncated Dirichlet process. The means and
// precisions carry a conjugate Gauss-Wishart prior. With a weak weight
// concentration the model drives the weights of unneeded components toward
// zero, so NumComponents acts as an upper bound on the number of components
// that explain the data.
package vbmix

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distmv"
)

// BayesianGaussianMixture estimates a full-covariance Gaussian mixture by
// maximizing the evidence lower bound with coordinate ascent.
//
// The zero value is not usable; NumComponents must be set. Zero values of
// the other configuration fields select the defaults described on each field.
type BayesianGaussianMixture struct {
	// NumComponents sets the number of mixture component slots.
	NumComponents int
	// WeightPrior selects the prior on the mixture weights.
	WeightPrior WeightPrior
	// WeightConcentration sets the concentration of the weight prior. Small
	// values favor few active components. If zero, 1/NumComponents is used.
	WeightConcentration float64
	// MeanPrecision sets the precision of the prior on the component means.
	// If zero, 1 is used.
	MeanPrecision float64
	// MeanPrior sets the location of the prior on the component means. If
	// nil, the mean of the data is used.
	MeanPrior []float64
	// DegreesOfFreedom sets the degrees of freedom of the Wishart prior on
	// the precisions. If zero, the data dimension is used.
	DegreesOfFreedom float64
	// CovariancePrior sets the scale of the prior on the covariances. If nil,
	// the empirical covariance of the data is used.
	CovariancePrior mat.Symmetric
	// RegCovar is added to the diagonal of the component covariances.
	RegCovar float64
	// MaxIter sets the maximum number of iterations of one Fit call. If zero,
	// 100 is used.
	MaxIter int
	// Tol sets the convergence tolerance on the change of the lower bound.
	// If zero, 1e-3 is used.
	Tol float64
	// Src specifies the source for random initialization. If nil, the default
	// in exp/rand is used.
	Src rand.Source
	// WarmStart makes subsequent Fit calls continue from the previous
	// solution instead of reinitializing.
	WarmStart bool
	// Logger receives per-iteration progress at debug level. If nil, nothing
	// is logged.
	Logger *zap.Logger

	rnd func() float64

	fitted     bool
	converged  bool
	lowerBound float64
	nIter      int
	dim        int
	prior      prior

	stats gaussianStats

	concA    []float64        // Dirichlet parameters, or first Beta parameters
	concB    []float64        // second Beta parameters for the Dirichlet process
	meanPrec []float64        // posterior precision of each mean
	means    *mat.Dense       // posterior location of each mean
	dof      []float64        // posterior Wishart degrees of freedom
	covs     []*mat.SymDense  // posterior covariance of each component
	chol     []mat.Cholesky   // factorization of each covariance
	normals  []*distmv.Normal // Gaussian with the posterior mean and covariance
	logConst []float64        // per-component terms of the weighted log probability
}

// Fit runs at most MaxIter iterations of variational inference on the rows
// of xs.
//
// On the first call, or on every call without WarmStart, the responsibilities
// are initialized at random. With WarmStart later calls resume from the
// current solution and lower bound, so convergence can be detected across
// calls. Converged reports whether the change of the lower bound fell below
// Tol during this call.
//
// A component covariance that cannot be factorized returns an error wrapping
// ErrIllDefinedCovariance. The estimator must not be used after such an error.
func (b *BayesianGaussianMixture) Fit(xs mat.Matrix) error {
	if xs == nil {
		return ErrEmptySet
	}
	r, c := xs.Dims()
	if r == 0 || c == 0 {
		return ErrEmptySet
	}
	nComp := b.NumComponents
	if nComp < 1 {
		return ErrTooFewComponents
	}
	if r < nComp || r < 2 {
		return fmt.Errorf("%w: %d samples for %d components", ErrTooFewSamples, r, nComp)
	}
	if b.fitted && c != b.dim {
		return fmt.Errorf("%w: fitted with %d features, got %d", ErrDimensionMismatch, b.dim, c)
	}
	x := mat.DenseCopyOf(xs)

	p, err := b.resolvePrior(x, nComp)
	if err != nil {
		return err
	}
	b.prior = p

	maxIter := b.MaxIter
	if maxIter == 0 {
		maxIter = 100
	}
	tol := b.Tol
	if tol == 0 {
		tol = 1e-3
	}
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}

	resp := mat.NewDense(r, nComp, nil)
	doInit := !(b.WarmStart && b.fitted) || len(b.concA) != nComp
	lowerBound := math.Inf(-1)
	if doInit {
		b.allocate(r, c, nComp)
		b.randomResponsibilities(resp)
		if err := b.mStep(x, resp); err != nil {
			return err
		}
	} else {
		lowerBound = b.lowerBound
		if len(b.stats.weights) != r {
			b.stats.init(r, c, nComp)
		}
	}

	b.converged = false
	for iter := 0; iter < maxIter; iter++ {
		prev := lowerBound
		b.eStep(x, resp)
		entropy := respEntropy(resp)
		for i := 0; i < r; i++ {
			row := resp.RawRowView(i)
			for j, v := range row {
				row[j] = math.Exp(v)
			}
		}
		if err := b.mStep(x, resp); err != nil {
			return err
		}
		lowerBound = b.elbo(entropy)
		b.nIter++

		change := lowerBound - prev
		log.Debug("variational iteration",
			zap.Int("iteration", b.nIter),
			zap.Float64("lowerBound", lowerBound),
			zap.Float64("change", change),
		)
		if math.Abs(change) < tol {
			b.converged = true
			break
		}
	}
	b.lowerBound = lowerBound
	b.fitted = true
	return nil
}

func (b *BayesianGaussianMixture) allocate(nSamples, dim, nComp int) {
	b.dim = dim
	b.nIter = 0
	b.stats.init(nSamples, dim, nComp)
	b.concA = make([]float64, nComp)
	b.concB = make([]float64, nComp)
	b.meanPrec = make([]float64, nComp)
	b.means = mat.NewDense(nComp, dim, nil)
	b.dof = make([]float64, nComp)
	b.covs = make([]*mat.SymDense, nComp)
	b.chol = make([]mat.Cholesky, nComp)
	b.normals = make([]*distmv.Normal, nComp)
	for k := range b.covs {
		b.covs[k] = mat.NewSymDense(dim, nil)
	}
	b.logConst = make([]float64, nComp)
}

// randomResponsibilities fills resp with uniform random values normalized to
// sum to one across each row.
func (b *BayesianGaussianMixture) randomResponsibilities(resp *mat.Dense) {
	if b.rnd == nil {
		b.rnd = rand.Float64
		if b.Src != nil {
			b.rnd = rand.New(b.Src).Float64
		}
	}
	r, _ := resp.Dims()
	for i := 0; i < r; i++ {
		row := resp.RawRowView(i)
		for j := range row {
			row[j] = b.rnd()
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}

// mStep updates the variational posterior of the weights, means and
// precisions from the responsibilities resp.
func (b *BayesianGaussianMixture) mStep(x, resp *mat.Dense) error {
	b.stats.fit(x, resp, b.RegCovar)
	b.estimateWeights()
	b.estimateMeans()
	if err := b.estimatePrecisions(); err != nil {
		return err
	}
	b.updateLogConst()
	return nil
}

func (b *BayesianGaussianMixture) estimateWeights() {
	nk := b.stats.nk
	switch b.prior.kind {
	case DirichletProcess:
		var tail float64
		for k := len(nk) - 1; k >= 0; k-- {
			b.concA[k] = 1 + nk[k]
			b.concB[k] = b.prior.weight + tail
			tail += nk[k]
		}
	default:
		for k, n := range nk {
			b.concA[k] = b.prior.weight + n
		}
	}
}

func (b *BayesianGaussianMixture) estimateMeans() {
	beta0 := b.prior.meanPrec
	for k, n := range b.stats.nk {
		b.meanPrec[k] = beta0 + n
		mu := b.means.RawRowView(k)
		floats.ScaleTo(mu, beta0, b.prior.mean)
		floats.AddScaled(mu, n, b.stats.means.RawRowView(k))
		floats.Scale(1/b.meanPrec[k], mu)
	}
}

func (b *BayesianGaussianMixture) estimatePrecisions() error {
	beta0 := b.prior.meanPrec
	diff := make([]float64, b.dim)
	for k, n := range b.stats.nk {
		b.dof[k] = b.prior.dof + n
		floats.SubTo(diff, b.stats.means.RawRowView(k), b.prior.mean)

		sigma := b.covs[k]
		sigma.ScaleSym(n, b.stats.covs[k])
		sigma.AddSym(sigma, b.prior.covariance)
		sigma.SymRankOne(sigma, n*beta0/b.meanPrec[k], mat.NewVecDense(b.dim, diff))
		sigma.ScaleSym(1/b.dof[k], sigma)

		if ok := b.chol[k].Factorize(sigma); !ok {
			return fmt.Errorf("%w: component %d", ErrIllDefinedCovariance, k)
		}
		b.normals[k] = distmv.NewNormalChol(b.means.RawRowView(k), &b.chol[k], nil)
	}
	return nil
}

// expectedLogWeights returns E[log w_k] under the variational posterior of
// the weights.
func (b *BayesianGaussianMixture) expectedLogWeights() []float64 {
	out := make([]float64, len(b.concA))
	switch b.prior.kind {
	case DirichletProcess:
		var acc float64
		for k := range out {
			dsum := mathext.Digamma(b.concA[k] + b.concB[k])
			out[k] = mathext.Digamma(b.concA[k]) - dsum + acc
			acc += mathext.Digamma(b.concB[k]) - dsum
		}
	default:
		dsum := mathext.Digamma(floats.Sum(b.concA))
		for k, a := range b.concA {
			out[k] = mathext.Digamma(a) - dsum
		}
	}
	return out
}

// updateLogConst caches, for each component, every term of the weighted log
// probability that does not depend on the sample.
func (b *BayesianGaussianMixture) updateLogConst() {
	d := float64(b.dim)
	logW := b.expectedLogWeights()
	for k := range b.logConst {
		var logLambda float64
		for j := 0; j < b.dim; j++ {
			logLambda += mathext.Digamma(0.5 * (b.dof[k] - float64(j)))
		}
		logLambda += d * math.Ln2
		b.logConst[k] = -0.5*d*math.Log(b.dof[k]) +
			0.5*(logLambda-d/b.meanPrec[k]) +
			logW[k]
	}
}

// weightedLogProb stores log w_k + log p(x | k) for every component in dst.
func (b *BayesianGaussianMixture) weightedLogProb(dst, x []float64) {
	for k, n := range b.normals {
		dst[k] = b.logConst[k] + n.LogProb(x)
	}
}

// eStep stores the log responsibilities of every sample in resp.
func (b *BayesianGaussianMixture) eStep(x, resp *mat.Dense) {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		w := resp.RawRowView(i)
		b.weightedLogProb(w, x.RawRowView(i))
		lse := floats.LogSumExp(w)
		for j := range w {
			w[j] -= lse
		}
	}
}

// respEntropy returns the entropy of the responsibilities given their logs.
func respEntropy(logResp *mat.Dense) float64 {
	r, _ := logResp.Dims()
	var entropy float64
	for i := 0; i < r; i++ {
		for _, v := range logResp.RawRowView(i) {
			if math.IsInf(v, -1) {
				continue
			}
			entropy -= math.Exp(v) * v
		}
	}
	return entropy
}

// elbo adds to entropy the terms of the lower bound that depend on the
// current posterior parameters. The result is the evidence lower bound up to
// a constant.
func (b *BayesianGaussianMixture) elbo(entropy float64) float64 {
	d := float64(b.dim)
	var logWishart float64
	for k := range b.dof {
		logDet := -0.5*b.chol[k].LogDet() - 0.5*d*math.Log(b.dof[k])
		logWishart += logWishartNorm(b.dof[k], logDet, b.dim)
	}

	var logNormWeight float64
	switch b.prior.kind {
	case DirichletProcess:
		for k := range b.concA {
			logNormWeight -= mathext.Lbeta(b.concA[k], b.concB[k])
		}
	default:
		logNormWeight = logDirichletNorm(b.concA)
	}

	var logMeanPrec float64
	for _, v := range b.meanPrec {
		logMeanPrec += math.Log(v)
	}
	return entropy - logWishart - logNormWeight - 0.5*d*logMeanPrec
}

// logWishartNorm returns the log normalization of a Wishart distribution
// given the log determinant of the Cholesky factor of its precision.
func logWishartNorm(dof, logDetPrecChol float64, dim int) float64 {
	var lg float64
	for j := 0; j < dim; j++ {
		v, _ := math.Lgamma(0.5 * (dof - float64(j)))
		lg += v
	}
	return -(dof*logDetPrecChol + dof*float64(dim)*0.5*math.Ln2 + lg)
}

// logDirichletNorm returns the log normalization of a Dirichlet distribution.
func logDirichletNorm(alpha []float64) float64 {
	s, _ := math.Lgamma(floats.Sum(alpha))
	for _, a := range alpha {
		v, _ := math.Lgamma(a)
		s -= v
	}
	return s
}

// Converged reports whether the last Fit call reached the tolerance.
func (b *BayesianGaussianMixture) Converged() bool { return b.converged }

// LowerBound returns the evidence lower bound, up to a constant, reached by
// the last Fit call.
func (b *BayesianGaussianMixture) LowerBound() float64 { return b.lowerBound }

// NumIter returns the number of iterations run since the last
// initialization.
func (b *BayesianGaussianMixture) NumIter() int { return b.nIter }

// Fitted reports whether Fit has completed at least once.
func (b *BayesianGaussianMixture) Fitted() bool { return b.fitted }

// Weights returns the expected mixture weights. They sum to one.
func (b *BayesianGaussianMixture) Weights() []float64 {
	if !b.fitted {
		return nil
	}
	w := make([]float64, len(b.concA))
	switch b.prior.kind {
	case DirichletProcess:
		stick := 1.0
		for k := range w {
			sum := b.concA[k] + b.concB[k]
			w[k] = b.concA[k] / sum * stick
			stick *= b.concB[k] / sum
		}
		floats.Scale(1/floats.Sum(w), w)
	default:
		floats.ScaleTo(w, 1/floats.Sum(b.concA), b.concA)
	}
	return w
}

// Means returns a copy of the component means, one per row.
func (b *BayesianGaussianMixture) Means() *mat.Dense {
	if !b.fitted {
		return nil
	}
	return mat.DenseCopyOf(b.means)
}

// Covariances returns copies of the component covariances.
func (b *BayesianGaussianMixture) Covariances() []*mat.SymDense {
	if !b.fitted {
		return nil
	}
	covs := make([]*mat.SymDense, len(b.covs))
	for k, c := range b.covs {
		covs[k] = mat.NewSymDense(b.dim, nil)
		covs[k].CopySym(c)
	}
	return covs
}

// ConcentrationParams returns the parameters of the variational posterior of
// the weights. For a Dirichlet distribution beta is nil and alpha holds the
// Dirichlet parameters. For a Dirichlet process alpha and beta hold the Beta
// parameters of each stick.
func (b *BayesianGaussianMixture) ConcentrationParams() (alpha, beta []float64) {
	if !b.fitted {
		return nil, nil
	}
	alpha = append([]float64(nil), b.concA...)
	if b.prior.kind == DirichletProcess {
		beta = append([]float64(nil), b.concB...)
	}
	return alpha, beta
}

// State returns a snapshot of the fitted mixture.
func (b *BayesianGaussianMixture) State() MixtureState {
	s := MixtureState{
		Converged:  b.converged,
		LowerBound: b.lowerBound,
		NumIter:    b.nIter,
	}
	if !b.fitted {
		return s
	}
	weights := b.Weights()
	covs := b.Covariances()
	s.Components = make([]Component, len(weights))
	for k, w := range weights {
		s.Components[k] = Component{
			Weight:     w,
			Mean:       mat.Row(nil, k, b.means),
			Covariance: covs[k],
		}
	}
	return s
}
