package vbmix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WeightPrior selects the prior placed on the mixture weights.
type WeightPrior int

const (
	// DirichletDistribution is a finite symmetric Dirichlet prior over the
	// weights of a fixed number of components.
	DirichletDistribution WeightPrior = iota
	// DirichletProcess is the truncated stick-breaking representation of a
	// Dirichlet process.
	DirichletProcess
)

func (w WeightPrior) String() string {
	switch w {
	case DirichletDistribution:
		return "dirichlet_distribution"
	case DirichletProcess:
		return "dirichlet_process"
	}
	return fmt.Sprintf("WeightPrior(%d)", int(w))
}

// prior is the resolved set of hyperparameters used by a fit call.
type prior struct {
	kind       WeightPrior
	weight     float64       // weight concentration
	meanPrec   float64       // precision of the mean prior
	mean       []float64     // location of the mean prior
	dof        float64       // Wishart degrees of freedom
	covariance *mat.SymDense // inverse Wishart scale
}

// resolvePrior fills in the data-dependent defaults of the hyperparameters
// and checks the ones that were set explicitly.
func (b *BayesianGaussianMixture) resolvePrior(x *mat.Dense, nComp int) (prior, error) {
	r, dim := x.Dims()
	p := prior{kind: b.WeightPrior}
	switch b.WeightPrior {
	case DirichletDistribution, DirichletProcess:
	default:
		return p, fmt.Errorf("%w: unknown weight prior %v", ErrBadPrior, b.WeightPrior)
	}

	switch {
	case b.WeightConcentration < 0:
		return p, fmt.Errorf("%w: weight concentration %v must be positive", ErrBadPrior, b.WeightConcentration)
	case b.WeightConcentration == 0:
		p.weight = 1 / float64(nComp)
	default:
		p.weight = b.WeightConcentration
	}

	switch {
	case b.MeanPrecision < 0:
		return p, fmt.Errorf("%w: mean precision %v must be positive", ErrBadPrior, b.MeanPrecision)
	case b.MeanPrecision == 0:
		p.meanPrec = 1
	default:
		p.meanPrec = b.MeanPrecision
	}

	p.mean = make([]float64, dim)
	if b.MeanPrior != nil {
		if len(b.MeanPrior) != dim {
			return p, fmt.Errorf("%w: mean prior has %d values for %d features", ErrDimensionMismatch, len(b.MeanPrior), dim)
		}
		copy(p.mean, b.MeanPrior)
	} else {
		col := make([]float64, r)
		for j := range p.mean {
			mat.Col(col, j, x)
			p.mean[j] = stat.Mean(col, nil)
		}
	}

	switch {
	case b.DegreesOfFreedom == 0:
		p.dof = float64(dim)
	case b.DegreesOfFreedom <= float64(dim-1):
		return p, fmt.Errorf("%w: degrees of freedom %v must exceed %d", ErrBadPrior, b.DegreesOfFreedom, dim-1)
	default:
		p.dof = b.DegreesOfFreedom
	}

	p.covariance = mat.NewSymDense(dim, nil)
	if b.CovariancePrior != nil {
		if n := b.CovariancePrior.SymmetricDim(); n != dim {
			return p, fmt.Errorf("%w: covariance prior is %d×%d for %d features", ErrDimensionMismatch, n, n, dim)
		}
		var chol mat.Cholesky
		if ok := chol.Factorize(b.CovariancePrior); !ok {
			return p, fmt.Errorf("%w: covariance prior is not positive definite", ErrBadPrior)
		}
		p.covariance.CopySym(b.CovariancePrior)
	} else {
		stat.CovarianceMatrix(p.covariance, x, nil)
	}
	return p, nil
}
