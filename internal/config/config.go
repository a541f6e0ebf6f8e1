// Package config holds the constants of the Dirichlet prior mixture demo.
package config

import (
	"errors"
	"fmt"

	"github.com/btracey/vbmix"
	"github.com/btracey/vbmix/internal/synth"
)

var ErrInvalid = errors.New("config: invalid value")

// Bounds is the plotted rectangle.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Config is everything the demo needs to generate, fit, and draw.
type Config struct {
	Seed       uint64
	Components []synth.Component

	MixtureSlots        int
	WeightPrior         vbmix.WeightPrior
	WeightConcentration float64
	MeanPrecision       float64
	RegCovar            float64
	MaxIter             int
	Tol                 float64

	// MaxFitCalls bounds the number of warm started fit calls. Zero means
	// fitting continues until convergence.
	MaxFitCalls int

	// Weights at or below NegligibleWeight are left out of the bar chart.
	NegligibleWeight float64

	Title         string
	Palette       []string
	View          Bounds
	MeshDivisions int
	FigureWidth   float64 // inches
	FigureHeight  float64 // inches
	DPI           float64
}

// Default returns the configuration of the six component demo.
func Default() Config {
	means := [][]float64{
		{.8, -2},
		{-2.5, -.05},
		{-2, 2},
		{1.2, 2.5},
		{2, .7},
		{-1, -2},
	}
	covs := [][4]float64{
		{.1, .02, .02, .15},
		{.3, -.01, -.01, .3},
		{.7, .4, .3, .6},
		{.3, .03, .09, .3},
		{.6, -.07, -.05, .6},
		{.6, .13, .12, .86},
	}
	counts := []int{300, 500, 400, 400, 400, 300}

	comps := make([]synth.Component, len(means))
	for j := range comps {
		c := covs[j]
		comps[j] = synth.Component{
			Mean:       means[j],
			Covariance: synth.SymmetricCovariance(c[0], c[1], c[2], c[3]),
			Count:      counts[j],
		}
	}

	return Config{
		Seed:       2,
		Components: comps,

		MixtureSlots:        3 * len(comps),
		WeightPrior:         vbmix.DirichletDistribution,
		WeightConcentration: 1,
		MeanPrecision:       .8,
		RegCovar:            0,
		MaxIter:             5,
		Tol:                 1e-5,

		NegligibleWeight: 0,

		Title:         "Variational Inference in Finite mixture with Dirichlet Prior ",
		Palette:       []string{"#0072B2", "#F0E442", "#D55E00", "#EE82EE", "#A0522D", "#2E8B57"},
		View:          Bounds{XMin: -4, XMax: 4, YMin: -6, YMax: 6},
		MeshDivisions: 50,
		FigureWidth:   4.7 * 3,
		FigureHeight:  8,
		DPI:           72,
	}
}

// Validate reports the first field that cannot be used.
func (c Config) Validate() error {
	switch {
	case len(c.Components) == 0:
		return fmt.Errorf("%w: no components", ErrInvalid)
	case c.MixtureSlots < 1:
		return fmt.Errorf("%w: mixture slots %d", ErrInvalid, c.MixtureSlots)
	case c.MaxIter < 1:
		return fmt.Errorf("%w: max iter %d", ErrInvalid, c.MaxIter)
	case c.MaxFitCalls < 0:
		return fmt.Errorf("%w: max fit calls %d", ErrInvalid, c.MaxFitCalls)
	case !(c.Tol > 0):
		return fmt.Errorf("%w: tolerance %v", ErrInvalid, c.Tol)
	case c.RegCovar < 0:
		return fmt.Errorf("%w: covariance regularization %v", ErrInvalid, c.RegCovar)
	case len(c.Palette) == 0:
		return fmt.Errorf("%w: empty palette", ErrInvalid)
	case !(c.View.XMin < c.View.XMax) || !(c.View.YMin < c.View.YMax):
		return fmt.Errorf("%w: view %+v", ErrInvalid, c.View)
	case c.MeshDivisions < 1:
		return fmt.Errorf("%w: mesh divisions %d", ErrInvalid, c.MeshDivisions)
	case !(c.FigureWidth > 0) || !(c.FigureHeight > 0) || !(c.DPI > 0):
		return fmt.Errorf("%w: figure %vx%v in at %v dpi", ErrInvalid, c.FigureWidth, c.FigureHeight, c.DPI)
	}
	return nil
}

// TotalSamples returns the size of the generated dataset.
func (c Config) TotalSamples() int {
	n := 0
	for _, comp := range c.Components {
		n += comp.Count
	}
	return n
}

// Estimator returns an estimator configured for warm started fitting.
func (c Config) Estimator() *vbmix.BayesianGaussianMixture {
	return &vbmix.BayesianGaussianMixture{
		NumComponents:       c.MixtureSlots,
		WeightPrior:         c.WeightPrior,
		WeightConcentration: c.WeightConcentration,
		MeanPrecision:       c.MeanPrecision,
		RegCovar:            c.RegCovar,
		MaxIter:             c.MaxIter,
		Tol:                 c.Tol,
		WarmStart:           true,
	}
}

// FrameTitle is the title followed by the concentration in exponent form.
func (c Config) FrameTitle() string {
	return fmt.Sprintf("%s%.1e", c.Title, c.WeightConcentration)
}
