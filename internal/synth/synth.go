// Package synth generates labelled 2-D point clouds from a fixed set of
// Gaussian components.
package synth

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

var (
	ErrNoComponents  = errors.New("synth: no components")
	ErrDimension     = errors.New("synth: components must be two dimensional")
	ErrNegativeCount = errors.New("synth: negative sample count")
	ErrCovariance    = errors.New("synth: covariance is not positive definite")
)

// Component is a Gaussian source of samples.
type Component struct {
	Mean       []float64
	Covariance *mat.SymDense
	Count      int
}

// Sample is a point together with the index of the component that drew it.
type Sample struct {
	Point [2]float64
	Label int
}

// Dataset is an ordered, read-only collection of samples.
type Dataset struct {
	samples []Sample
	counts  []int
}

// Generate draws comps[j].Count samples from every component in order and
// concatenates them. The same seed and components always give the same
// dataset.
func Generate(seed uint64, comps []Component) (*Dataset, error) {
	if len(comps) == 0 {
		return nil, ErrNoComponents
	}
	total := 0
	for j, c := range comps {
		if len(c.Mean) != 2 || c.Covariance == nil || c.Covariance.SymmetricDim() != 2 {
			return nil, fmt.Errorf("%w: component %d", ErrDimension, j)
		}
		if c.Count < 0 {
			return nil, fmt.Errorf("%w: component %d has %d", ErrNegativeCount, j, c.Count)
		}
		total += c.Count
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: all sample counts are zero", ErrNoComponents)
	}

	src := rand.NewSource(seed)
	d := &Dataset{
		samples: make([]Sample, 0, total),
		counts:  make([]int, len(comps)),
	}
	x := make([]float64, 2)
	for j, c := range comps {
		dist, ok := distmv.NewNormal(c.Mean, c.Covariance, src)
		if !ok {
			return nil, fmt.Errorf("%w: component %d", ErrCovariance, j)
		}
		for i := 0; i < c.Count; i++ {
			dist.Rand(x)
			d.samples = append(d.samples, Sample{Point: [2]float64{x[0], x[1]}, Label: j})
		}
		d.counts[j] = c.Count
	}
	return d, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// At returns the i-th sample.
func (d *Dataset) At(i int) Sample { return d.samples[i] }

// Samples returns a copy of all samples in order.
func (d *Dataset) Samples() []Sample {
	return append([]Sample(nil), d.samples...)
}

// Counts returns the number of samples drawn from each component.
func (d *Dataset) Counts() []int {
	return append([]int(nil), d.counts...)
}

// NumLabels returns the number of generating components.
func (d *Dataset) NumLabels() int { return len(d.counts) }

// Matrix returns the points without labels, one sample per row.
func (d *Dataset) Matrix() *mat.Dense {
	m := mat.NewDense(len(d.samples), 2, nil)
	for i, s := range d.samples {
		m.SetRow(i, s.Point[:])
	}
	return m
}

// Labels returns the label of every sample in order.
func (d *Dataset) Labels() []int {
	l := make([]int, len(d.samples))
	for i, s := range d.samples {
		l[i] = s.Label
	}
	return l
}

// SymmetricCovariance builds a 2×2 covariance from a possibly asymmetric
// row-major table by averaging the off-diagonal pair.
func SymmetricCovariance(a, b, c, d float64) *mat.SymDense {
	off := (b + c) / 2
	return mat.NewSymDense(2, []float64{a, off, off, d})
}
