// Package mesh samples scalar functions of two variables over a regular
// grid, producing grids ready for contouring.
package mesh

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrBounds = errors.New("mesh: expects min < max and divisions > 0")

// Mesh is a regular grid over a rectangle. The spacing is the same along
// both axes.
type Mesh struct {
	xs, ys []float64
	step   float64
}

// New returns the mesh over [xmin, xmax) × [ymin, ymax) whose step is the
// larger of the two ranges divided by divisions. Coordinates start at the
// minimum and stop before the maximum.
func New(xmin, xmax, ymin, ymax float64, divisions int) (*Mesh, error) {
	if !(xmin < xmax) || !(ymin < ymax) || divisions < 1 {
		return nil, ErrBounds
	}
	h := math.Max((xmax-xmin)/float64(divisions), (ymax-ymin)/float64(divisions))
	return &Mesh{
		xs:   arange(xmin, xmax, h),
		ys:   arange(ymin, ymax, h),
		step: h,
	}, nil
}

func arange(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop - start) / step))
	v := make([]float64, n)
	for i := range v {
		v[i] = start + float64(i)*step
	}
	return v
}

// X returns the grid coordinates along the first axis.
func (m *Mesh) X() []float64 { return m.xs }

// Y returns the grid coordinates along the second axis.
func (m *Mesh) Y() []float64 { return m.ys }

// Step returns the grid spacing.
func (m *Mesh) Step() float64 { return m.step }

// Evaluate calls f at every point of the mesh.
func (m *Mesh) Evaluate(f func(x, y float64) float64) *Grid {
	g := &Grid{
		xs: m.xs,
		ys: m.ys,
		z:  make([]float64, len(m.xs)*len(m.ys)),
	}
	for r, y := range m.ys {
		row := g.z[r*len(m.xs) : (r+1)*len(m.xs)]
		for c, x := range m.xs {
			row[c] = f(x, y)
		}
	}
	return g
}

// EvaluatePoint is like Evaluate for functions taking a point slice. The
// slice passed to f is reused between calls.
func (m *Mesh) EvaluatePoint(f func(p []float64) float64) *Grid {
	p := make([]float64, 2)
	return m.Evaluate(func(x, y float64) float64 {
		p[0], p[1] = x, y
		return f(p)
	})
}

// Grid holds function values over a mesh. It satisfies the GridXYZ
// interface of gonum.org/v1/plot/plotter.
type Grid struct {
	xs, ys []float64
	z      []float64 // row-major, one row per y
}

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (c, r int) { return len(g.xs), len(g.ys) }

// Z returns the value at column c and row r.
func (g *Grid) Z(c, r int) float64 { return g.z[r*len(g.xs)+c] }

// X returns the coordinate of column c.
func (g *Grid) X(c int) float64 { return g.xs[c] }

// Y returns the coordinate of row r.
func (g *Grid) Y(r int) float64 { return g.ys[r] }

// Min returns the smallest finite value of the grid.
func (g *Grid) Min() float64 {
	lo := math.Inf(1)
	for _, v := range g.z {
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v < lo {
			lo = v
		}
	}
	return lo
}

// Max returns the largest finite value of the grid.
func (g *Grid) Max() float64 {
	hi := math.Inf(-1)
	for _, v := range g.z {
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v > hi {
			hi = v
		}
	}
	return hi
}

// Sum returns the sum of all values.
func (g *Grid) Sum() float64 {
	return floats.Sum(g.z)
}

// Levels returns n evenly spaced values strictly between the smallest and
// largest value of the grid. It returns nil if the grid is flat.
func (g *Grid) Levels(n int) []float64 {
	lo, hi := g.Min(), g.Max()
	if n < 1 || !(lo < hi) {
		return nil
	}
	levels := make([]float64, n)
	step := (hi - lo) / float64(n+1)
	for i := range levels {
		levels[i] = lo + float64(i+1)*step
	}
	return levels
}
