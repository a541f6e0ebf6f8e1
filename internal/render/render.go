// Package render draws frames of the mixture demo: the labelled data, the
// fitted mixture density, one outline per component, and the component
// weights.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/btracey/vbmix"
	"github.com/btracey/vbmix/internal/config"
	"github.com/btracey/vbmix/internal/mesh"
	"github.com/btracey/vbmix/internal/synth"
)

var ErrNoData = errors.New("render: no data to draw")

// Model is a fitted mixture.
type Model interface {
	// Score returns the log density of the mixture at x.
	Score(x []float64) float64
	State() vbmix.MixtureState
}

const (
	densityAlpha  = 0.5
	outlineAlpha  = 0.4
	scatterAlpha  = 0.8
	densityLevels = 16
	outlineLevels = 5
	barDataWidth  = 0.3
)

var barColor = color.NRGBA{R: 0x56, G: 0xB4, B: 0xE9, A: 0xff}

// Renderer draws frames for one dataset. Samples outside the view are not
// drawn. The evaluation mesh is built on the first fitted frame and reused
// afterwards.
type Renderer struct {
	cfg    config.Config
	points plotter.XYs
	labels []int
	colors []color.Color
	mesh   *mesh.Mesh
}

// New returns a renderer for data. The palette holds one color per
// generating component and one per mixture slot, whichever is more.
func New(cfg config.Config, data *synth.Dataset) (*Renderer, error) {
	if data == nil || data.Len() == 0 {
		return nil, ErrNoData
	}
	n := cfg.MixtureSlots
	if l := data.NumLabels(); l > n {
		n = l
	}
	cols, err := Colors(cfg.Palette, n)
	if err != nil {
		return nil, err
	}
	r := &Renderer{cfg: cfg, colors: cols}
	v := cfg.View
	for i := 0; i < data.Len(); i++ {
		s := data.At(i)
		x, y := s.Point[0], s.Point[1]
		if x < v.XMin || x > v.XMax || y < v.YMin || y > v.YMax {
			continue
		}
		r.points = append(r.points, plotter.XY{X: x, Y: y})
		r.labels = append(r.labels, s.Label)
	}
	return r, nil
}

// Mesh returns the evaluation mesh, building it if needed.
func (r *Renderer) Mesh() (*mesh.Mesh, error) {
	if r.mesh != nil {
		return r.mesh, nil
	}
	v := r.cfg.View
	m, err := mesh.New(v.XMin, v.XMax, v.YMin, v.YMax, r.cfg.MeshDivisions)
	if err != nil {
		return nil, err
	}
	r.mesh = m
	return m, nil
}

// Init draws the labelled data with an empty weight panel.
func (r *Renderer) Init(title string) (image.Image, error) {
	top, err := r.dataPlot(title)
	if err != nil {
		return nil, err
	}
	return r.compose(top, r.weightPlot(), nil)
}

// Fitted draws the labelled data under the density of m, the outline of
// every component, and a bar per weight above the negligible threshold.
func (r *Renderer) Fitted(title string, m Model) (image.Image, error) {
	grid, err := r.Mesh()
	if err != nil {
		return nil, err
	}
	top, err := r.dataPlot(title)
	if err != nil {
		return nil, err
	}

	density := grid.EvaluatePoint(m.Score)
	if lo, hi := density.Min(), density.Max(); lo <= hi {
		h := plotter.NewHeatMap(density, palette.Heat(densityLevels, densityAlpha))
		top.Add(h)
	}

	state := m.State()
	for k, c := range state.Components {
		pdf, err := vbmix.ComponentDensity(c.Mean, c.Covariance)
		if err != nil {
			return nil, fmt.Errorf("render: component %d: %w", k, err)
		}
		g := grid.EvaluatePoint(pdf)
		levels := g.Levels(outlineLevels)
		if levels == nil {
			continue
		}
		ct := plotter.NewContour(g, levels, solid{withAlpha(r.colors[k%len(r.colors)], outlineAlpha)})
		ct.LineStyles = []draw.LineStyle{{
			Width:  vg.Points(1),
			Dashes: []vg.Length{vg.Points(4), vg.Points(2)},
		}}
		top.Add(ct)
	}
	r.setView(top)

	bottom := r.weightPlot()
	bars, _, err := addWeights(bottom, state, r.cfg.NegligibleWeight)
	if err != nil {
		return nil, err
	}
	return r.compose(top, bottom, bars)
}

// dataPlot returns the scatter of the labelled samples over the fixed view.
func (r *Renderer) dataPlot(title string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Estimated Mixtures"

	s, err := plotter.NewScatter(r.points)
	if err != nil {
		return nil, err
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  withAlpha(r.colors[r.labels[i]%len(r.colors)], scatterAlpha),
			Radius: vg.Points(1.5),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(s)
	r.setView(p)
	return p, nil
}

func (r *Renderer) setView(p *plot.Plot) {
	v := r.cfg.View
	p.X.Min, p.X.Max = v.XMin, v.XMax
	p.Y.Min, p.Y.Max = v.YMin, v.YMax
	p.X.Tick.Marker = plot.ConstantTicks{}
	p.Y.Tick.Marker = plot.ConstantTicks{}
}

// weightPlot returns the empty weight panel with a horizontal grid.
func (r *Renderer) weightPlot() *plot.Plot {
	p := plot.New()
	p.Y.Label.Text = "Weight of each component"

	g := plotter.NewGrid()
	g.Vertical.Color = nil
	g.Horizontal.Color = withAlpha(color.Gray{Y: 0xc0}, 0.7)
	p.Add(g)

	p.X.Min, p.X.Max = -0.6, 3*float64(len(r.cfg.Components))-0.4
	p.Y.Min, p.Y.Max = 0, 1.1
	p.Y.Tick.Marker = unlabelledTicks{}
	p.Y.Tick.Length = 0
	return p
}

// barWidth converts barDataWidth to a length on the data area p occupies
// when drawn to c.
func barWidth(p *plot.Plot, c draw.Canvas) vg.Length {
	dc := p.DataCanvas(c)
	return dc.X(p.X.Norm(barDataWidth)) - dc.X(p.X.Norm(0))
}

// addWeights draws one bar per weight of state above threshold, with its
// percentage above it. The bars are sized by compose.
func addWeights(p *plot.Plot, state vbmix.MixtureState, threshold float64) (*plotter.BarChart, *plotter.Labels, error) {
	weights := state.ActiveWeights(threshold)
	if len(weights) == 0 {
		return nil, nil, nil
	}
	xmin, xmax := p.X.Min, p.X.Max

	bars, err := plotter.NewBarChart(plotter.Values(weights), vg.Points(1))
	if err != nil {
		return nil, nil, err
	}
	bars.Color = barColor
	bars.LineStyle.Color = color.Black

	labels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(weights)),
		Labels: make([]string, len(weights)),
	}
	for k, w := range weights {
		labels.XYs[k] = plotter.XY{X: float64(k), Y: w + 0.007}
		labels.Labels[k] = fmt.Sprintf("%.1f%%", w*100)
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = text.XCenter
	}

	p.Add(bars, l)
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = 0, 1.1
	return bars, l, nil
}

// compose stacks the mixture panel over two thirds of the figure and the
// weight panel under it. bars, if not nil, belong to bottom.
func (r *Renderer) compose(top, bottom *plot.Plot, bars *plotter.BarChart) (image.Image, error) {
	w := vg.Length(r.cfg.FigureWidth) * vg.Inch
	h := vg.Length(r.cfg.FigureHeight) * vg.Inch
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(int(r.cfg.DPI)))
	dc := draw.New(c)

	top.Draw(draw.Crop(dc, 0, 0, h/3, 0))
	panel := draw.Crop(dc, 0, 0, 0, -2*h/3)
	if bars != nil {
		bars.Width = barWidth(bottom, panel)
	}
	bottom.Draw(panel)
	return c.Image(), nil
}

// unlabelledTicks places the default ticks without labels so that grid
// lines stay.
type unlabelledTicks struct{}

func (unlabelledTicks) Ticks(lo, hi float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(lo, hi)
	for i := range ticks {
		ticks[i].Label = ""
	}
	return ticks
}
