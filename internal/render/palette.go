package render

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Colors returns exactly n colors. The first come from the hex codes in
// order; the remainder are every fourth CSS named color, wrapping around
// the name table if needed.
func Colors(hex []string, n int) ([]color.Color, error) {
	cols := make([]color.Color, 0, n)
	for _, h := range hex {
		if len(cols) == n {
			return cols, nil
		}
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("render: palette entry %q: %w", h, err)
		}
		cols = append(cols, c)
	}
	for i := 0; len(cols) < n; i++ {
		name := colornames.Names[(4*i)%len(colornames.Names)]
		cols = append(cols, colornames.Map[name])
	}
	return cols, nil
}

// withAlpha returns c with its opacity replaced by alpha in [0, 1].
func withAlpha(c color.Color, alpha float64) color.Color {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return color.NRGBA{}
	}
	r, g, b := cf.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}
}

// solid is a palette of a single color.
type solid struct{ c color.Color }

func (s solid) Colors() []color.Color { return []color.Color{s.c} }
