// Package term is the interactive surface of the demo: frames drawn as
// true color half blocks, a blocking prompt, and a text chart of the fit
// objective.
package term

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

var ErrColumns = errors.New("term: columns must be positive")

const (
	clearScreen = "\x1b[H\x1b[2J"
	upperHalf   = '▀'

	captionSize   = 10 // pixels
	captionHeight = 14 // pixels
)

// Display writes frames to a terminal.
type Display struct {
	w       io.Writer
	columns int
	font    *truetype.Font
}

// NewDisplay returns a display writing frames columns characters wide.
func NewDisplay(w io.Writer, columns int) (*Display, error) {
	if columns < 1 {
		return nil, ErrColumns
	}
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("term: parse caption font: %w", err)
	}
	return &Display{w: w, columns: columns, font: f}, nil
}

// Show clears the screen and writes frame scaled to the display width with
// caption stamped under it.
func (d *Display) Show(frame image.Image, caption string) error {
	img := Scale(frame, d.columns)
	if caption != "" {
		var err error
		img, err = d.stamp(img, caption)
		if err != nil {
			return err
		}
	}
	var sb strings.Builder
	sb.WriteString(clearScreen)
	sb.WriteString(RenderANSI(img))
	if caption != "" {
		sb.WriteString(caption)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(d.w, sb.String())
	return err
}

// stamp returns img extended by a white band holding caption.
func (d *Display) stamp(img *image.RGBA, caption string) (*image.RGBA, error) {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+captionHeight))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, b.Sub(b.Min), img, b.Min, draw.Src)

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(d.font)
	ctx.SetFontSize(captionSize)
	ctx.SetClip(out.Bounds())
	ctx.SetDst(out)
	ctx.SetSrc(image.Black)
	if _, err := ctx.DrawString(caption, freetype.Pt(2, b.Dy()+captionSize)); err != nil {
		return nil, fmt.Errorf("term: draw caption: %w", err)
	}
	return out, nil
}

// Scale resizes img to the given width, keeping its aspect ratio. The
// height is rounded up to an even number of pixels so that every
// character cell holds two.
func Scale(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := 2
	if b.Dx() > 0 {
		height = (width*b.Dy() + b.Dx() - 1) / b.Dx()
	}
	if height%2 == 1 {
		height++
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// RenderANSI writes img as rows of upper half blocks, the top pixel in the
// foreground color and the bottom pixel in the background color. A missing
// bottom row is drawn white.
func RenderANSI(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			fg := rgb(img.At(x, y))
			bg := [3]uint8{0xff, 0xff, 0xff}
			if y+1 < b.Max.Y {
				bg = rgb(img.At(x, y+1))
			}
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%d;48;2;%d;%d;%dm", fg[0], fg[1], fg[2], bg[0], bg[1], bg[2])
			sb.WriteRune(upperHalf)
		}
		// Reset colors at the end of each line.
		sb.WriteString("\x1b[0m\n")
	}
	return sb.String()
}

func rgb(c color.Color) [3]uint8 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [3]uint8{n.R, n.G, n.B}
}
