// Package demo runs the interactive fit: draw the data, then fit, draw,
// and wait until the mixture converges.
package demo

import (
	"errors"
	"fmt"
	"image"
	"io"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/btracey/vbmix"
	"github.com/btracey/vbmix/internal/config"
	"github.com/btracey/vbmix/internal/render"
	"github.com/btracey/vbmix/internal/synth"
	"github.com/btracey/vbmix/internal/term"
)

var ErrNotConverged = errors.New("demo: fit did not converge")

// Display shows a frame with a caption.
type Display interface {
	Show(frame image.Image, caption string) error
}

// Prompt blocks until the user asks to continue.
type Prompt interface {
	Wait() error
}

// Result summarizes a finished run.
type Result struct {
	Samples     int
	Calls       int
	Converged   bool
	LowerBounds []float64
	State       vbmix.MixtureState
}

// Run generates the dataset of cfg and fits it with warm started calls
// until the estimator converges. Every frame shown is followed by a wait
// on prompt. The convergence flag and a chart of the lower bound are
// written to out before the last wait.
func Run(cfg config.Config, display Display, prompt Prompt, out io.Writer, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data, err := synth.Generate(cfg.Seed, cfg.Components)
	if err != nil {
		return nil, fmt.Errorf("demo: generate data: %w", err)
	}
	logger.Info("generated dataset",
		zap.Int("samples", data.Len()),
		zap.Ints("counts", data.Counts()),
	)

	r, err := render.New(cfg, data)
	if err != nil {
		return nil, err
	}
	title := cfg.FrameTitle()

	frame, err := r.Init(title)
	if err != nil {
		return nil, fmt.Errorf("demo: draw data: %w", err)
	}
	if err := display.Show(frame, fmt.Sprintf("%d samples from %d components", data.Len(), data.NumLabels())); err != nil {
		return nil, err
	}
	if err := prompt.Wait(); err != nil {
		return nil, err
	}

	bgm := cfg.Estimator()
	bgm.Src = rand.NewSource(cfg.Seed)
	bgm.Logger = logger.Named("vbmix")
	xs := data.Matrix()

	res := &Result{Samples: data.Len()}
	for {
		if cfg.MaxFitCalls > 0 && res.Calls == cfg.MaxFitCalls {
			return res, fmt.Errorf("%w after %d calls", ErrNotConverged, res.Calls)
		}
		if err := bgm.Fit(xs); err != nil {
			return res, fmt.Errorf("demo: fit call %d: %w", res.Calls+1, err)
		}
		res.Calls++
		res.LowerBounds = append(res.LowerBounds, bgm.LowerBound())
		res.State = bgm.State()
		res.Converged = bgm.Converged()

		active := len(res.State.ActiveWeights(cfg.NegligibleWeight))
		logger.Info("fit call",
			zap.Int("call", res.Calls),
			zap.Int("iterations", bgm.NumIter()),
			zap.Float64("lowerBound", bgm.LowerBound()),
			zap.Int("activeComponents", active),
			zap.Bool("converged", res.Converged),
		)

		frame, err := r.Fitted(title, bgm)
		if err != nil {
			return res, fmt.Errorf("demo: draw fit call %d: %w", res.Calls, err)
		}
		caption := fmt.Sprintf("fit call %d, %d iterations, lower bound %.4f, %d active components",
			res.Calls, bgm.NumIter(), bgm.LowerBound(), active)
		if err := display.Show(frame, caption); err != nil {
			return res, err
		}
		if res.Converged {
			break
		}
		if err := prompt.Wait(); err != nil {
			return res, err
		}
	}

	fmt.Fprintln(out, res.Converged)
	if chart := term.LowerBoundChart(res.LowerBounds); chart != "" {
		fmt.Fprintln(out, chart)
	}
	return res, prompt.Wait()
}
