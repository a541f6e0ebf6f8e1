// Command dirichletgmm fits a variational Gaussian mixture with a Dirichlet
// weight prior to six generated clusters and draws every fit in the
// terminal, waiting for ENTER between frames.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/btracey/vbmix/internal/config"
	"github.com/btracey/vbmix/internal/demo"
	"github.com/btracey/vbmix/internal/term"
)

func main() {
	width := pflag.Int("width", 120, "terminal columns used to draw a frame")
	dpi := pflag.Float64("dpi", 72, "resolution of the rendered figure")
	verbose := pflag.Bool("verbose", false, "log every variational iteration")
	pflag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Default()
	cfg.DPI = *dpi

	display, err := term.NewDisplay(os.Stdout, *width)
	if err != nil {
		logger.Fatal("create display", zap.Error(err))
	}
	prompt := term.NewPrompt(os.Stdin, os.Stdout)

	res, err := demo.Run(cfg, display, prompt, os.Stdout, logger)
	if err != nil {
		logger.Fatal("run", zap.Error(err))
	}
	logger.Info("done",
		zap.Int("calls", res.Calls),
		zap.Int("iterations", res.State.NumIter),
		zap.Float64("lowerBound", res.State.LowerBound),
	)
}

// newLogger returns a development logger on stderr so that frames on
// stdout stay intact.
func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zc.Level.SetLevel(zapcore.DebugLevel)
	}
	return zc.Build()
}
