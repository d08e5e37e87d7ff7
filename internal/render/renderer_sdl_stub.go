//go:build !sdl

package render

import (
	"errors"

	"github.com/guidoenr/beatmeter/internal/analyzer"
	"github.com/guidoenr/beatmeter/internal/params"
	"github.com/guidoenr/beatmeter/internal/tempo"
)

// ErrNoSDL is returned by OpenWindow in builds without the sdl tag.
var ErrNoSDL = errors.New("SDL backend not enabled; rebuild with -tags sdl")

type Window struct{}

func OpenWindow(meter *Renderer, width, height int) (*Window, error) {
	return nil, ErrNoSDL
}

func (w *Window) Present(p params.Parameters, est tempo.Estimate, res analyzer.Result, status string) error {
	return ErrNoSDL
}

func (w *Window) Close() error { return nil }

func SupportsSDL() bool { return false }
