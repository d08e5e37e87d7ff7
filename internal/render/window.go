package render

import "errors"

// ErrWindowClosed is returned by Window.Present after the user closes the
// window.
var ErrWindowClosed = errors.New("render: window closed")
