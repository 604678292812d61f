// Package render displays decoded RGB-D frames and reports the keys
// pressed by the viewer.
package render

import (
	"io"
	"os"
	"sync"

	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyA
)

func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "ESC"
	case KeySpace:
		return "SPACE"
	case KeyA:
		return "A"
	}
	return "UNKNOWN"
}

// KeyFromCode maps a key code as reported by a window or a raw
// terminal byte.
func KeyFromCode(code int) Key {
	switch code {
	case 27:
		return KeyEscape
	case 32:
		return KeySpace
	case 'a', 'A':
		return KeyA
	}
	return KeyUnknown
}

// Renderer is the display side of playback. AddGeometry is called with
// the first frame, UpdateGeometry with each later one. PollEvents
// returns the keys pressed since the previous poll, UpdateRenderer
// pushes the current geometry to the display.
type Renderer interface {
	AddGeometry(videoframe.Frame) error
	UpdateGeometry(videoframe.Frame) error
	PollEvents() []Key
	UpdateRenderer() error
	Close() error
}

type Settings struct {
	Title     string
	Width     int
	Height    int
	WaitKeyMS int
	In        io.Reader
	Out       io.Writer
}

// Factory builds a renderer from settings.
type Factory func(Settings) (Renderer, error)

var (
	mu        sync.Mutex
	factories = map[string]Factory{
		"terminal": func(s Settings) (Renderer, error) { return newTerminal(s) },
		"none":     func(Settings) (Renderer, error) { return None(), nil },
	}
)

// Register makes a renderer available to Resolve under name. Renderers
// with native dependencies register themselves from their own package.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

func Resolve(name string, s Settings) (Renderer, error) {
	if s.In == nil {
		s.In = os.Stdin
	}
	if s.Out == nil {
		s.Out = os.Stdout
	}
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, xerror.Errorf("unknown renderer %q", name)
	}
	return f(s)
}

type noneRenderer struct{}

// None renders nothing and never reports a key.
func None() Renderer {
	return noneRenderer{}
}

func (noneRenderer) AddGeometry(videoframe.Frame) error    { return nil }
func (noneRenderer) UpdateGeometry(videoframe.Frame) error { return nil }
func (noneRenderer) PollEvents() []Key                     { return nil }
func (noneRenderer) UpdateRenderer() error                 { return nil }
func (noneRenderer) Close() error                          { return nil }
