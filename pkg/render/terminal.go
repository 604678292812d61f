package render

import (
	"fmt"
	"io"
	"os"

	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/term"
)

const ctrlC = 3

// terminalRenderer shows a status line instead of the frames and reads
// single key presses from a raw mode terminal.
type terminalRenderer struct {
	out     io.Writer
	keys    chan Key
	restore func() error
	frames  int
	current videoframe.Frame
}

func newTerminal(s Settings) (*terminalRenderer, error) {
	r := terminalRenderer{
		out:     s.Out,
		keys:    make(chan Key, 16),
		restore: func() error { return nil },
	}

	if f, ok := s.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, xerror.Errorf("unable to switch terminal to raw mode: %w", err)
		}
		r.restore = func() error { return term.Restore(fd, state) }
	} else {
		log.Debug("Renderer input is not a terminal, keys are read line buffered")
	}

	go readKeys(s.In, r.keys)
	return &r, nil
}

func readKeys(in io.Reader, keys chan<- Key) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			code := int(buf[0])
			if code == ctrlC {
				code = 27
			}
			if k := KeyFromCode(code); k != KeyUnknown {
				keys <- k
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *terminalRenderer) AddGeometry(frame videoframe.Frame) error {
	return r.UpdateGeometry(frame)
}

func (r *terminalRenderer) UpdateGeometry(frame videoframe.Frame) error {
	r.current = frame
	r.frames++
	return nil
}

// PollEvents drains pending keys without blocking.
func (r *terminalRenderer) PollEvents() []Key {
	var pressed []Key
	for {
		select {
		case k, ok := <-r.keys:
			if !ok {
				return pressed
			}
			pressed = append(pressed, k)
		default:
			return pressed
		}
	}
}

func (r *terminalRenderer) UpdateRenderer() error {
	if r.current == nil {
		return nil
	}
	d := r.current.Dimensions()
	_, err := fmt.Fprintf(r.out, "\rframe %05d  %dx%d  %dus", r.frames-1, d.W, d.H, r.current.Timestamp())
	return err
}

func (r *terminalRenderer) Close() error {
	r.current = nil
	if _, err := fmt.Fprint(r.out, "\r\n"); err != nil {
		return err
	}
	return r.restore()
}
