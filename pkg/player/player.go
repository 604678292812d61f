// Package player drives playback of an RGB-D recording: it pulls frames
// from a capture, hands them to a renderer, dispatches the viewer's keys
// and writes snapshots on request.
package player

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/render"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"go.uber.org/multierr"
)

const bannerMessage = "MKV reader initialized. Press [SPACE] to pause/start, [ESC] to exit."

// Capture is what playback needs from an open recording. A nil frame
// with a nil error means no frame is ready yet.
type Capture interface {
	IsEOF() bool
	NextFrame() (videoframe.Frame, error)
	Close() error
}

// Snapshotter persists the frame at index and returns the written file name.
type Snapshotter interface {
	Snapshot(int, videoframe.Frame) (string, error)
}

type Options struct {
	Out io.Writer
	// Snapshotter is nil in playback-only mode.
	Snapshotter Snapshotter
	// MaxEmptyPolls ends playback after that many consecutive polls
	// without a frame, zero keeps polling.
	MaxEmptyPolls int
	Keymap        Keymap
}

type Player struct {
	capture  Capture
	renderer render.Renderer
	opts     Options

	state         State
	index         int
	frame         videoframe.Frame
	geometryAdded bool
	emptyPolls    int
	closed        bool
}

func New(capture Capture, renderer render.Renderer, opts Options) *Player {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Keymap == nil {
		opts.Keymap = DefaultKeymap(opts.Out)
	}
	return &Player{
		capture:  capture,
		renderer: renderer,
		opts:     opts,
		state:    InitialState(),
	}
}

// State returns the current flags.
func (p *Player) State() State { return p.state }

// FrameIndex is the number of frames retrieved so far. A snapshot is
// named after the index of the frame it captures.
func (p *Player) FrameIndex() int { return p.index }

// Run blocks until the recording ends, an exit is requested or ctx is
// cancelled. The capture and renderer are closed before it returns.
func (p *Player) Run(ctx context.Context) (err error) {
	defer func() {
		err = multierr.Append(err, p.close())
	}()

	fmt.Fprintln(p.opts.Out, bannerMessage)
	for !p.state.Exit && !p.capture.IsEOF() {
		select {
		case <-ctx.Done():
			log.Info("Playback cancelled: %v", ctx.Err())
			return nil
		default:
		}

		if p.state.Playing && p.retrieve() {
			log.Warn("No frame after %d consecutive polls, treating the recording as ended", p.emptyPolls)
			return nil
		}

		p.present()
		p.serviceEvents()
	}
	return nil
}

// retrieve pulls the next frame, reporting whether the consecutive
// empty poll limit has been reached.
func (p *Player) retrieve() bool {
	frame, err := p.capture.NextFrame()
	if err != nil {
		log.Error("Unable to read frame: %v", err)
	}
	if frame == nil {
		p.emptyPolls++
		return p.opts.MaxEmptyPolls > 0 && p.emptyPolls >= p.opts.MaxEmptyPolls
	}

	p.emptyPolls = 0
	if p.frame != nil {
		p.frame.Close()
	}
	p.frame = frame

	if p.state.Shot {
		p.shoot()
	}
	p.index++
	return false
}

func (p *Player) shoot() {
	p.state.Shot = false
	if p.opts.Snapshotter == nil {
		log.Warn("Snapshot requested without an output directory, nothing written")
		return
	}

	name, err := p.opts.Snapshotter.Snapshot(p.index, p.frame)
	if err != nil {
		log.Error("Unable to write snapshot of frame %d: %v", p.index, err)
		return
	}
	fmt.Fprintf(p.opts.Out, "Shot! %s\n", name)
}

// present hands the current frame to the renderer, paused playback
// keeps presenting the last one.
func (p *Player) present() {
	if p.frame == nil {
		return
	}
	if !p.geometryAdded {
		if err := p.renderer.AddGeometry(p.frame); err != nil {
			log.Error("Unable to add frame to renderer: %v", err)
			return
		}
		p.geometryAdded = true
		return
	}
	if err := p.renderer.UpdateGeometry(p.frame); err != nil {
		log.Error("Unable to update renderer frame: %v", err)
	}
}

func (p *Player) serviceEvents() {
	for _, key := range p.renderer.PollEvents() {
		p.state = HandleKey(p.state, key, p.opts.Keymap)
	}
	if err := p.renderer.UpdateRenderer(); err != nil {
		log.Error("Unable to redraw: %v", err)
	}
}

func (p *Player) close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.frame != nil {
		p.frame.Close()
		p.frame = nil
	}
	return multierr.Combine(p.capture.Close(), p.renderer.Close())
}
