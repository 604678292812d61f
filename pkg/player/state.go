package player

import (
	"fmt"
	"io"

	"github.com/tauraamui/rgbdplay/pkg/render"
)

const (
	pausedMessage  = "Playback paused, press [SPACE] to continue."
	resumedMessage = "Playback resumed, press [SPACE] to pause."
)

// State is the playback flag set. It is only ever replaced, handlers
// receive a copy and return the next value.
type State struct {
	Exit    bool
	Playing bool
	Shot    bool
}

func InitialState() State {
	return State{Playing: true}
}

type Handler func(State) State

// Keymap binds keys to the handler run when they are pressed.
type Keymap map[render.Key]Handler

// DefaultKeymap binds Escape to exit, Space to pause and resume and A to
// snapshot. Mode changes are announced on out.
func DefaultKeymap(out io.Writer) Keymap {
	return Keymap{
		render.KeyEscape: Exit,
		render.KeySpace:  TogglePlaying(out),
		render.KeyA:      RequestShot,
	}
}

// HandleKey returns the state after key, unbound keys leave it as is.
func HandleKey(s State, key render.Key, keymap Keymap) State {
	h, ok := keymap[key]
	if !ok {
		return s
	}
	return h(s)
}

func Exit(s State) State {
	s.Exit = true
	return s
}

func TogglePlaying(out io.Writer) Handler {
	return func(s State) State {
		if s.Playing {
			fmt.Fprintln(out, pausedMessage)
		} else {
			fmt.Fprintln(out, resumedMessage)
		}
		s.Playing = !s.Playing
		return s
	}
}

func RequestShot(s State) State {
	s.Shot = true
	return s
}
