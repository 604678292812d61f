package videobackend

import (
	"context"

	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

var fs = afero.NewOsFs()

var (
	ErrCaptureClosed = xerror.New("capture is closed")
	ErrOpenCancelled = xerror.New("open cancelled")
	ErrNoDepth       = xerror.New("frame has no depth")
)

// Capture is an open recording. NextFrame returning a nil frame and a
// nil error means no frame is ready yet; IsEOF tells that apart from
// the end of the recording.
type Capture interface {
	UUID() string
	IsOpen() bool
	IsEOF() bool
	NextFrame() (videoframe.Frame, error)
	Metadata() (recording.Metadata, error)
	Close() error
}

type Backend interface {
	Open(context.Context, string) (Capture, error)
	Name() string
}

// Settings carry the backend specific options from configuration,
// zero values select the defaults.
type Settings struct {
	ColorPipeline  string
	DepthPipeline  string
	MockFrames     int
	MockEmptyEvery int
}

func Default() Backend {
	return OpenCV(Settings{})
}

func OpenCV(s Settings) Backend {
	if len(s.ColorPipeline) == 0 {
		s.ColorPipeline = DefaultColorPipeline
	}
	if len(s.DepthPipeline) == 0 {
		s.DepthPipeline = DefaultDepthPipeline
	}
	return &openCVBackend{settings: s}
}

func Mock(s Settings) Backend {
	if s.MockFrames <= 0 {
		s.MockFrames = DefaultMockFrames
	}
	return &mockVideoBackend{frames: s.MockFrames, emptyEvery: s.MockEmptyEvery}
}

func Resolve(t string, s Settings) Backend {
	switch t {
	case "mock":
		return Mock(s)
	default:
		return OpenCV(s)
	}
}
