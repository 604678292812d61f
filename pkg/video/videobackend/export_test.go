package videobackend

import (
	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"gocv.io/x/gocv"
)

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}

func OverloadReadMetadata(overload func(string) (recording.Metadata, error)) func() {
	readMetadataRef := readMetadata
	readMetadata = overload
	return func() { readMetadata = readMetadataRef }
}

func OverloadOpenVideoCapture(overload func(string) (*gocv.VideoCapture, error)) func() {
	openVideoCaptureRef := openVideoCapture
	openVideoCapture = overload
	return func() { openVideoCapture = openVideoCaptureRef }
}

func OverloadReadFromVideoCapture(overload func(*gocv.VideoCapture, *gocv.Mat) bool) func() {
	readFromVideoCaptureRef := readFromVideoCapture
	readFromVideoCapture = overload
	return func() { readFromVideoCapture = readFromVideoCaptureRef }
}

func OverloadVideoCaptureAtEnd(overload func(*gocv.VideoCapture) bool) func() {
	videoCaptureAtEndRef := videoCaptureAtEnd
	videoCaptureAtEnd = overload
	return func() { videoCaptureAtEnd = videoCaptureAtEndRef }
}

func OverloadCaptureTimestampUsec(overload func(*gocv.VideoCapture) int64) func() {
	captureTimestampUsecRef := captureTimestampUsec
	captureTimestampUsec = overload
	return func() { captureTimestampUsec = captureTimestampUsecRef }
}

// NewOpenCVCapture wraps already opened streams.
func NewOpenCVCapture(color, depth *gocv.VideoCapture) Capture {
	return &openCVCapture{isOpen: true, color: color, depth: depth}
}
