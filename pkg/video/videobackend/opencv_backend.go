package videobackend

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Pipeline templates take the recording path and the demuxer pad index
// of the track, in that order.
const (
	DefaultColorPipeline = `filesrc location="%s" ! matroskademux name=demux demux.video_%d ! queue ! decodebin ! videoconvert ! video/x-raw,format=BGR ! appsink sync=false`
	DefaultDepthPipeline = `filesrc location="%s" ! matroskademux name=demux demux.video_%d ! queue ! videoconvert ! video/x-raw,format=GRAY16_LE ! appsink sync=false`
)

type openCVFrame struct {
	isClosed  bool
	color     gocv.Mat
	depth     *gocv.Mat
	timestamp int64
}

func (frame *openCVFrame) Timestamp() int64 { return frame.timestamp }

func (frame *openCVFrame) DataRef() interface{} {
	return &frame.color
}

func (frame *openCVFrame) Color() (image.Image, error) {
	img, err := frame.color.ToImage()
	if err != nil {
		return nil, xerror.Errorf("unable to convert OpenCV mat into Go image: %w", err)
	}
	return img, nil
}

func (frame *openCVFrame) Depth() (videoframe.DepthMap, error) {
	if frame.depth == nil {
		return videoframe.DepthMap{}, ErrNoDepth
	}
	if t := frame.depth.Type(); t != gocv.MatTypeCV16U {
		return videoframe.DepthMap{}, xerror.Errorf("depth mat has type %d, expected 16 bit single channel", t)
	}

	dm := videoframe.NewDepthMap(frame.depth.Cols(), frame.depth.Rows())
	// mat bytes are in host order
	data := frame.depth.ToBytes()
	if len(data) != len(dm.Data)*2 {
		return videoframe.DepthMap{}, xerror.Errorf("depth mat holds %d bytes, expected %d", len(data), len(dm.Data)*2)
	}
	for i := range dm.Data {
		dm.Data[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return dm, nil
}

func (frame *openCVFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: frame.color.Cols(), H: frame.color.Rows()}
}

func (frame *openCVFrame) Close() {
	if !frame.isClosed {
		frame.color.Close()
		if frame.depth != nil {
			frame.depth.Close()
		}
		frame.isClosed = true
	}
}

type openCVBackend struct {
	settings Settings
}

func (b *openCVBackend) Name() string { return "opencv" }

func (b *openCVBackend) Open(cancel context.Context, path string) (Capture, error) {
	if _, err := fs.Stat(path); err != nil {
		return nil, xerror.Errorf("unable to open recording %s: %w", path, err)
	}
	c := openCVCapture{}
	if err := c.open(cancel, path, b.settings); err != nil {
		return nil, err
	}
	return &c, nil
}

type openCVCapture struct {
	uuid   string
	mu     sync.Mutex
	isOpen bool
	isEOF  bool
	md     recording.Metadata
	mdErr  error
	color  *gocv.VideoCapture
	depth  *gocv.VideoCapture
	// pending holds a colour frame whose depth has not been read yet.
	pending *openCVFrame
}

type openStreamsResult struct {
	color, depth *gocv.VideoCapture
	err          error
}

func (r openStreamsResult) close() {
	if r.color != nil {
		r.color.Close()
	}
	if r.depth != nil {
		r.depth.Close()
	}
}

func (c *openCVCapture) open(cancel context.Context, path string, s Settings) error {
	c.md, c.mdErr = readMetadata(path)
	colorPad, depthPad := 0, -1
	if c.mdErr != nil {
		log.Warn("Unable to read recording metadata, assuming a single colour track: %v", c.mdErr)
	} else {
		colorPad = c.md.ColorTrack.PadIndex
		if c.md.HasDepth() {
			depthPad = c.md.DepthTrack.PadIndex
		}
	}

	colorPipeline := fmt.Sprintf(s.ColorPipeline, path, colorPad)
	depthPipeline := ""
	if depthPad >= 0 {
		depthPipeline = fmt.Sprintf(s.DepthPipeline, path, depthPad)
	}

	result := make(chan openStreamsResult, 1)
	go openVideoStreams(colorPipeline, depthPipeline, result)
	select {
	case r := <-result:
		if r.err != nil {
			return r.err
		}
		c.color, c.depth = r.color, r.depth
		c.isOpen = true
		return nil
	case <-cancel.Done():
		go func() { (<-result).close() }()
		return ErrOpenCancelled
	}
}

func openVideoStreams(colorPipeline, depthPipeline string, d chan openStreamsResult) {
	r := openStreamsResult{}
	r.color, r.err = openVideoCapture(colorPipeline)
	if r.err != nil {
		r.err = xerror.Errorf("unable to open colour stream: %w", r.err)
		d <- r
		return
	}

	if len(depthPipeline) > 0 {
		vc, err := openVideoCapture(depthPipeline)
		if err != nil {
			log.Warn("Unable to open depth stream, continuing with colour only: %v", err)
		} else {
			vc.Set(gocv.VideoCaptureConvertRGB, 0)
			r.depth = vc
		}
	}
	d <- r
}

var readMetadata = func(path string) (recording.Metadata, error) {
	return recording.ReadMetadata(path)
}

var openVideoCapture = func(pipeline string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(pipeline)
}

var readFromVideoCapture = func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
	if vc.IsOpened() {
		return vc.Read(mat) && !mat.Empty()
	}
	return false
}

var captureTimestampUsec = func(vc *gocv.VideoCapture) int64 {
	return int64(vc.Get(gocv.VideoCapturePosMsec) * 1000)
}

// videoCaptureAtEnd treats an unknown frame count as the end, since a
// failed read then cannot be told apart from a short stall.
var videoCaptureAtEnd = func(vc *gocv.VideoCapture) bool {
	count := vc.Get(gocv.VideoCaptureFrameCount)
	return count <= 0 || vc.Get(gocv.VideoCapturePosFrames) >= count
}

func (c *openCVCapture) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVCapture) NextFrame() (videoframe.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil, ErrCaptureClosed
	}
	if c.isEOF {
		return nil, nil
	}

	frame := c.pending
	c.pending = nil
	if frame == nil {
		frame = &openCVFrame{color: gocv.NewMat()}
		if !readFromVideoCapture(c.color, &frame.color) {
			frame.Close()
			c.isEOF = videoCaptureAtEnd(c.color)
			return nil, nil
		}
		frame.timestamp = captureTimestampUsec(c.color)
	}

	if c.depth != nil {
		depth := gocv.NewMat()
		if !readFromVideoCapture(c.depth, &depth) {
			depth.Close()
			if videoCaptureAtEnd(c.depth) {
				log.Warn("Depth stream ended at colour frame %dus, continuing with colour only", frame.timestamp)
				if err := c.depth.Close(); err != nil {
					log.Error("Unable to close depth stream: %v", err)
				}
				c.depth = nil
				return frame, nil
			}
			// keep the streams paired, the colour frame waits for its depth
			log.Debug("Depth stream returned no frame for colour frame at %dus", frame.timestamp)
			c.pending = frame
			return nil, nil
		}
		frame.depth = alignDepth(&depth, frame.color.Cols(), frame.color.Rows())
	}
	return frame, nil
}

// alignDepth brings the depth mat to colour resolution, taking
// ownership of depth.
func alignDepth(depth *gocv.Mat, w, h int) *gocv.Mat {
	if depth.Cols() == w && depth.Rows() == h {
		return depth
	}
	resized := gocv.NewMat()
	gocv.Resize(*depth, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)
	depth.Close()
	return &resized
}

func (c *openCVCapture) Metadata() (recording.Metadata, error) {
	return c.md, c.mdErr
}

func (c *openCVCapture) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.color.IsOpened()
	}
	return false
}

func (c *openCVCapture) IsEOF() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isEOF
}

func (c *openCVCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	if c.pending != nil {
		c.pending.Close()
		c.pending = nil
	}
	err := c.color.Close()
	if c.depth != nil {
		err = multierr.Append(err, c.depth.Close())
	}
	return err
}
