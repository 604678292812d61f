package videobackend

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultMockFrames = 300

	mockWidth         = 640
	mockHeight        = 360
	mockFrameInterval = 33333
)

// mockCalibration describes a colour sensor and a depth sensor whose
// intrinsics come out at fx = fy = 320, cx = 320, cy = 180 for 640x360.
const mockCalibration = `{
	"CalibrationInformation": {
		"Cameras": [
			{
				"Intrinsics": {"ModelParameters": [0.5, 0.5, 0.5, 0.5], "ModelType": "CALIBRATION_LensDistortionModelBrownConrady"},
				"Location": "CALIBRATION_CameraLocationD0",
				"SensorWidth": 1024,
				"SensorHeight": 1024
			},
			{
				"Intrinsics": {"ModelParameters": [0.5, 0.5, 0.5, 0.6666666666666666], "ModelType": "CALIBRATION_LensDistortionModelBrownConrady"},
				"Location": "CALIBRATION_CameraLocationPV0",
				"SensorWidth": 4096,
				"SensorHeight": 3072
			}
		]
	}
}`

type mockVideoBackend struct {
	frames     int
	emptyEvery int
}

func (b *mockVideoBackend) Name() string { return "mock" }

func (b *mockVideoBackend) Open(cancel context.Context, path string) (Capture, error) {
	if err := cancel.Err(); err != nil {
		return nil, ErrOpenCancelled
	}
	return &mockCapture{
		isOpen:     true,
		title:      filepath.Base(path),
		frames:     b.frames,
		emptyEvery: b.emptyEvery,
	}, nil
}

func mockMetadata(frames int) recording.Metadata {
	track := func(number int64, name string) recording.Track {
		return recording.Track{
			Number: number, Name: name, CodecID: "V_MOCK",
			Width: mockWidth, Height: mockHeight, PadIndex: int(number - 1),
		}
	}
	return recording.Metadata{
		ColorMode:    "MOCK_360P",
		DepthMode:    "MOCK_360P",
		SerialNumber: "000000000000",
		DurationUsec: int64(frames) * mockFrameInterval,
		ColorTrack:   track(1, recording.ColorTrackName),
		DepthTrack:   track(2, recording.DepthTrackName),
		Calibration:  []byte(mockCalibration),
	}
}

type imageFrame struct {
	color     *image.RGBA
	depth     videoframe.DepthMap
	timestamp int64
}

func (f *imageFrame) Timestamp() int64            { return f.timestamp }
func (f *imageFrame) DataRef() interface{}        { return f.color }
func (f *imageFrame) Color() (image.Image, error) { return f.color, nil }

func (f *imageFrame) Dimensions() videoframe.Dimensions {
	b := f.color.Bounds()
	return videoframe.Dimensions{W: b.Dx(), H: b.Dy()}
}

func (f *imageFrame) Depth() (videoframe.DepthMap, error) {
	return f.depth, nil
}

func (f *imageFrame) Close() {}

type mockCapture struct {
	uuid       string
	mu         sync.Mutex
	isOpen     bool
	title      string
	frames     int
	emptyEvery int
	polls      int
	index      int
	base       image.Image
}

func (mc *mockCapture) UUID() string {
	if len(mc.uuid) == 0 {
		mc.uuid = uuid.NewString()
	}
	return mc.uuid
}

func (mc *mockCapture) NextFrame() (videoframe.Frame, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if !mc.isOpen {
		return nil, ErrCaptureClosed
	}
	if mc.index >= mc.frames {
		return nil, nil
	}

	mc.polls++
	if mc.emptyEvery > 0 && mc.polls%mc.emptyEvery == 0 {
		return nil, nil
	}

	if mc.base == nil {
		mc.base = renderBaseFrameCanvas()
	}
	img, err := drawTextLayerOntoBaseFrameClone(mc.base, mc.title, mc.index)
	if err != nil {
		return nil, err
	}

	frame := imageFrame{
		color:     img,
		depth:     renderDepthDome(mc.index, mc.frames),
		timestamp: int64(mc.index) * mockFrameInterval,
	}
	mc.index++
	return &frame, nil
}

func (mc *mockCapture) Metadata() (recording.Metadata, error) {
	return mockMetadata(mc.frames), nil
}

func (mc *mockCapture) IsOpen() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.isOpen
}

func (mc *mockCapture) IsEOF() bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.index >= mc.frames
}

func (mc *mockCapture) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.isOpen = false
	mc.base = nil
	return nil
}

func drawTextLayerOntoBaseFrameClone(base image.Image, title string, index int) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	err := drawText(baseClone, 5, 50, "RGBDPLAY_MOCK")
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock recording: %w", err)
	}

	err = drawText(baseClone, 5, 180, title)
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock recording: %w", err) //nolint
	}
	err = drawText(baseClone, 5, 310, fmt.Sprintf("frame %05d", index))
	if err != nil {
		return nil, xerror.Errorf("unable to draw text onto in-mem image for mock recording: %w", err) //nolint
	}
	return baseClone, nil
}

func renderBaseFrameCanvas() image.Image {
	var w, h int = mockWidth, mockHeight
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := 200.0
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), 300}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), 300}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), 300}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// renderDepthDome draws a hemisphere in front of a flat wall, in
// millimetres, sliding sideways over the course of the recording.
// The leftmost columns carry no depth, like the invalid border of a
// real depth sensor.
func renderDepthDome(index, frames int) videoframe.DepthMap {
	const (
		wall        = 2500
		domeBase    = 2000
		domeHeight  = 800
		radius      = 120.0
		invalidCols = 8
	)
	dm := videoframe.NewDepthMap(mockWidth, mockHeight)
	phase := 2 * math.Pi * float64(index) / float64(frames)
	cx := float64(mockWidth)/2 + float64(mockWidth)/4*math.Sin(phase)
	cy := float64(mockHeight) / 2
	for y := 0; y < mockHeight; y++ {
		for x := invalidCols; x < mockWidth; x++ {
			dx, dy := (float64(x)-cx)/radius, (float64(y)-cy)/radius
			d := dx*dx + dy*dy
			if d >= 1 {
				dm.Set(x, y, wall)
				continue
			}
			dm.Set(x, y, uint16(domeBase-domeHeight*math.Sqrt(1-d)))
		}
	}
	return dm
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

var (
	fontOnce sync.Once
	fontFace *truetype.Font
	fontErr  error
	fontSize = 48.0
)

func drawText(canvas *image.RGBA, x, y int, text string) error {
	fontOnce.Do(func() {
		fontFace, fontErr = freetype.ParseFont(goregular.TTF)
	})
	if fontErr != nil {
		return fontErr
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    fontSize,
			Hinting: font.HintingFull,
		}),
	}
	textBounds, _ := fontDrawer.BoundString(text)
	textHeight := textBounds.Max.Y - textBounds.Min.Y
	yPosition := fixed.I((y)-textHeight.Ceil())/2 + fixed.I(textHeight.Ceil())
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: yPosition,
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
