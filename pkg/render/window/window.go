// Package window shows frames in an OpenCV highgui window. Importing it
// registers the "window" renderer.
package window

import (
	"image"
	"time"

	"github.com/tauraamui/rgbdplay/pkg/render"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

func init() {
	render.Register("window", func(s render.Settings) (render.Renderer, error) {
		return New(s), nil
	})
}

var sleep = time.Sleep

type windowRenderer struct {
	settings render.Settings
	window   *gocv.Window
	canvas   gocv.Mat
	ready    bool
}

func New(s render.Settings) render.Renderer {
	if len(s.Title) == 0 {
		s.Title = "reader"
	}
	if s.WaitKeyMS <= 0 {
		s.WaitKeyMS = 1
	}
	return &windowRenderer{settings: s, canvas: gocv.NewMat()}
}

func (w *windowRenderer) AddGeometry(frame videoframe.Frame) error {
	if w.window == nil {
		w.window = gocv.NewWindow(w.settings.Title)
		if w.settings.Width > 0 && w.settings.Height > 0 {
			w.window.ResizeWindow(w.settings.Width, w.settings.Height)
		}
	}
	return w.UpdateGeometry(frame)
}

// UpdateGeometry lays the colour image and the colourised depth side
// by side on the canvas.
func (w *windowRenderer) UpdateGeometry(frame videoframe.Frame) error {
	colorMat, err := colorToMat(frame)
	if err != nil {
		return err
	}
	defer colorMat.Close()

	depth, err := frame.Depth()
	if err != nil {
		colorMat.CopyTo(&w.canvas)
		w.ready = true
		return nil
	}

	depthMat, err := colorizeDepth(depth, colorMat.Cols(), colorMat.Rows())
	if err != nil {
		return err
	}
	defer depthMat.Close()

	gocv.Hconcat(colorMat, depthMat, &w.canvas)
	w.ready = true
	return nil
}

func colorToMat(frame videoframe.Frame) (gocv.Mat, error) {
	if mat, ok := frame.DataRef().(*gocv.Mat); ok {
		return mat.Clone(), nil
	}
	img, err := frame.Color()
	if err != nil {
		return gocv.Mat{}, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, xerror.Errorf("unable to convert Go image into OpenCV mat: %w", err)
	}
	return mat, nil
}

func colorizeDepth(depth videoframe.DepthMap, w, h int) (gocv.Mat, error) {
	gray, err := gocv.NewMatFromBytes(depth.H, depth.W, gocv.MatTypeCV8U, depthToGray(depth))
	if err != nil {
		return gocv.Mat{}, xerror.Errorf("unable to load depth into OpenCV mat: %w", err)
	}
	defer gray.Close()

	colored := gocv.NewMat()
	gocv.ApplyColorMap(gray, &colored, gocv.ColormapJet)
	if colored.Cols() == w && colored.Rows() == h {
		return colored, nil
	}
	defer colored.Close()
	resized := gocv.NewMat()
	gocv.Resize(colored, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)
	return resized, nil
}

// depthToGray stretches the valid depth range over 1-255, leaving
// missing samples at 0.
func depthToGray(depth videoframe.DepthMap) []byte {
	out := make([]byte, len(depth.Data))
	min, max := depth.MinMax()
	if max == 0 {
		return out
	}
	span := float64(max - min)
	for i, d := range depth.Data {
		if d == 0 {
			continue
		}
		if span == 0 {
			out[i] = 255
			continue
		}
		out[i] = byte(1 + float64(d-min)/span*254)
	}
	return out
}

// PollEvents waits for a key press for at most the configured delay,
// which is also when the window gets to redraw. A window closed by the
// viewer reads as Escape. Until the first frame opens the window the
// same delay is slept instead.
func (w *windowRenderer) PollEvents() []render.Key {
	if w.window == nil {
		sleep(time.Duration(w.settings.WaitKeyMS) * time.Millisecond)
		return nil
	}
	if !w.window.IsOpen() {
		return []render.Key{render.KeyEscape}
	}
	code := w.window.WaitKey(w.settings.WaitKeyMS)
	if code < 0 {
		return nil
	}
	if k := render.KeyFromCode(code & 0xFF); k != render.KeyUnknown {
		return []render.Key{k}
	}
	return nil
}

func (w *windowRenderer) UpdateRenderer() error {
	if w.window == nil || !w.ready {
		return nil
	}
	w.window.IMShow(w.canvas)
	return nil
}

func (w *windowRenderer) Close() error {
	var err error
	if w.window != nil {
		err = w.window.Close()
		w.window = nil
	}
	return multierr.Append(err, w.canvas.Close())
}
