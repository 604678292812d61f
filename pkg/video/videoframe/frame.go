package videoframe

import (
	"image"

	"github.com/tauraamui/xerror"
)

type Dimensions struct {
	W, H int
}

// Frame is one decoded colour and depth pair from a recording.
type Frame interface {
	Timestamp() int64
	DataRef() interface{}
	Color() (image.Image, error)
	Depth() (DepthMap, error)
	Dimensions() Dimensions
	Close()
}

// DepthMap holds raw 16 bit depth samples in row major order,
// in the recording's native unit (millimetres for Azure Kinect).
type DepthMap struct {
	W, H int
	Data []uint16
}

func NewDepthMap(w, h int) DepthMap {
	return DepthMap{W: w, H: h, Data: make([]uint16, w*h)}
}

func (dm DepthMap) At(x, y int) uint16 {
	return dm.Data[y*dm.W+x]
}

func (dm DepthMap) Set(x, y int, d uint16) {
	dm.Data[y*dm.W+x] = d
}

func (dm DepthMap) Dimensions() Dimensions {
	return Dimensions{W: dm.W, H: dm.H}
}

// MinMax ignores zero samples, which mark missing depth.
func (dm DepthMap) MinMax() (uint16, uint16) {
	var min, max uint16 = 0xFFFF, 0
	for _, d := range dm.Data {
		if d == 0 {
			continue
		}
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	if max == 0 {
		return 0, 0
	}
	return min, max
}

func (dm DepthMap) Validate() error {
	if dm.W <= 0 || dm.H <= 0 {
		return xerror.Errorf("invalid depth map size %dx%d", dm.W, dm.H)
	}
	if len(dm.Data) != dm.W*dm.H {
		return xerror.Errorf("depth map holds %d samples, expected %d", len(dm.Data), dm.W*dm.H)
	}
	return nil
}

// ToGray16 copies the map into an image the stdlib encoders understand.
func (dm DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, dm.W, dm.H))
	for y := 0; y < dm.H; y++ {
		for x := 0; x < dm.W; x++ {
			d := dm.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(d >> 8)
			img.Pix[i+1] = uint8(d)
		}
	}
	return img
}
