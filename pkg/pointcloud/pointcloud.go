// Package pointcloud back-projects RGB-D frames into coloured point
// clouds and writes them in the PCD and PLY file formats.
package pointcloud

import (
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/tauraamui/rgbdplay/pkg/intrinsics"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	DefaultDepthScale = 1000.0
	DefaultDepthTrunc = 3.0
)

// Options control how raw depth samples become metres.
type Options struct {
	// DepthScale divides raw samples, 1000 turns millimetres into metres.
	DepthScale float64
	// DepthTrunc drops points further away than this many metres.
	DepthTrunc float64
}

func DefaultOptions() Options {
	return Options{DepthScale: DefaultDepthScale, DepthTrunc: DefaultDepthTrunc}
}

type MetaData struct {
	HasColor bool
	MinZ     float64
	MaxZ     float64
}

// PointCloud is an unstructured set of points in camera space, in metres.
type PointCloud struct {
	points []r3.Vector
	colors []color.NRGBA
	meta   MetaData
}

func New(hasColor bool) *PointCloud {
	return &PointCloud{meta: MetaData{HasColor: hasColor}}
}

// Add appends a point, c is ignored for clouds without colour.
func (pc *PointCloud) Add(p r3.Vector, c color.NRGBA) {
	if len(pc.points) == 0 || p.Z < pc.meta.MinZ {
		pc.meta.MinZ = p.Z
	}
	if len(pc.points) == 0 || p.Z > pc.meta.MaxZ {
		pc.meta.MaxZ = p.Z
	}
	pc.points = append(pc.points, p)
	if pc.meta.HasColor {
		pc.colors = append(pc.colors, c)
	}
}

func (pc *PointCloud) Size() int {
	return len(pc.points)
}

func (pc *PointCloud) MetaData() MetaData {
	return pc.meta
}

// Iterate calls fn for each point in insertion order until fn returns false.
func (pc *PointCloud) Iterate(fn func(p r3.Vector, c color.NRGBA) bool) {
	for i, p := range pc.points {
		var c color.NRGBA
		if pc.meta.HasColor {
			c = pc.colors[i]
		}
		if !fn(p, c) {
			return
		}
	}
}

// FromRGBD back-projects every valid depth pixel with the pinhole model.
// Samples of zero mark missing depth and are skipped, as are points past
// the truncation distance. A nil colour image yields a cloud without colour.
func FromRGBD(col image.Image, depth videoframe.DepthMap, in intrinsics.Intrinsics, opts Options) (*PointCloud, error) {
	if err := depth.Validate(); err != nil {
		return nil, err
	}
	if err := in.CheckValid(); err != nil {
		return nil, err
	}
	if opts.DepthScale <= 0 {
		return nil, xerror.Errorf("invalid depth scale %v", opts.DepthScale)
	}
	if in.Width != depth.W || in.Height != depth.H {
		return nil, xerror.Errorf(
			"intrinsics are for %dx%d but depth map is %dx%d", in.Width, in.Height, depth.W, depth.H,
		)
	}

	var bounds image.Rectangle
	if col != nil {
		bounds = col.Bounds()
		if bounds.Dx() != depth.W || bounds.Dy() != depth.H {
			return nil, xerror.Errorf(
				"colour image is %dx%d but depth map is %dx%d", bounds.Dx(), bounds.Dy(), depth.W, depth.H,
			)
		}
	}

	pc := New(col != nil)
	for v := 0; v < depth.H; v++ {
		for u := 0; u < depth.W; u++ {
			raw := depth.At(u, v)
			if raw == 0 {
				continue
			}
			z := float64(raw) / opts.DepthScale
			if opts.DepthTrunc > 0 && z > opts.DepthTrunc {
				continue
			}
			x, y, z := in.PixelToPoint(float64(u), float64(v), z)
			var c color.NRGBA
			if col != nil {
				c = color.NRGBAModel.Convert(col.At(bounds.Min.X+u, bounds.Min.Y+v)).(color.NRGBA)
			}
			pc.Add(r3.Vector{X: x, Y: y, Z: z}, c)
		}
	}
	return pc, nil
}
