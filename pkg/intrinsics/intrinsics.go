// Package intrinsics holds the pinhole camera parameters used to
// back-project depth pixels, and reads/writes them in the
// intrinsic.json layout consumed by RGB-D reconstruction tooling.
package intrinsics

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tauraamui/xerror"
)

// ErrNoIntrinsics is returned when parameters are missing or unusable.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

type Intrinsics struct {
	Width  int
	Height int
	Fx     float64
	Fy     float64
	Cx     float64
	Cy     float64
}

func newNoIntrinsicsError(msg string) error {
	return xerror.Errorf("%w: %s", ErrNoIntrinsics, msg)
}

// CheckValid checks if the fields for Intrinsics have usable values.
func (in *Intrinsics) CheckValid() error {
	if in == nil {
		return newNoIntrinsicsError("intrinsics do not exist")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return newNoIntrinsicsError(fmt.Sprintf("invalid size (%d, %d)", in.Width, in.Height))
	}
	if in.Fx <= 0 {
		return newNoIntrinsicsError(fmt.Sprintf("invalid focal length fx = %v", in.Fx))
	}
	if in.Fy <= 0 {
		return newNoIntrinsicsError(fmt.Sprintf("invalid focal length fy = %v", in.Fy))
	}
	if in.Cx < 0 {
		return newNoIntrinsicsError(fmt.Sprintf("invalid principal point cx = %v", in.Cx))
	}
	if in.Cy < 0 {
		return newNoIntrinsicsError(fmt.Sprintf("invalid principal point cy = %v", in.Cy))
	}
	return nil
}

// PixelToPoint back-projects pixel (u, v) at depth z into camera space.
func (in *Intrinsics) PixelToPoint(u, v, z float64) (float64, float64, float64) {
	return (u - in.Cx) / in.Fx * z, (v - in.Cy) / in.Fy * z, z
}

// Matrix returns the 3x3 intrinsic matrix in column major order.
func (in *Intrinsics) Matrix() [9]float64 {
	return [9]float64{
		in.Fx, 0, 0,
		0, in.Fy, 0,
		in.Cx, in.Cy, 1,
	}
}

// FromMatrix is the inverse of Matrix, reading fx, fy, cx, cy from
// indices 0, 4, 6 and 7.
func FromMatrix(width, height int, m []float64) (Intrinsics, error) {
	if len(m) != 9 {
		return Intrinsics{}, newNoIntrinsicsError(fmt.Sprintf("intrinsic matrix has %d values, expected 9", len(m)))
	}
	return Intrinsics{
		Width: width, Height: height,
		Fx: m[0], Fy: m[4], Cx: m[6], Cy: m[7],
	}, nil
}
