package recording

import (
	"encoding/json"

	"github.com/tauraamui/rgbdplay/pkg/intrinsics"
	"github.com/tauraamui/xerror"
)

const (
	colorCameraLocation = "CALIBRATION_CameraLocationPV0"
	depthCameraLocation = "CALIBRATION_CameraLocationD0"
)

var ErrNoCalibratedCamera = xerror.New("calibration has no entry for camera")

type calibrationFile struct {
	CalibrationInformation struct {
		Cameras []calibratedCamera `json:"Cameras"`
	} `json:"CalibrationInformation"`
}

type calibratedCamera struct {
	Location   string `json:"Location"`
	Intrinsics struct {
		ModelParameters []float64 `json:"ModelParameters"`
		ModelType       string    `json:"ModelType"`
	} `json:"Intrinsics"`
	SensorWidth  int `json:"SensorWidth"`
	SensorHeight int `json:"SensorHeight"`
}

// ColorIntrinsics derives pinhole intrinsics for the colour track at
// its recorded resolution from the factory calibration.
func (md Metadata) ColorIntrinsics() (intrinsics.Intrinsics, error) {
	return md.cameraIntrinsics(colorCameraLocation, md.ColorTrack)
}

// DepthIntrinsics is ColorIntrinsics for the depth camera.
func (md Metadata) DepthIntrinsics() (intrinsics.Intrinsics, error) {
	return md.cameraIntrinsics(depthCameraLocation, md.DepthTrack)
}

func (md Metadata) cameraIntrinsics(location string, track Track) (intrinsics.Intrinsics, error) {
	if len(md.Calibration) == 0 {
		return intrinsics.Intrinsics{}, ErrNoCalibration
	}

	var cf calibrationFile
	if err := json.Unmarshal(md.Calibration, &cf); err != nil {
		return intrinsics.Intrinsics{}, xerror.Errorf("unable to parse %s: %w", CalibrationFileName, err)
	}

	for _, cam := range cf.CalibrationInformation.Cameras {
		if cam.Location != location {
			continue
		}
		in, err := cam.intrinsicsAt(track.Width, track.Height)
		if err != nil {
			return intrinsics.Intrinsics{}, err
		}
		return in, in.CheckValid()
	}

	return intrinsics.Intrinsics{}, xerror.Errorf("%w: %s", ErrNoCalibratedCamera, location)
}

// intrinsicsAt scales the normalised model parameters to sensor pixels,
// crops the sensor to the target aspect ratio around its centre, then
// scales down to the target width.
func (cam calibratedCamera) intrinsicsAt(width, height int) (intrinsics.Intrinsics, error) {
	p := cam.Intrinsics.ModelParameters
	if len(p) < 4 {
		return intrinsics.Intrinsics{}, xerror.Errorf(
			"camera %s has %d model parameters, expected at least 4", cam.Location, len(p),
		)
	}
	if cam.SensorWidth <= 0 || cam.SensorHeight <= 0 || width <= 0 || height <= 0 {
		return intrinsics.Intrinsics{}, xerror.Errorf(
			"camera %s cannot map sensor %dx%d to %dx%d", cam.Location, cam.SensorWidth, cam.SensorHeight, width, height,
		)
	}

	sw, sh := float64(cam.SensorWidth), float64(cam.SensorHeight)
	cx, cy, fx, fy := p[0]*sw, p[1]*sh, p[2]*sw, p[3]*sh

	var offsetX, offsetY, cropW float64
	cropW = sw
	targetAspect := float64(width) / float64(height)
	if sensorAspect := sw / sh; targetAspect > sensorAspect {
		cropH := sw / targetAspect
		offsetY = (sh - cropH) / 2
	} else if targetAspect < sensorAspect {
		cropW = sh * targetAspect
		offsetX = (sw - cropW) / 2
	}

	scale := float64(width) / cropW
	return intrinsics.Intrinsics{
		Width:  width,
		Height: height,
		Fx:     fx * scale,
		Fy:     fy * scale,
		Cx:     (cx - offsetX) * scale,
		Cy:     (cy - offsetY) * scale,
	}, nil
}

// MetadataFile prepares the intrinsic.json content for this recording.
func (md Metadata) MetadataFile() (intrinsics.MetadataFile, error) {
	in, err := md.ColorIntrinsics()
	if err != nil {
		return intrinsics.MetadataFile{}, err
	}
	m := intrinsics.NewMetadataFile(in)
	m.ColorMode = md.ColorMode
	m.DepthMode = md.DepthMode
	m.SerialNumber = md.SerialNumber
	m.StreamLengthUsec = md.DurationUsec
	return m, nil
}
