package recording

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/remko/go-mkvparse"
	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/intrinsics"
	"github.com/tauraamui/rgbdplay/pkg/log"
)

const testCalibration = `{
	"CalibrationInformation": {
		"Cameras": [
			{
				"Intrinsics": {
					"ModelParameterCount": 14,
					"ModelParameters": [0.5, 0.5, 0.5, 0.5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
					"ModelType": "CALIBRATION_LensDistortionModelBrownConrady"
				},
				"Location": "CALIBRATION_CameraLocationD0",
				"SensorHeight": 1024,
				"SensorWidth": 1024
			},
			{
				"Intrinsics": {
					"ModelParameterCount": 14,
					"ModelParameters": [0.5, 0.5, 0.25, 0.375, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
					"ModelType": "CALIBRATION_LensDistortionModelBrownConrady"
				},
				"Location": "CALIBRATION_CameraLocationPV0",
				"SensorHeight": 3072,
				"SensorWidth": 4096
			}
		]
	}
}`

var info = mkvparse.ElementInfo{}

func feedTrack(is *is.I, h *metadataHandler, number int64, name string, width, height int64) {
	_, err := h.HandleMasterBegin(mkvparse.TrackEntryElement, info)
	is.NoErr(err)
	is.NoErr(h.HandleInteger(mkvparse.TrackNumberElement, number, info))
	is.NoErr(h.HandleInteger(mkvparse.TrackTypeElement, matroskaVideoTrackType, info))
	is.NoErr(h.HandleString(mkvparse.NameElement, name, info))
	is.NoErr(h.HandleString(mkvparse.CodecIDElement, "V_MS/VFW/FOURCC", info))
	is.NoErr(h.HandleInteger(mkvparse.PixelWidthElement, width, info))
	is.NoErr(h.HandleInteger(mkvparse.PixelHeightElement, height, info))
	is.NoErr(h.HandleMasterEnd(mkvparse.TrackEntryElement, info))
}

func feedTag(is *is.I, h *metadataHandler, name, value string) {
	_, err := h.HandleMasterBegin(mkvparse.SimpleTagElement, info)
	is.NoErr(err)
	is.NoErr(h.HandleString(mkvparse.TagNameElement, name, info))
	is.NoErr(h.HandleString(mkvparse.TagStringElement, value, info))
	is.NoErr(h.HandleMasterEnd(mkvparse.SimpleTagElement, info))
}

func feedAttachment(is *is.I, h *metadataHandler, name string, data []byte) {
	_, err := h.HandleMasterBegin(mkvparse.AttachedFileElement, info)
	is.NoErr(err)
	is.NoErr(h.HandleString(mkvparse.FileNameElement, name, info))
	is.NoErr(h.HandleBinary(mkvparse.FileDataElement, data, info))
	is.NoErr(h.HandleMasterEnd(mkvparse.AttachedFileElement, info))
}

func recordedHandler(is *is.I) *metadataHandler {
	h := newMetadataHandler()
	is.NoErr(h.HandleFloat(mkvparse.DurationElement, 12000, info))
	feedTrack(is, h, 1, "COLOR", 1280, 720)
	feedTrack(is, h, 2, "DEPTH", 640, 576)
	feedTrack(is, h, 3, "IR", 640, 576)
	feedAttachment(is, h, "notes.txt", []byte("ignored"))
	feedAttachment(is, h, CalibrationFileName, []byte(testCalibration))
	feedTag(is, h, "K4A_COLOR_MODE", "MJPG_720P")
	feedTag(is, h, "K4A_DEPTH_MODE", "NFOV_UNBINNED")
	feedTag(is, h, "K4A_DEVICE_SERIAL_NUMBER", "000123456789")
	return h
}

func TestMetadataHandlerHonoursTimecodeScale(t *testing.T) {
	is := is.New(t)
	h := newMetadataHandler()
	is.NoErr(h.HandleInteger(mkvparse.TimecodeScaleElement, 1000, info))
	is.NoErr(h.HandleFloat(mkvparse.DurationElement, 12000000, info))
	feedTrack(is, h, 1, "COLOR", 1280, 720)
	feedTrack(is, h, 2, "DEPTH", 640, 576)

	md, err := h.metadata()
	is.NoErr(err)
	is.Equal(md.DurationUsec, int64(12000000))
	is.Equal(md.ColorTrack.Number, int64(1))
}

func TestMetadataHandlerTimecodeScaleAfterTracks(t *testing.T) {
	is := is.New(t)
	h := newMetadataHandler()
	feedTrack(is, h, 1, "COLOR", 1280, 720)
	feedTrack(is, h, 2, "DEPTH", 640, 576)
	is.NoErr(h.HandleInteger(mkvparse.TimecodeScaleElement, 500000, info))
	is.NoErr(h.HandleFloat(mkvparse.DurationElement, 100, info))

	md, err := h.metadata()
	is.NoErr(err)
	is.Equal(md.DurationUsec, int64(50000))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMetadataHandlerCollectsTracksTagsAndCalibration(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)

	is.Equal(md.ColorMode, "MJPG_720P")
	is.Equal(md.DepthMode, "NFOV_UNBINNED")
	is.Equal(md.SerialNumber, "000123456789")
	is.Equal(md.DurationUsec, int64(12000000))
	is.Equal(md.ColorTrack, Track{Number: 1, Name: "COLOR", CodecID: "V_MS/VFW/FOURCC", Width: 1280, Height: 720, PadIndex: 0})
	is.Equal(md.DepthTrack, Track{Number: 2, Name: "DEPTH", CodecID: "V_MS/VFW/FOURCC", Width: 640, Height: 576, PadIndex: 1})
	is.Equal(string(md.Calibration), testCalibration)
	is.True(md.HasDepth())
}

func TestMetadataHandlerWithoutColorTrackFails(t *testing.T) {
	is := is.New(t)
	h := newMetadataHandler()
	feedTrack(is, h, 1, "DEPTH", 640, 576)
	_, err := h.metadata()
	is.True(errors.Is(err, ErrNoColorTrack))
}

func TestMetadataHandlerWithoutDepthTrackWarnsOnly(t *testing.T) {
	is := is.New(t)
	warnRef := log.Warn
	defer func() { log.Warn = warnRef }()
	warnings := []string{}
	log.Warn = func(format string, a ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, a...))
	}

	h := newMetadataHandler()
	feedTrack(is, h, 1, "COLOR", 1280, 720)
	md, err := h.metadata()
	is.NoErr(err)
	is.True(!md.HasDepth())
	is.Equal(warnings, []string{"Recording has no DEPTH track, point clouds will be unavailable"})
}

func TestColorIntrinsicsCropsSensorToWideTrack(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)

	in, err := md.ColorIntrinsics()
	is.NoErr(err)
	is.Equal(in.Width, 1280)
	is.Equal(in.Height, 720)
	is.True(approx(in.Fx, 320))
	is.True(approx(in.Fy, 360))
	is.True(approx(in.Cx, 640))
	is.True(approx(in.Cy, 360))
}

func TestColorIntrinsicsWithoutCropAtSensorAspect(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)
	md.ColorTrack.Width, md.ColorTrack.Height = 2048, 1536

	in, err := md.ColorIntrinsics()
	is.NoErr(err)
	is.True(approx(in.Fx, 512))
	is.True(approx(in.Fy, 576))
	is.True(approx(in.Cx, 1024))
	is.True(approx(in.Cy, 768))
}

func TestColorIntrinsicsCropsSensorToNarrowTrack(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)
	md.ColorTrack.Width, md.ColorTrack.Height = 1000, 1000

	in, err := md.ColorIntrinsics()
	is.NoErr(err)
	is.True(approx(in.Cx, 500))
	is.True(approx(in.Cy, 500))
}

func TestDepthIntrinsics(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)
	md.DepthTrack.Width, md.DepthTrack.Height = 1024, 1024

	in, err := md.DepthIntrinsics()
	is.NoErr(err)
	is.Equal(in, intrinsics.Intrinsics{Width: 1024, Height: 1024, Fx: 512, Fy: 512, Cx: 512, Cy: 512})
}

func TestColorIntrinsicsWithoutCalibrationFails(t *testing.T) {
	is := is.New(t)
	md := Metadata{ColorTrack: Track{Name: "COLOR", Width: 1280, Height: 720}}
	_, err := md.ColorIntrinsics()
	is.True(errors.Is(err, ErrNoCalibration))
}

func TestColorIntrinsicsWithoutColorCameraFails(t *testing.T) {
	is := is.New(t)
	md := Metadata{
		ColorTrack:  Track{Name: "COLOR", Width: 1280, Height: 720},
		Calibration: []byte(`{"CalibrationInformation": {"Cameras": []}}`),
	}
	_, err := md.ColorIntrinsics()
	is.True(errors.Is(err, ErrNoCalibratedCamera))
	is.True(strings.Contains(err.Error(), "CALIBRATION_CameraLocationPV0"))
}

func TestMetadataFileCarriesModesAndMatrix(t *testing.T) {
	is := is.New(t)
	md, err := recordedHandler(is).metadata()
	is.NoErr(err)

	m, err := md.MetadataFile()
	is.NoErr(err)
	is.Equal(m.ColorMode, "MJPG_720P")
	is.Equal(m.DepthMode, "NFOV_UNBINNED")
	is.Equal(m.SerialNumber, "000123456789")
	is.Equal(m.StreamLengthUsec, int64(12000000))
	is.Equal(m.Width, 1280)
	is.Equal(len(m.IntrinsicMatrix), 9)
	is.True(approx(m.IntrinsicMatrix[0], 320))
	is.Equal(m.IntrinsicMatrix[8], 1.0)
}

func TestReadMetadataMissingFile(t *testing.T) {
	is := is.New(t)
	fsRef := fs
	fs = afero.NewMemMapFs()
	defer func() { fs = fsRef }()

	_, err := ReadMetadata("/recordings/missing.mkv")
	is.True(err != nil)
}
