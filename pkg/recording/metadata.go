// Package recording reads the container level metadata of an Azure
// Kinect Matroska recording: the colour and depth tracks, the K4A tags
// and the factory calibration attachment.
package recording

import (
	"strings"

	"github.com/remko/go-mkvparse"
	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/xerror"
)

const (
	ColorTrackName      = "COLOR"
	DepthTrackName      = "DEPTH"
	CalibrationFileName = "calibration.json"

	colorModeTag    = "K4A_COLOR_MODE"
	depthModeTag    = "K4A_DEPTH_MODE"
	serialNumberTag = "K4A_DEVICE_SERIAL_NUMBER"

	matroskaVideoTrackType = 1
)

var (
	ErrNoColorTrack  = xerror.New("recording has no COLOR track")
	ErrNoDepthTrack  = xerror.New("recording has no DEPTH track")
	ErrNoCalibration = xerror.New("recording has no calibration.json attachment")
)

var fs = afero.NewOsFs()

type Track struct {
	Number  int64
	Name    string
	CodecID string
	Width   int
	Height  int
	// PadIndex is the position of this track among the video tracks,
	// which is the N in a demuxer's video_N pad.
	PadIndex int
}

type Metadata struct {
	ColorMode    string
	DepthMode    string
	SerialNumber string
	// DurationUsec is zero when the segment info carries no duration.
	DurationUsec int64
	ColorTrack   Track
	DepthTrack   Track
	Calibration  []byte
}

// HasDepth reports whether a depth track was found.
func (md Metadata) HasDepth() bool {
	return len(md.DepthTrack.Name) > 0
}

// ReadMetadata parses the Info, Tracks, Attachments and Tags sections
// of the recording at path.
func ReadMetadata(path string) (Metadata, error) {
	file, err := fs.Open(path)
	if err != nil {
		return Metadata{}, xerror.Errorf("unable to open recording %s: %w", path, err)
	}
	defer file.Close()

	h := newMetadataHandler()
	if err := mkvparse.ParseSections(
		file, h,
		mkvparse.InfoElement, mkvparse.TracksElement, mkvparse.AttachmentsElement, mkvparse.TagsElement,
	); err != nil {
		return Metadata{}, xerror.Errorf("unable to parse recording %s: %w", path, err)
	}

	return h.metadata()
}

type metadataHandler struct {
	mkvparse.DefaultHandler

	timestampScale float64
	duration       float64

	tracks       []Track
	currentTrack *Track
	videoTracks  int

	attachmentName string
	attachmentData []byte
	calibration    []byte

	tagName string
	tags    map[string]string
}

func newMetadataHandler() *metadataHandler {
	return &metadataHandler{
		timestampScale: 1000000,
		tags:           map[string]string{},
	}
}

func (h *metadataHandler) HandleMasterBegin(id mkvparse.ElementID, info mkvparse.ElementInfo) (bool, error) {
	switch id {
	case mkvparse.TrackEntryElement:
		h.currentTrack = &Track{PadIndex: -1}
	case mkvparse.AttachedFileElement:
		h.attachmentName, h.attachmentData = "", nil
	case mkvparse.SimpleTagElement:
		h.tagName = ""
	}
	return true, nil
}

func (h *metadataHandler) HandleMasterEnd(id mkvparse.ElementID, info mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.TrackEntryElement:
		if h.currentTrack != nil {
			h.tracks = append(h.tracks, *h.currentTrack)
			h.currentTrack = nil
		}
	case mkvparse.AttachedFileElement:
		if h.attachmentName == CalibrationFileName {
			h.calibration = h.attachmentData
		}
	}
	return nil
}

func (h *metadataHandler) HandleString(id mkvparse.ElementID, value string, info mkvparse.ElementInfo) error {
	switch id {
	case mkvparse.NameElement:
		if h.currentTrack != nil {
			h.currentTrack.Name = value
		}
	case mkvparse.CodecIDElement:
		if h.currentTrack != nil {
			h.currentTrack.CodecID = value
		}
	case mkvparse.FileNameElement:
		h.attachmentName = value
	case mkvparse.TagNameElement:
		h.tagName = value
	case mkvparse.TagStringElement:
		if len(h.tagName) > 0 {
			h.tags[h.tagName] = value
		}
	}
	return nil
}

func (h *metadataHandler) HandleInteger(id mkvparse.ElementID, value int64, info mkvparse.ElementInfo) error {
	if id == mkvparse.TimecodeScaleElement {
		h.timestampScale = float64(value)
		return nil
	}
	if h.currentTrack == nil {
		return nil
	}
	switch id {
	case mkvparse.TrackNumberElement:
		h.currentTrack.Number = value
	case mkvparse.TrackTypeElement:
		if value == matroskaVideoTrackType {
			h.currentTrack.PadIndex = h.videoTracks
			h.videoTracks++
		}
	case mkvparse.PixelWidthElement:
		h.currentTrack.Width = int(value)
	case mkvparse.PixelHeightElement:
		h.currentTrack.Height = int(value)
	}
	return nil
}

func (h *metadataHandler) HandleFloat(id mkvparse.ElementID, value float64, info mkvparse.ElementInfo) error {
	if id == mkvparse.DurationElement {
		h.duration = value
	}
	return nil
}

func (h *metadataHandler) HandleBinary(id mkvparse.ElementID, value []byte, info mkvparse.ElementInfo) error {
	if id == mkvparse.FileDataElement {
		h.attachmentData = value
	}
	return nil
}

func (h *metadataHandler) metadata() (Metadata, error) {
	md := Metadata{
		ColorMode:    h.tags[colorModeTag],
		DepthMode:    h.tags[depthModeTag],
		SerialNumber: h.tags[serialNumberTag],
		// segment duration is in timestamp scale units of nanoseconds
		DurationUsec: int64(h.duration * h.timestampScale / 1000),
		Calibration:  h.calibration,
	}

	colorFound := false
	for _, t := range h.tracks {
		switch strings.ToUpper(t.Name) {
		case ColorTrackName:
			md.ColorTrack, colorFound = t, true
		case DepthTrackName:
			md.DepthTrack = t
		}
	}

	if !colorFound {
		return Metadata{}, ErrNoColorTrack
	}
	if !md.HasDepth() {
		log.Warn("Recording has no %s track, point clouds will be unavailable", DepthTrackName)
	}
	return md, nil
}
