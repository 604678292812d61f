package videobackend_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"github.com/tauraamui/rgbdplay/pkg/video/videobackend"
	"gocv.io/x/gocv"
)

type OpenCVBackendTestSuite struct {
	suite.Suite
	fs            afero.Fs
	resetFS       func()
	resetMetadata func()
	resetOpen     func()
	pipelines     []string
}

func (suite *OpenCVBackendTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
	suite.Require().NoError(afero.WriteFile(suite.fs, "/recordings/test.mkv", []byte{0x1a, 0x45, 0xdf, 0xa3}, 0644))
	suite.resetFS = videobackend.OverloadFS(suite.fs)
	suite.resetMetadata = videobackend.OverloadReadMetadata(func(string) (recording.Metadata, error) {
		return recording.Metadata{
			ColorTrack: recording.Track{Name: "COLOR", PadIndex: 0},
			DepthTrack: recording.Track{Name: "DEPTH", PadIndex: 1},
		}, nil
	})
	suite.pipelines = nil
	suite.resetOpen = videobackend.OverloadOpenVideoCapture(func(pipeline string) (*gocv.VideoCapture, error) {
		suite.pipelines = append(suite.pipelines, pipeline)
		return nil, errors.New("test open failure")
	})
}

func (suite *OpenCVBackendTestSuite) TearDownTest() {
	suite.resetOpen()
	suite.resetMetadata()
	suite.resetFS()
}

func (suite *OpenCVBackendTestSuite) TestOpenMissingRecordingFails() {
	_, err := videobackend.Default().Open(context.Background(), "/recordings/missing.mkv")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "unable to open recording /recordings/missing.mkv")
	suite.Empty(suite.pipelines)
}

func (suite *OpenCVBackendTestSuite) TestOpenFormatsColorPipelineFromMetadata() {
	_, err := videobackend.Default().Open(context.Background(), "/recordings/test.mkv")
	suite.EqualError(err, "unable to open colour stream: test open failure")
	suite.Require().Len(suite.pipelines, 1)
	suite.True(strings.HasPrefix(suite.pipelines[0], `filesrc location="/recordings/test.mkv" ! matroskademux name=demux demux.video_0 !`))
}

func (suite *OpenCVBackendTestSuite) TestOpenUsesConfiguredColorPipeline() {
	backend := videobackend.OpenCV(videobackend.Settings{ColorPipeline: "filesrc location=%s ! matroskademux name=d d.video_%d ! appsink"})
	_, err := backend.Open(context.Background(), "/recordings/test.mkv")
	suite.Error(err)
	suite.Equal([]string{"filesrc location=/recordings/test.mkv ! matroskademux name=d d.video_0 ! appsink"}, suite.pipelines)
}

func (suite *OpenCVBackendTestSuite) TestOpenWithoutMetadataAssumesFirstPad() {
	suite.resetMetadata()
	suite.resetMetadata = videobackend.OverloadReadMetadata(func(string) (recording.Metadata, error) {
		return recording.Metadata{}, recording.ErrNoColorTrack
	})
	_, err := videobackend.Default().Open(context.Background(), "/recordings/test.mkv")
	suite.Error(err)
	suite.Require().Len(suite.pipelines, 1)
	suite.Contains(suite.pipelines[0], "demux.video_0")
}

func (suite *OpenCVBackendTestSuite) TestOpenHonoursCancellation() {
	release := make(chan struct{})
	defer close(release)
	suite.resetOpen()
	suite.resetOpen = videobackend.OverloadOpenVideoCapture(func(string) (*gocv.VideoCapture, error) {
		<-release
		return nil, errors.New("released")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := videobackend.Default().Open(ctx, "/recordings/test.mkv")
	suite.True(errors.Is(err, videobackend.ErrOpenCancelled))
}

func (suite *OpenCVBackendTestSuite) TestMissedDepthReadHoldsColourFrame() {
	color, depth := &gocv.VideoCapture{}, &gocv.VideoCapture{}
	colorReads, depthReads := 0, 0
	depthScript := []bool{false, true, true}
	resetRead := videobackend.OverloadReadFromVideoCapture(func(vc *gocv.VideoCapture, mat *gocv.Mat) bool {
		mat.Close()
		if vc == color {
			colorReads++
			*mat = gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
			return true
		}
		ok := depthScript[depthReads]
		depthReads++
		*mat = gocv.NewMatWithSize(2, 2, gocv.MatTypeCV16U)
		return ok
	})
	defer resetRead()
	resetAtEnd := videobackend.OverloadVideoCaptureAtEnd(func(*gocv.VideoCapture) bool { return false })
	defer resetAtEnd()
	timestamp := int64(0)
	resetTimestamp := videobackend.OverloadCaptureTimestampUsec(func(*gocv.VideoCapture) int64 {
		timestamp += 33333
		return timestamp
	})
	defer resetTimestamp()

	capture := videobackend.NewOpenCVCapture(color, depth)

	frame, err := capture.NextFrame()
	suite.Require().NoError(err)
	suite.Nil(frame)
	suite.False(capture.IsEOF())

	frame, err = capture.NextFrame()
	suite.Require().NoError(err)
	suite.Require().NotNil(frame)
	suite.Equal(1, colorReads)
	suite.Equal(int64(33333), frame.Timestamp())
	dm, err := frame.Depth()
	suite.Require().NoError(err)
	suite.Equal(2, dm.W)
	frame.Close()

	frame, err = capture.NextFrame()
	suite.Require().NoError(err)
	suite.Require().NotNil(frame)
	suite.Equal(2, colorReads)
	suite.Equal(3, depthReads)
	suite.Equal(int64(66666), frame.Timestamp())
	_, err = frame.Depth()
	suite.NoError(err)
	frame.Close()
}

func TestOpenCVBackendTestSuite(t *testing.T) {
	suite.Run(t, &OpenCVBackendTestSuite{})
}
