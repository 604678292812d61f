package configdef_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
)

func validValues() configdef.Values {
	return configdef.Values{
		Backend:  "opencv",
		Renderer: "window",
		Window: configdef.Window{
			Title: "reader", Width: 1920, Height: 540, WaitKeyMS: 1,
		},
		PointCloud: configdef.PointCloud{
			Format: "pcd", Encoding: "ascii", DepthScale: 1000, DepthTrunc: 3,
		},
		MaxEmptyPolls: 300,
		Mock:          configdef.Mock{Frames: 300},
	}
}

func TestValidatePopulatedConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	config := validValues()
	is.NoErr(config.RunValidate())
}

func TestValidateConfigDecodedOverValidValuesPasses(t *testing.T) {
	is := is.New(t)
	body := `{
			"backend": "mock",
			"renderer": "terminal",
			"point_cloud": {"format": "ply", "encoding": "ascii", "depth_scale": 1000, "depth_trunc": 4.5},
			"max_empty_polls": 0
		}`
	config := validValues()
	is.NoErr(json.Unmarshal([]byte(body), &config))
	is.NoErr(config.RunValidate())
	is.Equal(config.PointCloud.DepthTrunc, 4.5)
	is.Equal(config.Window.Title, "reader")
}

func TestValidateConfigFailsForUnknownBackend(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.Backend = "k4a"
	err := config.RunValidate()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `"Backend"`))
}

func TestValidateConfigFailsForUnknownRenderer(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.Renderer = "opengl"
	err := config.RunValidate()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `"Renderer"`))
}

func TestValidateConfigFailsForNegativeMaxEmptyPolls(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.MaxEmptyPolls = -1
	err := config.RunValidate()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `"MaxEmptyPolls"`))
}

func TestValidateConfigFailsForWaitKeyOutOfRange(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.Window.WaitKeyMS = 5000
	err := config.RunValidate()
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), `"WaitKeyMS"`))
}

func TestValidateConfigFailsForBinaryPLY(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.PointCloud.Format = "ply"
	config.PointCloud.Encoding = "binary"
	is.Equal(config.RunValidate().Error(), "validation failed: ply point clouds are only written as ascii")
}

func TestValidateConfigFailsForMalformedColorPipeline(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.Pipelines.Color = "filesrc location=%s ! matroskademux ! appsink"
	is.Equal(
		config.RunValidate().Error(),
		"validation failed: color pipeline must contain exactly one %s and one %d",
	)
}

func TestValidateConfigAcceptsWellFormedDepthPipeline(t *testing.T) {
	is := is.New(t)
	config := validValues()
	config.Pipelines.Depth = "filesrc location=\"%s\" ! matroskademux name=d d.video_%d ! appsink"
	is.NoErr(config.RunValidate())
}
