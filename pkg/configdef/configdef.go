package configdef

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/dealancer/validate.v2"
)

type Window struct {
	Title     string `json:"title" validate:"empty=false"`
	Width     int    `json:"width" validate:"gte=1"`
	Height    int    `json:"height" validate:"gte=1"`
	WaitKeyMS int    `json:"wait_key_ms" validate:"gte=1 & lte=1000"`
}

type PointCloud struct {
	Format     string  `json:"format" validate:"one_of=pcd,ply"`
	Encoding   string  `json:"encoding" validate:"one_of=ascii,binary"`
	DepthScale float64 `json:"depth_scale" validate:"gt=0"`
	DepthTrunc float64 `json:"depth_trunc" validate:"gt=0"`
}

type Pipelines struct {
	Color string `json:"color"`
	Depth string `json:"depth"`
}

type Mock struct {
	Frames     int `json:"frames" validate:"gte=1"`
	EmptyEvery int `json:"empty_every" validate:"gte=0"`
}

type Values struct {
	Debug         bool       `json:"debug"`
	Backend       string     `json:"backend" validate:"one_of=opencv,mock"`
	Renderer      string     `json:"renderer" validate:"one_of=window,terminal,none"`
	Window        Window     `json:"window"`
	PointCloud    PointCloud `json:"point_cloud"`
	SaveImages    bool       `json:"save_images"`
	Catalog       bool       `json:"catalog"`
	MaxEmptyPolls int        `json:"max_empty_polls" validate:"gte=0"`
	Pipelines     Pipelines  `json:"pipelines"`
	Mock          Mock       `json:"mock"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if badPipelineTemplate(v.Pipelines.Color) {
		return fmt.Errorf(validationErrorHeader, errors.New("color pipeline must contain exactly one %s and one %d"))
	}
	if badPipelineTemplate(v.Pipelines.Depth) {
		return fmt.Errorf(validationErrorHeader, errors.New("depth pipeline must contain exactly one %s and one %d"))
	}
	if v.PointCloud.Format == "ply" && v.PointCloud.Encoding == "binary" {
		return fmt.Errorf(validationErrorHeader, errors.New("ply point clouds are only written as ascii"))
	}
	return nil
}

// badPipelineTemplate reports a malformed pipeline template, empty means use the default.
func badPipelineTemplate(pipeline string) bool {
	if len(pipeline) == 0 {
		return false
	}
	return strings.Count(pipeline, "%s") != 1 || strings.Count(pipeline, "%d") != 1
}
