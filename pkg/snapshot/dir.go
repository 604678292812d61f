// Package snapshot owns the output directory of a playback session:
// deciding whether it can be used, exporting the camera intrinsics into
// it and writing point cloud snapshots.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/intrinsics"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/pointcloud"
	"github.com/tauraamui/rgbdplay/pkg/recording"
	"github.com/tauraamui/xerror"
)

const (
	IntrinsicFileName = "intrinsic.json"
	DatasetFileName   = "config.json"
)

var fs = afero.NewOsFs()

// PrepareDir applies the output directory policy and reports whether
// snapshots can be exported. Only a directory this run creates is used,
// an existing one is left alone. The notices go to out, nothing here
// aborts playback.
func PrepareDir(path string, out io.Writer) (string, bool) {
	if len(path) == 0 {
		fmt.Fprintln(out, "No output path, only play mkv")
		return "", false
	}

	if info, err := fs.Stat(path); err == nil && info.IsDir() {
		fmt.Fprintf(out, "Output path %s already existing, only play mkv\n", path)
		return "", false
	}

	if err := fs.Mkdir(path, 0755); err != nil {
		log.Debug("Mkdir %s failed: %v", path, err)
		fmt.Fprintf(out, "Unable to mkdir %s, only play mkv\n", path)
		return "", false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, true
	}
	return abs, true
}

// ExportIntrinsics writes intrinsic.json for the recording into dir and
// reads it back, so snapshots use exactly what consumers of the
// directory will see.
func ExportIntrinsics(dir string, md recording.Metadata) (intrinsics.Intrinsics, error) {
	m, err := md.MetadataFile()
	if err != nil {
		return intrinsics.Intrinsics{}, xerror.Errorf("unable to derive camera intrinsics: %w", err)
	}

	path := filepath.Join(dir, IntrinsicFileName)
	if err := intrinsics.WriteFile(fs, path, m); err != nil {
		return intrinsics.Intrinsics{}, err
	}
	return intrinsics.LoadFile(fs, path)
}

type datasetConfig struct {
	Name          string  `json:"name"`
	PathDataset   string  `json:"path_dataset"`
	PathIntrinsic string  `json:"path_intrinsic"`
	DepthScale    float64 `json:"depth_scale"`
	DepthMax      float64 `json:"depth_max"`
}

// WriteDatasetConfig describes dir as an RGB-D dataset for
// reconstruction tooling.
func WriteDatasetConfig(dir string, opts pointcloud.Options) error {
	config := datasetConfig{
		Name:          filepath.Base(dir),
		PathDataset:   dir,
		PathIntrinsic: filepath.Join(dir, IntrinsicFileName),
		DepthScale:    opts.DepthScale,
		DepthMax:      opts.DepthTrunc,
	}
	data, err := json.MarshalIndent(config, "", "    ")
	if err != nil {
		return xerror.Errorf("unable to encode dataset config: %w", err)
	}

	path := filepath.Join(dir, DatasetFileName)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return xerror.Errorf("unable to write dataset config to %s: %w", path, err)
	}
	return nil
}
