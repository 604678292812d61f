package snapshot

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/tauraamui/rgbdplay/pkg/catalog"
	"github.com/tauraamui/rgbdplay/pkg/intrinsics"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/rgbdplay/pkg/pointcloud"
	"github.com/tauraamui/rgbdplay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"go.uber.org/multierr"
)

const (
	colorDir = "color"
	depthDir = "depth"
)

// Recorder is the part of the catalog the writer needs.
type Recorder interface {
	Record(catalog.Snapshot) error
}

type Options struct {
	Dir        string
	Intrinsics intrinsics.Intrinsics
	Format     string
	Encoding   pointcloud.PCDType
	PointCloud pointcloud.Options
	SaveImages bool
	Session    string
	Recording  string
	Catalog    Recorder
}

// Shot describes the files written for one snapshot.
type Shot struct {
	Index     int
	FileName  string
	Points    int
	ColorFile string
	DepthFile string
}

type Writer struct {
	opts Options
}

func NewWriter(opts Options) (*Writer, error) {
	if len(opts.Format) == 0 {
		opts.Format = "pcd"
	}
	if opts.Format != "pcd" && opts.Format != "ply" {
		return nil, xerror.Errorf("unsupported point cloud format %q", opts.Format)
	}
	if opts.PointCloud.DepthScale <= 0 {
		opts.PointCloud = pointcloud.DefaultOptions()
	}

	if opts.SaveImages {
		for _, sub := range []string{colorDir, depthDir} {
			if err := fs.MkdirAll(filepath.Join(opts.Dir, sub), os.ModePerm|os.ModeDir); err != nil {
				return nil, xerror.Errorf("unable to create %s image directory: %w", sub, err)
			}
		}
	}
	return &Writer{opts: opts}, nil
}

// FileName is the point cloud file name for frame index.
func (w *Writer) FileName(index int) string {
	return fmt.Sprintf("%05d.%s", index, w.opts.Format)
}

// Snapshot writes frame and returns the point cloud file name.
func (w *Writer) Snapshot(index int, frame videoframe.Frame) (string, error) {
	shot, err := w.Write(index, frame)
	if err != nil {
		return "", err
	}
	log.Debug("Snapshot %s holds %d points", shot.FileName, shot.Points)
	return shot.FileName, nil
}

// Write back-projects frame with the exported intrinsics and stores it
// as <dir>/%05d.<ext>. A failed snapshot leaves none of its files behind.
func (w *Writer) Write(index int, frame videoframe.Frame) (shot Shot, err error) {
	shot = Shot{Index: index, FileName: w.FileName(index)}
	var written []string
	defer func() {
		if err != nil {
			discard(written)
		}
	}()

	col, err := frame.Color()
	if err != nil {
		return shot, xerror.Errorf("unable to read colour image of frame %d: %w", index, err)
	}
	depth, err := frame.Depth()
	if err != nil {
		return shot, xerror.Errorf("unable to read depth image of frame %d: %w", index, err)
	}

	cloud, err := pointcloud.FromRGBD(col, depth, w.opts.Intrinsics, w.opts.PointCloud)
	if err != nil {
		return shot, xerror.Errorf("unable to build point cloud of frame %d: %w", index, err)
	}
	shot.Points = cloud.Size()

	cloudPath := filepath.Join(w.opts.Dir, shot.FileName)
	written = append(written, cloudPath)
	if err := pointcloud.Write(fs, cloudPath, cloud, w.opts.Encoding); err != nil {
		return shot, err
	}

	if w.opts.SaveImages {
		shot.ColorFile = filepath.Join(colorDir, fmt.Sprintf("%05d.jpg", index))
		colorPath := filepath.Join(w.opts.Dir, shot.ColorFile)
		written = append(written, colorPath)
		if err := writeImage(colorPath, col, imaging.JPEG); err != nil {
			return shot, err
		}
		shot.DepthFile = filepath.Join(depthDir, fmt.Sprintf("%05d.png", index))
		depthPath := filepath.Join(w.opts.Dir, shot.DepthFile)
		written = append(written, depthPath)
		if err := writeImage(depthPath, depth.ToGray16(), imaging.PNG); err != nil {
			return shot, err
		}
	}

	if w.opts.Catalog != nil {
		if err := w.opts.Catalog.Record(catalog.Snapshot{
			Session:       w.opts.Session,
			Recording:     w.opts.Recording,
			FrameIndex:    index,
			FileName:      shot.FileName,
			Points:        shot.Points,
			TimestampUsec: frame.Timestamp(),
		}); err != nil {
			return shot, err
		}
	}
	return shot, nil
}

func discard(paths []string) {
	for _, path := range paths {
		if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Unable to remove partial snapshot file %s: %v", path, err)
		}
	}
}

func writeImage(path string, img image.Image, format imaging.Format) (err error) {
	f, err := fs.Create(path)
	if err != nil {
		return xerror.Errorf("unable to create image file %s: %w", path, err)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if err := imaging.Encode(f, img, format); err != nil {
		return xerror.Errorf("unable to encode image file %s: %w", path, err)
	}
	return nil
}
