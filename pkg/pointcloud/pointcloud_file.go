package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
	"go.uber.org/multierr"
)

// PCDType is the data encoding of a pcd file.
type PCDType int

const (
	PCDAscii PCDType = iota
	PCDBinary
)

// ParsePCDType maps the encoding names used in configuration.
func ParsePCDType(name string) (PCDType, error) {
	switch strings.ToLower(name) {
	case "", "ascii":
		return PCDAscii, nil
	case "binary":
		return PCDBinary, nil
	}
	return PCDAscii, xerror.Errorf("unknown point cloud encoding %q", name)
}

func colorToPCDInt(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// ToPCD writes the cloud as a PCD v0.7 file.
func ToPCD(cloud *PointCloud, out io.Writer, outputType PCDType) error {
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n")
	if err != nil {
		return err
	}
	if cloud.MetaData().HasColor {
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(),
		1,
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
	case PCDAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
	default:
		return xerror.Errorf("unsupported pcd type %d", outputType)
	}
	if err != nil {
		return err
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud *PointCloud, out io.Writer, pcdtype PCDType) error {
	var err error
	hasColor := cloud.MetaData().HasColor
	buf := make([]byte, 16)
	cloud.Iterate(func(p r3.Vector, c color.NRGBA) bool {
		switch pcdtype {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			if hasColor {
				binary.LittleEndian.PutUint32(buf[12:], colorToPCDInt(c))
				_, err = out.Write(buf)
			} else {
				_, err = out.Write(buf[:12])
			}
		case PCDAscii:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", p.X, p.Y, p.Z, colorToPCDInt(c))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
			}
		}
		return err == nil
	})
	return err
}

// ToPLY writes the cloud as an ascii PLY file.
func ToPLY(cloud *PointCloud, out io.Writer) error {
	hasColor := cloud.MetaData().HasColor

	header := "ply\n" +
		"format ascii 1.0\n" +
		fmt.Sprintf("element vertex %d\n", cloud.Size()) +
		"property float x\n" +
		"property float y\n" +
		"property float z\n"
	if hasColor {
		header += "property uchar red\n" +
			"property uchar green\n" +
			"property uchar blue\n"
	}
	header += "end_header\n"
	if _, err := io.WriteString(out, header); err != nil {
		return err
	}

	var err error
	cloud.Iterate(func(p r3.Vector, c color.NRGBA) bool {
		if hasColor {
			_, err = fmt.Fprintf(out, "%f %f %f %d %d %d\n", p.X, p.Y, p.Z, c.R, c.G, c.B)
		} else {
			_, err = fmt.Fprintf(out, "%f %f %f\n", p.X, p.Y, p.Z)
		}
		return err == nil
	})
	return err
}

// Write picks the file format from the extension of path.
func Write(fs afero.Fs, path string, cloud *PointCloud, encoding PCDType) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pcd" && ext != ".ply" {
		return xerror.Errorf("unsupported point cloud file extension %q", ext)
	}

	f, err := fs.Create(path)
	if err != nil {
		return xerror.Errorf("unable to create point cloud file %s: %w", path, err)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	switch ext {
	case ".pcd":
		err = ToPCD(cloud, w, encoding)
	case ".ply":
		err = ToPLY(cloud, w)
	}
	if err != nil {
		return xerror.Errorf("unable to write point cloud file %s: %w", path, err)
	}
	return w.Flush()
}
