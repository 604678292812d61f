package intrinsics

import (
	"encoding/json"

	"github.com/spf13/afero"
	"github.com/tauraamui/xerror"
)

// MetadataFile is the on-disk layout of intrinsic.json.
type MetadataFile struct {
	ColorMode        string    `json:"color_mode"`
	DepthMode        string    `json:"depth_mode"`
	Height           int       `json:"height"`
	Width            int       `json:"width"`
	IntrinsicMatrix  []float64 `json:"intrinsic_matrix"`
	SerialNumber     string    `json:"serial_number_"`
	StreamLengthUsec int64     `json:"stream_length_usec"`
}

func NewMetadataFile(in Intrinsics) MetadataFile {
	m := in.Matrix()
	return MetadataFile{
		Width:           in.Width,
		Height:          in.Height,
		IntrinsicMatrix: m[:],
	}
}

func (m MetadataFile) Intrinsics() (Intrinsics, error) {
	return FromMatrix(m.Width, m.Height, m.IntrinsicMatrix)
}

func WriteFile(fs afero.Fs, path string, m MetadataFile) error {
	data, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		return xerror.Errorf("unable to encode intrinsics metadata: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return xerror.Errorf("unable to write intrinsics metadata to %s: %w", path, err)
	}
	return nil
}

func ReadFile(fs afero.Fs, path string) (MetadataFile, error) {
	var m MetadataFile
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return m, xerror.Errorf("unable to read intrinsics metadata from %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, xerror.Errorf("unable to parse intrinsics metadata %s: %w", path, err)
	}
	return m, nil
}

// LoadFile reads intrinsic.json and returns validated intrinsics.
func LoadFile(fs afero.Fs, path string) (Intrinsics, error) {
	m, err := ReadFile(fs, path)
	if err != nil {
		return Intrinsics{}, err
	}
	in, err := m.Intrinsics()
	if err != nil {
		return Intrinsics{}, err
	}
	if err := in.CheckValid(); err != nil {
		return Intrinsics{}, err
	}
	return in, nil
}
