package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/xerror"
)

const (
	vendorName     = "tacusci"
	appName        = "rgbdplay"
	configFileName = "config.json"
)

var fs afero.Fs = afero.NewOsFs()

func load() (configdef.Values, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}
	return loadFrom(configPath)
}

func loadFrom(configPath string) (configdef.Values, error) {
	values := defaultValues()

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("No config file at %s, using defaults", configPath)
			return values, nil
		}
		return configdef.Values{}, err
	}

	if err := unmarshal(file, &values); err != nil {
		return configdef.Values{}, err
	}

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(content []byte, values *configdef.Values) error {
	err := json.Unmarshal(content, values)
	if err != nil {
		return pkgerrors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}

func resolveConfigPath() (string, error) {
	configPath := os.Getenv("RGBDPLAY_CONFIG")
	if len(configPath) > 0 {
		return configPath, nil
	}

	configParentDir, err := userConfigDir()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s location: %w", configFileName, err)
	}

	return filepath.Join(
		configParentDir,
		vendorName,
		appName,
		configFileName), nil
}

var userConfigDir = func() (string, error) {
	return os.UserConfigDir()
}
