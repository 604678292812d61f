package config

import (
	"github.com/tauraamui/rgbdplay/internal/config"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
