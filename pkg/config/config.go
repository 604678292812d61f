package config

import (
	"github.com/tauraamui/rgbdplay/internal/config"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
)

type CreateResolver interface {
	configdef.CreateResolver
}

func DefaultCreateResolver() CreateResolver {
	return config.DefaultCreateResolver()
}
