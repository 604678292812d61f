package config

import (
	"github.com/tauraamui/rgbdplay/internal/config"
	"github.com/tauraamui/rgbdplay/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}

// ResolverFor returns the default resolver, or one bound to path when set.
func ResolverFor(path string) Resolver {
	if len(path) > 0 {
		return config.ResolverAt(path)
	}
	return DefaultResolver()
}
