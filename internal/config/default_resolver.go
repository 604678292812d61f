package config

import (
	"github.com/tauraamui/rgbdplay/pkg/configdef"
)

func DefaultResolver() configdef.Resolver {
	return defaultResolver{}
}

type defaultResolver struct{}

func (d defaultResolver) Resolve() (configdef.Values, error) {
	return load()
}

func DefaultCreateResolver() configdef.CreateResolver {
	return defaultCreateResolver{}
}

type defaultCreateResolver struct {
	defaultResolver
	defaultCreator
}

// ResolverAt loads from the given file instead of the resolved location.
func ResolverAt(path string) configdef.Resolver {
	return fileResolver{path: path}
}

type fileResolver struct {
	path string
}

func (f fileResolver) Resolve() (configdef.Values, error) {
	return loadFrom(f.path)
}
