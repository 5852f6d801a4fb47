package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// mapProvider loads dotted keys ("proxy.redis_auth") given on the command
// line. Read unflattens them into nested maps.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("confloader: map provider has no byte form")
}

func (m mapProvider) Read() (map[string]any, error) {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return maps.Unflatten(cp, "."), nil
}
