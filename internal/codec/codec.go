// Package codec renders and parses resolution snapshots.
package codec

import (
	"fmt"
	"io"

	"waypoint/internal/domain"
)

// Codec converts a ResolutionState to and from a wire format
type Codec interface {
	Encode(state domain.ResolutionState, w io.Writer) error
	Decode(r io.Reader) (domain.ResolutionState, error)
	Format() string
	ContentType() string
}

// ForFormat returns the codec registered under name
func ForFormat(name string) (Codec, error) {
	switch name {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", name)
	}
}
