package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"waypoint/internal/domain"
)

// JSONCodec handles JSON snapshots
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Decode parses a snapshot from JSON
func (c *JSONCodec) Decode(r io.Reader) (domain.ResolutionState, error) {
	var state domain.ResolutionState
	if err := json.NewDecoder(r).Decode(&state); err != nil {
		return domain.ResolutionState{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return state, nil
}

// Encode writes an indented JSON snapshot
func (c *JSONCodec) Encode(state domain.ResolutionState, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(state); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
