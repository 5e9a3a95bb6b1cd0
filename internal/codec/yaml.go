package codec

import (
	"fmt"
	"io"
	"time"

	"waypoint/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML snapshots
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

func (c *YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// yamlState flattens the endpoint so snapshots stay readable by hand
type yamlState struct {
	BaseURL     string `yaml:"base_url"`
	Provenance  string `yaml:"provenance"`
	Generation  uint64 `yaml:"generation"`
	ResolvedAt  string `yaml:"resolved_at,omitempty"`
	Provisional bool   `yaml:"provisional,omitempty"`
}

// Decode parses a snapshot from YAML
func (c *YAMLCodec) Decode(r io.Reader) (domain.ResolutionState, error) {
	var ys yamlState
	if err := yaml.NewDecoder(r).Decode(&ys); err != nil {
		return domain.ResolutionState{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	ep, err := domain.ParseEndpoint(ys.BaseURL)
	if err != nil {
		return domain.ResolutionState{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	state := domain.ResolutionState{
		Endpoint:    ep,
		Provenance:  domain.Provenance(ys.Provenance),
		Generation:  ys.Generation,
		Provisional: ys.Provisional,
	}
	if ys.ResolvedAt != "" {
		state.ResolvedAt, err = time.Parse(time.RFC3339Nano, ys.ResolvedAt)
		if err != nil {
			return domain.ResolutionState{}, fmt.Errorf("invalid resolved_at: %w", err)
		}
	}
	return state, nil
}

// Encode writes a YAML snapshot
func (c *YAMLCodec) Encode(state domain.ResolutionState, w io.Writer) error {
	ys := yamlState{
		BaseURL:     state.BaseURL(),
		Provenance:  string(state.Provenance),
		Generation:  state.Generation,
		Provisional: state.Provisional,
	}
	if !state.ResolvedAt.IsZero() {
		ys.ResolvedAt = state.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(ys); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
