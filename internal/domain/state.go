package domain

import "time"

// ResolutionState is the authoritative answer handed to callers
type ResolutionState struct {
	Endpoint   Endpoint   `json:"endpoint" yaml:"endpoint"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
	Generation uint64     `json:"generation" yaml:"generation"`
	ResolvedAt time.Time  `json:"resolved_at" yaml:"resolved_at"`
	// Provisional is set while a background pass may still replace the answer
	Provisional bool `json:"provisional" yaml:"provisional"`
}

// BaseURL is a shortcut for Endpoint.BaseURL
func (s ResolutionState) BaseURL() string {
	return s.Endpoint.BaseURL()
}
