package domain

// Provenance records where a candidate or resolved endpoint came from
type Provenance string

// Resolution provenances
const (
	ProvenanceForced  Provenance = "forced"
	ProvenanceManual  Provenance = "manual"
	ProvenanceCache   Provenance = "cache"
	ProvenanceProbed  Provenance = "probed"
	ProvenanceDefault Provenance = "default"
)

// Candidate provenances. ProvenanceManual is shared with resolutions.
const (
	ProvenanceCached       Provenance = "cached"
	ProvenanceNetworkRange Provenance = "network-range"
	ProvenanceStaticList   Provenance = "static-list"
	ProvenanceLoopback     Provenance = "loopback"
)

// Candidate is an endpoint proposed for reachability testing
type Candidate struct {
	Endpoint   Endpoint   `json:"endpoint"`
	Provenance Provenance `json:"provenance"`
}

// NewCandidate creates a candidate with the given origin
func NewCandidate(ep Endpoint, p Provenance) Candidate {
	return Candidate{Endpoint: ep, Provenance: p}
}

func (c Candidate) String() string {
	return string(c.Provenance) + ":" + c.Endpoint.BaseURL()
}
