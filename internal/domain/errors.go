package domain

import "errors"

var (
	// ErrNoCandidateReachable means a discovery pass found nothing alive. It is
	// never fatal: callers fall back to the cached or default endpoint.
	ErrNoCandidateReachable = errors.New("no candidate reachable")

	// ErrInvalidOverrideFormat is returned for malformed operator overrides
	ErrInvalidOverrideFormat = errors.New("invalid override format")

	ErrProbeTimeout  = errors.New("probe timed out")
	ErrProbeRefused  = errors.New("connection refused")
	ErrProbeDNS      = errors.New("dns lookup failed")
	ErrProbeProtocol = errors.New("unexpected health response")
)
