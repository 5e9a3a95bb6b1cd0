// Package domain defines the core value types for waypoint's endpoint resolution.
//
// # Core Types
//
// Endpoint is an immutable backend address (scheme, host, port, path prefix)
// rendered as a base URL such as http://192.168.29.2:5000/api/.
//
// Candidate pairs an Endpoint with the Provenance that proposed it (manual
// override, cache, network-range guess, static history, loopback).
//
// ProbeResult is the classified outcome of a single health check.
//
// ResolutionState is the single authoritative answer exposed to callers,
// stamped with the generation token current when it was produced.
//
// DeviceInfo carries best-effort signals about the local network: transport,
// device IP, Wi-Fi name and default gateway.
//
// # Errors
//
// ErrInvalidOverrideFormat is the only error surfaced to operators. Probe errors
// (ErrProbeTimeout, ErrProbeRefused, ErrProbeDNS, ErrProbeProtocol) are internal
// classifications and ErrNoCandidateReachable is soft.
//
// # Design Principles
//
// - Immutable value objects
// - No database or network dependencies
package domain
