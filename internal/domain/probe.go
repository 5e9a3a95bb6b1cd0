package domain

import "time"

// ErrorKind classifies why a probe failed
type ErrorKind string

const (
	ErrorKindNone     ErrorKind = ""
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindRefused  ErrorKind = "refused"
	ErrorKindDNS      ErrorKind = "dns"
	ErrorKindProtocol ErrorKind = "protocol"
	ErrorKindUnknown  ErrorKind = "unknown"
)

// ProbeResult is the outcome of one health check against a candidate
type ProbeResult struct {
	Candidate  Candidate     `json:"candidate"`
	Reachable  bool          `json:"reachable"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Err        error         `json:"-"`
}
