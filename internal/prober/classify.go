package prober

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"waypoint/internal/domain"
)

// Classify maps a transport error to an ErrorKind and a wrapped sentinel
func Classify(err error) (domain.ErrorKind, error) {
	if err == nil {
		return domain.ErrorKindNone, nil
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		return domain.ErrorKindDNS, fmt.Errorf("%w: %v", domain.ErrProbeDNS, err)
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return domain.ErrorKindTimeout, fmt.Errorf("%w: %v", domain.ErrProbeTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return domain.ErrorKindRefused, fmt.Errorf("%w: %v", domain.ErrProbeRefused, err)
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return domain.ErrorKindRefused, fmt.Errorf("%w: %v", domain.ErrProbeRefused, err)
	default:
		return domain.ErrorKindUnknown, err
	}
}

// StatusError describes a non-200 health response
func StatusError(code int) error {
	return fmt.Errorf("%w: status %d", domain.ErrProbeProtocol, code)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
