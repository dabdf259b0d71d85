package reply

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

var (
	ErrUnavailable = errors.New("completion service unavailable")
	ErrTimeout     = errors.New("completion timed out")
	ErrEmpty       = errors.New("empty completion")
)

type CompletionRequest struct {
	Message string
	// History is the compact context line built from recent exchanges.
	History string
	UserID  string
	RoomID  string
}

// Completion produces raw model text for a message.
type Completion interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// classify tags err with ErrUnavailable or ErrTimeout when it is a refused
// connection or a deadline, leaving other errors as they are.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return err
	case isTimeout(err):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case isConnectionRefused(err):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Some SDKs flatten transport errors into strings.
	return strings.Contains(err.Error(), "Client.Timeout exceeded") ||
		strings.Contains(err.Error(), "context deadline exceeded")
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return strings.Contains(err.Error(), "connection refused")
}
