package solana

import (
	"errors"
	"fmt"
)

// ErrTransport matches any RPC call that failed after exhausting retries.
var ErrTransport = errors.New("solana rpc transport failure")

// TransportError is returned when an RPC call keeps failing at the HTTP level.
type TransportError struct {
	Method   string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: max retries exceeded after %d attempts: %v", e.Method, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) true for every TransportError.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RPCError is a JSON-RPC 2.0 error object returned by the node. The client
// returns it without retrying; IsRetryable decides for callers.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}
