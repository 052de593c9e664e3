package jobclient

import "fmt"

// ValidationError means the job service refused the payload.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("job service rejected request: HTTP %d: %s", e.StatusCode, e.Message)
}

// TransportError wraps a network failure talking to the job service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means the service answered with something other than the
// documented shape. Consumers treat it like a TransportError.
type ProtocolError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected response HTTP %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Detail)
}
