package unicom

import "fmt"

// TransportError is a failure to reach the provider: connection errors, TLS
// failures, and timeouts.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a response the provider sent but that cannot be used: a
// non-2xx status, an undecodable body, a non-success code, or an empty payload.
type ProtocolError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: protocol: %s: %v", e.Endpoint, e.Message, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s: protocol: %s (code %q)", e.Endpoint, e.Message, e.Code)
	default:
		return fmt.Sprintf("%s: protocol: %s", e.Endpoint, e.Message)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }
