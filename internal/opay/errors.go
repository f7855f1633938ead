package opay

import (
	"fmt"
)

const maxErrorBody = 512

// TransportError reports a call that did not produce a 2xx response:
// the request could not be sent, the response could not be read, or the
// API answered with an error status. StatusCode is 0 when no response
// was received.
type TransportError struct {
	Method     Method
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("OPay API %s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("OPay API %s %s (status %d): %v", e.Method, e.URL, e.StatusCode, e.Err)
	}

	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("OPay API %s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
