package opay

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupportedMethod is returned for HTTP verbs the client does not send.
var ErrUnsupportedMethod = errors.New("unsupported HTTP method")

// Method is an HTTP verb the client can dispatch.
type Method string

// Supported methods.
const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
)

// ParseMethod maps a verb in any letter case to a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, s)
	}
	return m, nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions:
		return true
	default:
		return false
	}
}

func (m Method) String() string {
	return string(m)
}
