// Package domain defines the core types shared by the OPay client, the
// settings stores, and the settings API.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SettingsName is the namespace under which the OPay settings are stored.
const SettingsName = "opay.settings"

// Settings keys.
const (
	KeyToken      = "token"
	KeyMerchantID = "merchant_id"
	KeyAPIURI     = "api_uri"
)

// SettingsKeys lists every settings key in storage order.
var SettingsKeys = []string{KeyToken, KeyMerchantID, KeyAPIURI}

// ErrInvalidCredentials is wrapped by every credential validation error.
var ErrInvalidCredentials = errors.New("invalid OPay credentials")

// Credentials holds the values needed to authenticate against the OPay API.
type Credentials struct {
	Token      string `json:"token"       yaml:"token"`
	MerchantID string `json:"merchant_id" yaml:"merchant_id"`
	BaseURI    string `json:"api_uri"     yaml:"api_uri"`
}

// FieldError reports a single invalid settings field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidCredentials.
func (*FieldError) Unwrap() error {
	return ErrInvalidCredentials
}

// IsValid reports whether token, merchant ID, and base URI are all set.
func (c *Credentials) IsValid() bool {
	return c != nil && c.Token != "" && c.MerchantID != "" && c.BaseURI != ""
}

// Validate returns one *FieldError per missing field, joined. It returns
// nil when the credentials are complete.
func (c *Credentials) Validate() error {
	if c == nil {
		c = &Credentials{}
	}

	var errs []error
	if c.Token == "" {
		errs = append(errs, &FieldError{Field: KeyToken, Message: "The token value is not correct."})
	}
	if c.MerchantID == "" {
		errs = append(errs, &FieldError{Field: KeyMerchantID, Message: "The Merchant ID value is not correct."})
	}
	if c.BaseURI == "" {
		errs = append(errs, &FieldError{Field: KeyAPIURI, Message: "The API Uri value is not correct."})
	}

	return errors.Join(errs...)
}

// FieldErrors extracts the *FieldError values from an error returned by
// Validate, looking through any wrapping.
func FieldErrors(err error) []*FieldError {
	var out []*FieldError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case nil:
		case *FieldError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

// Get returns the value stored under a settings key, or "" for unknown keys.
func (c *Credentials) Get(key string) string {
	switch key {
	case KeyToken:
		return c.Token
	case KeyMerchantID:
		return c.MerchantID
	case KeyAPIURI:
		return c.BaseURI
	default:
		return ""
	}
}

// Set assigns a settings key. Unknown keys are ignored and reported false.
func (c *Credentials) Set(key, value string) bool {
	switch key {
	case KeyToken:
		c.Token = value
	case KeyMerchantID:
		c.MerchantID = value
	case KeyAPIURI:
		c.BaseURI = value
	default:
		return false
	}
	return true
}

// MaskedToken returns the token with everything but the last four
// characters replaced by asterisks.
func (c *Credentials) MaskedToken() string {
	return Mask(c.Token)
}

// Mask hides all but the last four characters of s.
func Mask(s string) string {
	const visible = 4
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
