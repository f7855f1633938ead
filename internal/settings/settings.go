// Package settings stores the OPay credentials and exposes them to the API
// client as a read-only key-value provider. Stores are interchangeable:
// every backend implements Store, and Snapshot turns any Store into a
// Provider.
package settings

import (
	"context"
	"fmt"

	domain "github.com/donaldgifford/opay/pkg/types"
)

// Provider is a read-only key-value view over the settings. Missing keys
// return "".
type Provider interface {
	Get(key string) string
}

// Store persists the OPay credentials.
type Store interface {
	Load(ctx context.Context) (*domain.Credentials, error)
	Save(ctx context.Context, creds *domain.Credentials) error
	Ping(ctx context.Context) error
	Close()
}

// Map is a static Provider backed by a map.
type Map map[string]string

// Get returns the value for key.
func (m Map) Get(key string) string {
	return m[key]
}

// CredentialsFrom reads the three OPay settings from p.
func CredentialsFrom(p Provider) *domain.Credentials {
	return &domain.Credentials{
		Token:      p.Get(domain.KeyToken),
		MerchantID: p.Get(domain.KeyMerchantID),
		BaseURI:    p.Get(domain.KeyAPIURI),
	}
}

// credentialsProvider adapts loaded credentials to Provider.
type credentialsProvider struct {
	creds domain.Credentials
}

func (p credentialsProvider) Get(key string) string {
	return p.creds.Get(key)
}

// Snapshot loads the current credentials from s and returns them as a
// Provider. Later writes to s are not reflected.
func Snapshot(ctx context.Context, s Store) (Provider, error) {
	creds, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return credentialsProvider{creds: *creds}, nil
}

// validateForSave runs the settings form checks before a write.
func validateForSave(creds *domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("validating settings: %w", err)
	}
	return nil
}

// Seed saves creds to s when s does not already hold valid credentials.
// It reports whether a write happened. Incomplete creds are never written.
func Seed(ctx context.Context, s Store, creds *domain.Credentials) (bool, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading settings: %w", err)
	}
	if current.IsValid() || !creds.IsValid() {
		return false, nil
	}
	if err := s.Save(ctx, creds); err != nil {
		return false, fmt.Errorf("seeding settings: %w", err)
	}
	return true, nil
}
