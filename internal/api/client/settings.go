package client

import (
	"context"

	"github.com/donaldgifford/opay/internal/api/handlers"
	domain "github.com/donaldgifford/opay/pkg/types"
)

type settingsRequest struct {
	Token      string `json:"token"`
	MerchantID string `json:"merchant_id"`
	APIURI     string `json:"api_uri"`
}

// GetSettings returns the stored settings. The token is masked by the server.
func (c *Client) GetSettings(ctx context.Context) (*handlers.SettingsBody, error) {
	var s handlers.SettingsBody
	if err := c.get(ctx, "/api/v1/settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings replaces the stored settings.
func (c *Client) UpdateSettings(ctx context.Context, creds *domain.Credentials) (*handlers.SettingsBody, error) {
	req := settingsRequest{
		Token:      creds.Token,
		MerchantID: creds.MerchantID,
		APIURI:     creds.BaseURI,
	}

	var s handlers.SettingsBody
	if err := c.put(ctx, "/api/v1/settings", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SettingsValid reports whether the server holds complete settings.
func (c *Client) SettingsValid(ctx context.Context) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.get(ctx, "/api/v1/settings/status", &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}
