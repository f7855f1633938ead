package client

import (
	"context"
	"encoding/json"
)

// ForwardRequest is one OPay API call for the server to perform.
type ForwardRequest struct {
	Method   string            `json:"method"`
	Endpoint string            `json:"endpoint"`
	Query    map[string]string `json:"query,omitempty"`
	Body     any               `json:"body,omitempty"`
}

// Forward asks the server to call the OPay API and returns the raw
// response payload.
func (c *Client) Forward(ctx context.Context, req *ForwardRequest) (json.RawMessage, error) {
	var resp struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.post(ctx, "/api/v1/requests", req, &resp); err != nil {
		return nil, err
	}
	return resp.Payload, nil
}
