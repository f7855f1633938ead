package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/opay/internal/opay"
	"github.com/donaldgifford/opay/internal/settings"
)

// ClientFactory builds an API client from a settings snapshot.
type ClientFactory func(p settings.Provider) opay.API

// RequestHandler forwards a single call to the OPay API using the
// credentials stored at the time of the request.
type RequestHandler struct {
	store     settings.Store
	newClient ClientFactory
}

// NewRequestHandler creates a RequestHandler. The options are applied to
// every client it builds.
func NewRequestHandler(s settings.Store, opts ...opay.Option) *RequestHandler {
	return &RequestHandler{
		store: s,
		newClient: func(p settings.Provider) opay.API {
			return opay.NewClient(p, opts...)
		},
	}
}

// ForwardInput is the request for POST /api/v1/requests.
type ForwardInput struct {
	Body struct {
		Method   string            `json:"method"          example:"POST"                                doc:"HTTP verb, any letter case"`
		Endpoint string            `json:"endpoint"        example:"/api/v1/international/cashier/create" doc:"Path appended to the configured API URI" minLength:"1"`
		Query    map[string]string `json:"query,omitempty" doc:"Query string parameters"`
		Body     json.RawMessage   `json:"body,omitempty"  doc:"JSON request body, any JSON value"`
	}
}

// ForwardOutput is the response for POST /api/v1/requests.
type ForwardOutput struct {
	Body struct {
		Payload any `json:"payload" doc:"Decoded OPay response, null when the response was empty"`
	}
}

// Forward sends the request to the OPay API and returns its payload.
func (h *RequestHandler) Forward(ctx context.Context, input *ForwardInput) (*ForwardOutput, error) {
	method, err := opay.ParseMethod(input.Body.Method)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	// Decoded here rather than by huma so large amounts keep their digits.
	body, err := opay.DecodeBody(input.Body.Body)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid request body: " + err.Error())
	}

	p, err := settings.Snapshot(ctx, h.store)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load settings")
	}

	client := h.newClient(p)
	if !client.IsValid() {
		return nil, huma.Error409Conflict("OPay settings are incomplete")
	}

	payload, err := client.Request(ctx, method, input.Body.Endpoint, input.Body.Query, body)
	if err != nil {
		var te *opay.TransportError
		if errors.As(err, &te) {
			return nil, huma.Error502BadGateway(te.Error())
		}
		return nil, huma.Error502BadGateway("invalid response from OPay API: " + err.Error())
	}

	resp := &ForwardOutput{}
	resp.Body.Payload = payload
	return resp, nil
}

// RegisterRequestRoutes registers the request forwarding endpoint with the
// Huma API.
func RegisterRequestRoutes(api huma.API, h *RequestHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "forward-request",
		Method:      http.MethodPost,
		Path:        "/api/v1/requests",
		Summary:     "Call the OPay API",
		Description: "Sends one request to the OPay API with the stored credentials " +
			"and returns the decoded JSON response.",
		Tags: []string{"opay"},
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
			http.StatusBadGateway,
		},
	}, h.Forward)
}
