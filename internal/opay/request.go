package opay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/donaldgifford/opay/internal/metrics"
)

// Request calls endpoint on the OPay API and returns the decoded JSON
// response unchanged. The target URL is the base URI followed by endpoint
// with no separator handling. A non-empty query replaces the URL's query
// string. A body that is not nil and not an empty object or list is sent
// as JSON.
//
// Failed calls are logged once and returned as *TransportError. A 2xx
// response that is not valid JSON returns the decoding error. An empty
// 2xx body decodes to nil. Numbers decode as json.Number.
func (c *Client) Request(
	ctx context.Context,
	method Method,
	endpoint string,
	query map[string]string,
	body any,
) (any, error) {
	var payload any
	if err := c.RequestInto(ctx, method, endpoint, query, body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// RequestInto is Request with the response decoded into dst.
func (c *Client) RequestInto(
	ctx context.Context,
	method Method,
	endpoint string,
	query map[string]string,
	body any,
	dst any,
) error {
	raw, err := c.send(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	return decode(raw, dst)
}

// Get calls endpoint with GET.
func (c *Client) Get(ctx context.Context, endpoint string, query map[string]string) (any, error) {
	return c.Request(ctx, MethodGet, endpoint, query, nil)
}

// Post calls endpoint with POST and a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, MethodPost, endpoint, nil, body)
}

// Patch calls endpoint with PATCH and a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any) (any, error) {
	return c.Request(ctx, MethodPatch, endpoint, nil, body)
}

// Delete calls endpoint with DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, query map[string]string) (any, error) {
	return c.Request(ctx, MethodDelete, endpoint, query, nil)
}

func (c *Client) send(
	ctx context.Context,
	method Method,
	endpoint string,
	query map[string]string,
	body any,
) ([]byte, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(method))
	}

	target, err := buildURL(c.creds.BaseURI+endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	var bodyReader io.Reader
	if !isEmptyBody(body) {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setAuthHeaders(req.Header)

	start := time.Now()
	resp, err := c.doer.Do(req)
	metrics.APIRequestDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(endpoint, &TransportError{Method: method, URL: target, Err: err})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(endpoint, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.fail(endpoint, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		})
	}

	metrics.APIRequestsTotal.WithLabelValues(string(method), statusClass(resp.StatusCode)).Inc()
	return respBody, nil
}

func (c *Client) setAuthHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+c.creds.Token)
	h.Set("MerchantId", c.creds.MerchantID)
}

// fail records a transport failure and returns it unchanged.
func (c *Client) fail(endpoint string, err *TransportError) error {
	metrics.APITransportErrorsTotal.Inc()
	status := "error"
	if err.StatusCode != 0 {
		status = statusClass(err.StatusCode)
	}
	metrics.APIRequestsTotal.WithLabelValues(string(err.Method), status).Inc()

	c.log.Error("failed to complete OPay API task",
		"error", err.Error(),
		"method", string(err.Method),
		"endpoint", endpoint,
		"status", err.StatusCode,
	)
	return err
}

// buildURL replaces target's query string with query when query is not
// empty. Otherwise target is returned untouched.
func buildURL(target string, query map[string]string) (string, error) {
	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	for k, v := range query {
		params.Set(k, v)
	}
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// isEmptyBody reports whether body should be left off the request.
func isEmptyBody(body any) bool {
	if body == nil {
		return true
	}
	v := reflect.ValueOf(body)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// DecodeBody parses a JSON request body the same way responses are
// parsed: numbers stay json.Number and trailing data is an error. Blank
// input returns nil.
func DecodeBody(raw []byte) (any, error) {
	var body any
	if err := decodeJSON(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}

func decode(raw []byte, dst any) error {
	if err := decodeJSON(raw, dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
