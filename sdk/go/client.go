// Package mvrouter provides a Go client for the MVRouter gateway and its mapping-authoring API
package mvrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one MVRouter deployment
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	version    string
}

// ClientOption represents a client configuration option
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAPIKey sets the caller credential sent as X-API-Key
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithVersion sets the API version
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// NewClient creates a new MVRouter client
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		version: "v1",
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Invoke sends a canonical request through the gateway. The envelope's Data holds the
// provider payload untouched.
func (c *Client) Invoke(ctx context.Context, body map[string]interface{}) (*Envelope, error) {
	var envelope Envelope
	header, err := c.makeRequest(ctx, http.MethodPost, "/gateway", body, &envelope)
	if err != nil {
		return nil, err
	}

	envelope.Route = Route{
		RequestID: header.Get("X-Request-ID"),
		Provider:  header.Get("X-MVRouter-Provider"),
		Endpoint:  header.Get("X-MVRouter-Endpoint"),
		Model:     header.Get("X-MVRouter-Model"),
	}
	return &envelope, nil
}

// ValidateSchema reports parameter names used in more than one category of schema
func (c *Client) ValidateSchema(ctx context.Context, schema json.RawMessage) (*SchemaValidation, error) {
	var result SchemaValidation
	err := c.call(ctx, "/mappings/validate-schema", map[string]interface{}{"schema": schema}, &result)
	return &result, err
}

// CheckTypes reports whether a canonical field of sourceType may feed a provider field of targetType
func (c *Client) CheckTypes(ctx context.Context, sourceType, targetType string) (*TypeCheck, error) {
	var result TypeCheck
	err := c.call(ctx, "/mappings/check-types", map[string]string{
		"source_type": sourceType,
		"target_type": targetType,
	}, &result)
	return &result, err
}

// Compile validates a whole mapping set against both schemas
func (c *Client) Compile(ctx context.Context, providerSchema, canonicalSchema json.RawMessage, records []MappingRecord) (*CompileResult, error) {
	var result CompileResult
	err := c.call(ctx, "/mappings/compile", map[string]interface{}{
		"provider_schema":  providerSchema,
		"canonical_schema": canonicalSchema,
		"records":          records,
	}, &result)
	return &result, err
}

// DetectURLParameters lists the placeholders and query keys of template. When previous is
// set the result also carries the diff against it.
func (c *Client) DetectURLParameters(ctx context.Context, template string, previous *URLParameters) (*URLParametersResult, error) {
	var result URLParametersResult
	err := c.call(ctx, "/mappings/url-parameters", map[string]interface{}{
		"template": template,
		"previous": previous,
	}, &result)
	return &result, err
}

// call posts body and unwraps the envelope's data into result
func (c *Client) call(ctx context.Context, path string, body interface{}, result interface{}) error {
	var envelope Envelope
	if _, err := c.makeRequest(ctx, http.MethodPost, path, body, &envelope); err != nil {
		return err
	}
	if result == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// Private helper methods

func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, envelope *Envelope) (http.Header, error) {
	url := fmt.Sprintf("%s/api/%s%s", c.baseURL, c.version, path)

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(respBody, envelope); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 || !envelope.Success {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error,
			Message:    envelope.Message,
		}
		if len(envelope.Data) > 0 {
			var detail providerErrorData
			if json.Unmarshal(envelope.Data, &detail) == nil {
				apiErr.ProviderStatus = detail.ProviderStatus
				apiErr.ProviderBody = detail.ProviderBody
			}
		}
		return nil, apiErr
	}

	return resp.Header, nil
}
