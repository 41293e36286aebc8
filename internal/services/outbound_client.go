package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ProviderResponse is a successful upstream response
type ProviderResponse struct {
	StatusCode int
	Headers    http.Header
	// Body is the decoded JSON payload, or the raw text when the provider did not answer JSON
	Body interface{}
}

// providerDispatcher implements ProviderDispatcher
type providerDispatcher struct {
	logger  *logger.Logger
	client  *http.Client
	secrets config.SecretLookup
	auth    *ProviderAuthTable
}

// NewProviderDispatcher creates a dispatcher issuing one request per call, without retries
func NewProviderDispatcher(cfg *config.Config, logger *logger.Logger, secrets config.SecretLookup, auth *ProviderAuthTable) ProviderDispatcher {
	timeout := time.Duration(cfg.Dispatch.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &providerDispatcher{
		logger: logger,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: timeout,
		},
		secrets: secrets,
		auth:    auth,
	}
}

// PreparedRequest is an authenticated provider request ready to send
type PreparedRequest struct {
	Provider string
	URL      string
	Headers  http.Header
	Body     []byte
}

// Dispatch authenticates and sends the transformed request to the provider endpoint
func (d *providerDispatcher) Dispatch(ctx context.Context, endpointURL string, req models.TransformedRequest, providerSlug string) (*ProviderResponse, error) {
	prepared, err := d.Prepare(ctx, endpointURL, req, providerSlug)
	if err != nil {
		return nil, err
	}
	return d.Send(ctx, prepared)
}

// Prepare resolves the provider secret, composes the URL and headers and encodes the body
func (d *providerDispatcher) Prepare(ctx context.Context, endpointURL string, req models.TransformedRequest, providerSlug string) (*PreparedRequest, error) {
	secret, ok := d.secrets(providerSlug)
	if !ok {
		return nil, NewNotFoundError("provider secret", config.ProviderSecretEnv(providerSlug))
	}

	target, headers, err := ComposeProviderRequest(endpointURL, req)
	if err != nil {
		return nil, err
	}
	d.auth.Placement(providerSlug).Apply(headers, secret)

	body := req.Body
	if body == nil {
		body = map[string]interface{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, NewBadRequestError("request body cannot be encoded", err)
	}

	return &PreparedRequest{Provider: providerSlug, URL: target, Headers: headers, Body: payload}, nil
}

// Send issues a single POST and classifies the response. Non-2xx answers become PROVIDER_ERROR.
func (d *providerDispatcher) Send(ctx context.Context, prepared *PreparedRequest) (*ProviderResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, prepared.URL, bytes.NewReader(prepared.Body))
	if err != nil {
		return nil, NewConfigurationError("failed to create provider request", errors.WithStack(err))
	}
	httpReq.Header = prepared.Headers.Clone()

	log := d.logger.WithProvider(prepared.Provider).WithField("url", redactURL(prepared.URL))
	log.Debug("Dispatching provider request")

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		log.WithError(err).Error("Provider request failed")
		return nil, NewProviderError(fmt.Sprintf("provider request failed: %v", err), 0, "")
	}
	defer resp.Body.Close()

	raw, err := readProviderBody(resp)
	if err != nil {
		return nil, NewProviderError(fmt.Sprintf("failed to read provider response: %v", err), resp.StatusCode, "")
	}

	log.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Provider responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewProviderError(providerErrorMessage(resp.StatusCode, raw), resp.StatusCode, string(raw))
	}

	return &ProviderResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       decodeProviderBody(raw),
	}, nil
}

// ComposeProviderRequest builds the final URL and headers: path placeholders are filled from
// the parameters bucket, the query bucket is appended, and leftover parameters become headers.
// Header names are canonicalized, so mapped headers override leftover parameters regardless of case.
func ComposeProviderRequest(endpointURL string, req models.TransformedRequest) (string, http.Header, error) {
	template := strings.TrimSpace(endpointURL)
	if template == "" {
		return "", nil, NewConfigurationError("endpoint URL is missing", nil)
	}
	u, err := url.Parse(template)
	if err != nil {
		return "", nil, NewConfigurationError("endpoint URL is invalid", errors.WithStack(err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, NewConfigurationError(fmt.Sprintf("endpoint URL is invalid: %s", template), nil)
	}

	used := make(map[string]bool)
	escapedPath := substitutePath(u.Path, req.Parameters, used)
	unescaped, err := url.PathUnescape(escapedPath)
	if err != nil {
		return "", nil, NewConfigurationError("endpoint URL path is invalid", errors.WithStack(err))
	}
	u.Path = unescaped
	u.RawPath = escapedPath

	if len(req.Query) > 0 {
		query := u.Query()
		for key, value := range req.Query {
			query.Del(key)
			if list, ok := value.([]interface{}); ok {
				for _, item := range list {
					query.Add(key, stringifyValue(item))
				}
				continue
			}
			query.Set(key, stringifyValue(value))
		}
		u.RawQuery = query.Encode()
	}

	headers := http.Header{}
	for name, value := range req.Parameters {
		if used[name] {
			continue
		}
		headers.Set(name, stringifyValue(value))
	}
	for name, value := range req.Headers {
		headers.Set(name, value)
	}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept-Encoding", "br, gzip")
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	return u.String(), headers, nil
}

// substitutePath replaces ":name" segments and "{name}" placeholders with escaped parameter values.
// Placeholders without a value stay in the path, escaped like any other literal text,
// so "{id}" goes out as "%7Bid%7D" and ":id" unchanged.
func substitutePath(path string, params map[string]interface{}, used map[string]bool) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if m := colonPlaceholder.FindStringSubmatch(segment); m != nil {
			if value, ok := params[m[1]]; ok {
				used[m[1]] = true
				segments[i] = url.PathEscape(stringifyValue(value))
				continue
			}
		}

		var b strings.Builder
		last := 0
		for _, loc := range bracePlaceholder.FindAllStringSubmatchIndex(segment, -1) {
			name := segment[loc[2]:loc[3]]
			value, ok := params[name]
			if !ok {
				continue
			}
			used[name] = true
			b.WriteString(url.PathEscape(segment[last:loc[0]]))
			b.WriteString(url.PathEscape(stringifyValue(value)))
			last = loc[1]
		}
		b.WriteString(url.PathEscape(segment[last:]))
		segments[i] = b.String()
	}
	return strings.Join(segments, "/")
}

func readProviderBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

// decodeProviderBody returns parsed JSON, or the text itself when it is not JSON
func decodeProviderBody(raw []byte) interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if gjson.ValidBytes(trimmed) {
		var decoded interface{}
		if err := json.Unmarshal(trimmed, &decoded); err == nil {
			return decoded
		}
	}
	return string(raw)
}

// providerErrorMessage pulls a readable message out of common provider error shapes
func providerErrorMessage(status int, raw []byte) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error.message", "message", "error", "detail"} {
			if result := gjson.GetBytes(raw, path); result.Type == gjson.String && result.String() != "" {
				return fmt.Sprintf("provider returned %d: %s", status, result.String())
			}
		}
	}
	return fmt.Sprintf("provider returned %d %s", status, http.StatusText(status))
}

// redactURL drops the query string, which some providers use for credentials
func redactURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
