package services

import (
	"net/http"
	"strings"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
)

// AuthPlacement describes how a provider expects its credential on the wire
type AuthPlacement struct {
	Header       string
	Scheme       string
	ExtraHeaders map[string]string
}

// Apply writes the credential and any fixed headers into headers, replacing
// same-named headers in any letter case
func (p AuthPlacement) Apply(headers http.Header, secret string) {
	for name, value := range p.ExtraHeaders {
		headers.Set(name, value)
	}
	value := secret
	if p.Scheme != "" {
		value = p.Scheme + " " + secret
	}
	headers.Set(p.Header, value)
}

var bearerPlacement = AuthPlacement{Header: "Authorization", Scheme: "Bearer"}

var defaultAuthPlacements = map[string]AuthPlacement{
	"anthropic": {
		Header:       "x-api-key",
		ExtraHeaders: map[string]string{"anthropic-version": "2023-06-01"},
	},
	"google": {Header: "x-goog-api-key"},
	"gemini": {Header: "x-goog-api-key"},
}

// ProviderAuthTable maps provider slugs to credential placement. Unlisted providers use bearer auth.
type ProviderAuthTable struct {
	placements map[string]AuthPlacement
}

// NewProviderAuthTable builds the table from the built-in rows plus providers.auth configuration
func NewProviderAuthTable(cfg *config.Config) *ProviderAuthTable {
	table := &ProviderAuthTable{placements: make(map[string]AuthPlacement, len(defaultAuthPlacements))}
	for slug, placement := range defaultAuthPlacements {
		table.placements[slug] = placement
	}
	if cfg == nil {
		return table
	}
	for slug, row := range cfg.Providers.Auth {
		placement := AuthPlacement{
			Header:       row.Header,
			Scheme:       row.Scheme,
			ExtraHeaders: row.ExtraHeaders,
		}
		if placement.Header == "" {
			placement.Header = bearerPlacement.Header
			if placement.Scheme == "" {
				placement.Scheme = bearerPlacement.Scheme
			}
		}
		table.placements[strings.ToLower(slug)] = placement
	}
	return table
}

// Placement returns the rule for a provider slug
func (t *ProviderAuthTable) Placement(slug string) AuthPlacement {
	if placement, ok := t.placements[strings.ToLower(strings.TrimSpace(slug))]; ok {
		return placement
	}
	return bearerPlacement
}
