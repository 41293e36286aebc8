package models

import "fmt"

// Control fields select the provider and endpoint and are never forwarded
const (
	ControlFieldProvider         = "provider"
	ControlFieldProviderFunction = "provider_function"
	FieldModel                   = "model"

	// AutoModel lets the catalog pick the default provider, endpoint and model
	AutoModel = "auto"
)

// GatewayRequest is the selection part of an inbound canonical request
type GatewayRequest struct {
	Provider         string `json:"provider" validate:"required_unless=Model auto"`
	ProviderFunction string `json:"provider_function" validate:"required_unless=Model auto"`
	Model            string `json:"model" validate:"required"`

	// Body is the full inbound JSON object, control fields included
	Body map[string]interface{} `json:"-"`
}

// IsAuto reports whether the catalog should choose the route
func (r GatewayRequest) IsAuto() bool {
	return r.Model == AutoModel
}

// ParseGatewayRequest extracts the selection fields from an inbound body.
// Non-string selection fields are rejected.
func ParseGatewayRequest(body map[string]interface{}) (GatewayRequest, error) {
	req := GatewayRequest{Body: body}
	if body == nil {
		req.Body = map[string]interface{}{}
		return req, nil
	}

	targets := map[string]*string{
		ControlFieldProvider:         &req.Provider,
		ControlFieldProviderFunction: &req.ProviderFunction,
		FieldModel:                   &req.Model,
	}
	for key, dst := range targets {
		raw, ok := body[key]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return req, fmt.Errorf("field '%s' must be a string", key)
		}
		*dst = s
	}
	return req, nil
}
