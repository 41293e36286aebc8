package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

// RepairOutcome classifies one structural repair attempt
type RepairOutcome string

const (
	RepairApplied RepairOutcome = "applied"
	RepairSkipped RepairOutcome = "skipped"
	RepairFailed  RepairOutcome = "failed"
)

// ProviderMeta identifies the provider endpoint a request is being repaired for
type ProviderMeta struct {
	ProviderName string `json:"provider_name"`
	EndpointURL  string `json:"endpoint_url"`
	DisplayName  string `json:"display_name"`
}

const (
	repairFunctionName        = "submit_repaired_request"
	repairFunctionDescription = "Submit the request data reshaped to match the target provider schema."
	repairSystemPrompt        = "You reshape API request data so it matches a provider's expected parameter schema. " +
		"Keep every value from the current data, rename and restructure keys as the target schema requires, " +
		"and never copy schema definitions into the data. Always answer by calling " + repairFunctionName + "."
)

var repairBuckets = []string{"body", "headers", "parameters", "query"}

// repairParameters is the JSON schema of the repair function's arguments
var repairParameters = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"body":       map[string]interface{}{"type": "object", "description": "JSON body sent to the provider"},
		"headers":    map[string]interface{}{"type": "object", "description": "Header names to string values", "additionalProperties": map[string]interface{}{"type": "string"}},
		"parameters": map[string]interface{}{"type": "object", "description": "Path or identity parameters"},
		"query":      map[string]interface{}{"type": "object", "description": "Query string parameters"},
	},
	"required":             repairBuckets,
	"additionalProperties": false,
}

// noopRepairer never changes a request
type noopRepairer struct{}

// NewNoopRepairer returns a repairer that passes requests through unchanged
func NewNoopRepairer() StructuralRepairer {
	return noopRepairer{}
}

func (noopRepairer) Repair(ctx context.Context, req models.TransformedRequest, meta ProviderMeta, schema models.ParameterSchema) (models.TransformedRequest, RepairOutcome) {
	return req, RepairSkipped
}

// repairCall asks an external model for the repaired request and returns the raw function arguments
type repairCall func(ctx context.Context, prompt string) ([]byte, error)

// modelRepairer holds the fail-open flow shared by every external model backend
type modelRepairer struct {
	backend string
	timeout time.Duration
	logger  *logger.Logger
	call    repairCall
}

// Repair returns the model's reshaped request, or req unchanged on any failure
func (r *modelRepairer) Repair(ctx context.Context, req models.TransformedRequest, meta ProviderMeta, schema models.ParameterSchema) (result models.TransformedRequest, outcome RepairOutcome) {
	log := r.logger.WithProvider(meta.ProviderName).WithField("repair_backend", r.backend)

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Warn("Structural repair panicked, using mapped request")
			result, outcome = req, RepairFailed
		}
	}()

	prompt, err := BuildRepairPrompt(req, meta, schema)
	if err != nil {
		log.WithError(err).Warn("Failed to build repair prompt, using mapped request")
		return req, RepairFailed
	}

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	raw, err := r.call(callCtx, prompt)
	if err != nil {
		log.WithError(err).Warn("Structural repair call failed, using mapped request")
		return req, RepairFailed
	}

	repaired, err := ParseRepairResult(raw)
	if err != nil {
		log.WithError(err).Warn("Structural repair returned an unusable result, using mapped request")
		return req, RepairFailed
	}

	log.Debug("Structural repair applied")
	return repaired, RepairApplied
}

// BuildRepairPrompt renders the instruction sent to the external model. Current values and
// the target schema are placed in separate, labelled sections.
func BuildRepairPrompt(req models.TransformedRequest, meta ProviderMeta, schema models.ParameterSchema) (string, error) {
	current, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode current data: %w", err)
	}
	target, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode target schema: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Provider: %s\n", meta.ProviderName)
	if meta.DisplayName != "" {
		fmt.Fprintf(&b, "Endpoint: %s\n", meta.DisplayName)
	}
	fmt.Fprintf(&b, "Endpoint URL: %s\n\n", meta.EndpointURL)
	b.WriteString("CURRENT DATA (actual values to send; reshape these):\n")
	b.Write(current)
	b.WriteString("\n\nTARGET SCHEMA (definition of the expected shape; do not return it as data):\n")
	b.Write(target)
	b.WriteString("\n\nReturn the current data reshaped to the target schema with exactly the keys body, headers, parameters and query.")
	return b.String(), nil
}

// ParseRepairResult decodes the model's function arguments. All four buckets must be present;
// a bucket wrapped as {"data": {...}} or {"bodyKind": ..., "data": {...}} is unwrapped.
func ParseRepairResult(raw []byte) (models.TransformedRequest, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return models.TransformedRequest{}, fmt.Errorf("invalid repair result: %w", err)
	}

	buckets := make(map[string]map[string]interface{}, len(repairBuckets))
	for _, name := range repairBuckets {
		value, ok := decoded[name]
		if !ok {
			return models.TransformedRequest{}, fmt.Errorf("repair result is missing %q", name)
		}
		bucket, err := unwrapBucket(value)
		if err != nil {
			return models.TransformedRequest{}, fmt.Errorf("repair result %q: %w", name, err)
		}
		buckets[name] = bucket
	}

	result := models.NewTransformedRequest()
	result.Body = buckets["body"]
	result.Parameters = buckets["parameters"]
	result.Query = buckets["query"]
	for key, value := range buckets["headers"] {
		result.Headers[key] = stringifyValue(value)
	}
	return result, nil
}

func unwrapBucket(value interface{}) (map[string]interface{}, error) {
	if value == nil {
		return map[string]interface{}{}, nil
	}
	bucket, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", value)
	}
	inner, ok := bucket["data"].(map[string]interface{})
	if !ok {
		return bucket, nil
	}
	// {"data": ...} alone, or the schema-shaped {"bodyKind": ..., "data": ...}
	_, hasKind := bucket["bodyKind"]
	if len(bucket) == 1 || (len(bucket) == 2 && hasKind) {
		return inner, nil
	}
	return bucket, nil
}

// NewOpenAIRepairer repairs requests with OpenAI chat completions and a forced function call
func NewOpenAIRepairer(cfg config.RepairConfig, httpClient *http.Client, logger *logger.Logger) StructuralRepairer {
	options := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		options = append(options, openaioption.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		options = append(options, openaioption.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(options...)
	model := cfg.Model

	call := func(ctx context.Context, prompt string) ([]byte, error) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(repairSystemPrompt),
				openai.UserMessage(prompt),
			},
			Tools: []openai.ChatCompletionToolParam{{
				Function: openai.FunctionDefinitionParam{
					Name:        repairFunctionName,
					Description: openai.String(repairFunctionDescription),
					Parameters:  openai.FunctionParameters(repairParameters),
				},
			}},
			ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
				OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
					Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: repairFunctionName},
				},
			},
		}
		if cfg.MaxTokens > 0 {
			params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
		}

		completion, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, errors.Wrap(err, "openai repair request failed")
		}
		if len(completion.Choices) == 0 {
			return nil, errors.New("openai repair returned no choices")
		}
		for _, toolCall := range completion.Choices[0].Message.ToolCalls {
			if toolCall.Function.Name == repairFunctionName {
				return []byte(toolCall.Function.Arguments), nil
			}
		}
		return nil, errors.New("openai repair returned no function call")
	}

	return &modelRepairer{
		backend: "openai",
		timeout: time.Duration(cfg.Timeout) * time.Second,
		logger:  logger,
		call:    call,
	}
}

// NewAnthropicRepairer repairs requests with Anthropic messages and a forced tool use
func NewAnthropicRepairer(cfg config.RepairConfig, httpClient *http.Client, logger *logger.Logger) StructuralRepairer {
	options := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		options = append(options, anthropicoption.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		options = append(options, anthropicoption.WithHTTPClient(httpClient))
	}
	client := anthropic.NewClient(options...)
	model := cfg.Model
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	call := func(ctx context.Context, prompt string) ([]byte, error) {
		message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			System:    []anthropic.TextBlockParam{{Text: repairSystemPrompt}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
			Tools: []anthropic.ToolUnionParam{{
				OfTool: &anthropic.ToolParam{
					Name:        repairFunctionName,
					Description: anthropic.String(repairFunctionDescription),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: repairParameters["properties"],
					},
				},
			}},
			ToolChoice: anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{Name: repairFunctionName},
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, "anthropic repair request failed")
		}
		for _, block := range message.Content {
			if block.Type == "tool_use" && block.Name == repairFunctionName {
				return []byte(block.Input), nil
			}
		}
		return nil, errors.New("anthropic repair returned no tool use")
	}

	return &modelRepairer{
		backend: "anthropic",
		timeout: time.Duration(cfg.Timeout) * time.Second,
		logger:  logger,
		call:    call,
	}
}

// NewStructuralRepairer selects the repair backend from configuration. Without a
// credential, or when disabled, requests pass through unchanged.
func NewStructuralRepairer(cfg *config.Config, logger *logger.Logger) StructuralRepairer {
	repair := cfg.Repair
	if !repair.Enabled || strings.TrimSpace(repair.APIKey) == "" {
		logger.Info("Structural repair disabled")
		return NewNoopRepairer()
	}

	switch strings.ToLower(repair.Backend) {
	case "anthropic":
		return NewAnthropicRepairer(repair, nil, logger)
	case "openai", "":
		return NewOpenAIRepairer(repair, nil, logger)
	default:
		logger.WithField("backend", repair.Backend).Warn("Unknown repair backend, structural repair disabled")
		return NewNoopRepairer()
	}
}
