package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// ErrNotConfigured is returned by the assistant when no API key is set.
var ErrNotConfigured = errors.New("quotation assistant is not configured")

type Drafter interface {
	DraftQuotation(ctx context.Context, request string, catalog Catalog) (*QuotationDraft, error)
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client, model: model}
}

func (a *Agent) DraftQuotation(ctx context.Context, request string, catalog Catalog) (*QuotationDraft, error) {
	prompt := fmt.Sprintf(`You are a sales assistant preparing a price quotation.
Turn the request below into a quotation draft.
Rules:
1. Use ONLY client, product and tax ids from the lists below.
2. Quantities are positive whole numbers.
3. Leave unit_price empty unless the request names a different price.
4. Use tax_id 0 unless the request names a specific tax.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.

%s
Request: %s`, catalog.describe(), request)

	schemaJSON, err := json.Marshal(generateSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "quotation_draft",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A draft price quotation for one client"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	return parseDraft(content, catalog)
}

func parseDraft(content string, catalog Catalog) (*QuotationDraft, error) {
	var draft QuotationDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	draft.Normalize()
	if err := draft.Validate(catalog); err != nil {
		return nil, fmt.Errorf("draft validation failed: %w", err)
	}
	return &draft, nil
}

func generateSchema() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v QuotationDraft
	return reflector.Reflect(v)
}

// NopDrafter stands in when no API key is configured.
type NopDrafter struct{}

func (NopDrafter) DraftQuotation(context.Context, string, Catalog) (*QuotationDraft, error) {
	return nil, ErrNotConfigured
}
