package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"freelance-billing/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/shopspring/decimal"
)

// QuoteDrafter turns a free-text client request into suggested quote lines.
type QuoteDrafter interface {
	DraftQuote(ctx context.Context, requestText string) (*QuoteDraft, error)
}

// DraftItem is one suggested line. Amounts are strings so the model cannot
// introduce float rounding.
type DraftItem struct {
	Title           string `json:"title" jsonschema_description:"Short name of the deliverable"`
	Price           string `json:"price" jsonschema_description:"Price before discount as a decimal string, e.g. \"450.00\""`
	DiscountPercent string `json:"discount_percent" jsonschema_description:"Discount from 0 to 100 as a decimal string, \"0\" for none"`
}

// QuoteDraft is the structured output of the drafter. It is a suggestion only and
// must go through CreateQuote before anything is stored.
type QuoteDraft struct {
	Items      []DraftItem `json:"items" jsonschema_description:"Suggested line items"`
	TaxRate    string      `json:"tax_rate" jsonschema_description:"Tax as a fraction, e.g. \"0.07\" for 7%"`
	Reasoning  string      `json:"reasoning" jsonschema_description:"Why these items and prices were chosen"`
	Confidence float64     `json:"confidence" jsonschema_description:"Confidence between 0.0 and 1.0"`
}

// LineItems converts the draft into validated core line items and tax rate.
func (d *QuoteDraft) LineItems() ([]core.LineItem, decimal.Decimal, error) {
	items := make([]core.LineItem, 0, len(d.Items))
	for i, it := range d.Items {
		price, err := decimal.NewFromString(strings.TrimSpace(it.Price))
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item %d: invalid price %q: %w", i+1, it.Price, err)
		}
		discount := decimal.Zero
		if s := strings.TrimSpace(it.DiscountPercent); s != "" {
			if discount, err = decimal.NewFromString(s); err != nil {
				return nil, decimal.Zero, fmt.Errorf("item %d: invalid discount %q: %w", i+1, it.DiscountPercent, err)
			}
		}
		items = append(items, core.LineItem{Title: it.Title, Price: price, DiscountPercent: discount})
	}

	taxRate := decimal.Zero
	if s := strings.TrimSpace(d.TaxRate); s != "" {
		var err error
		if taxRate, err = decimal.NewFromString(s); err != nil {
			return nil, decimal.Zero, fmt.Errorf("invalid tax rate %q: %w", d.TaxRate, err)
		}
	}

	if err := core.ValidateItems(items, taxRate); err != nil {
		return nil, decimal.Zero, err
	}
	return items, taxRate, nil
}

// Drafter is the OpenAI-backed QuoteDrafter.
type Drafter struct {
	client *openai.Client
	model  string
}

// NewDrafter creates a Drafter using model (gpt-4o when empty).
func NewDrafter(apiKey, model string) *Drafter {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4o)
	}
	return &Drafter{client: &client, model: model}
}

func (d *Drafter) DraftQuote(ctx context.Context, requestText string) (*QuoteDraft, error) {
	requestText = strings.TrimSpace(requestText)
	if requestText == "" {
		return nil, &core.ValidationError{Field: "text", Reason: "request text is required"}
	}

	schemaMap, err := draftSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(d.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(draftPrompt(requestText)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "quote_draft",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Suggested line items for a freelance quote"),
				},
			},
		},
	}

	resp, err := d.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var draft QuoteDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if _, _, err := draft.LineItems(); err != nil {
		return nil, fmt.Errorf("draft validation failed: %w", err)
	}
	return &draft, nil
}

func draftPrompt(requestText string) string {
	return fmt.Sprintf(`You are an experienced freelance consultant preparing a quote.
Read the client request below and propose line items.
Rules:
1. One line per distinct deliverable, with a short title.
2. Prices and discounts are decimal strings with at most two decimals.
3. Discounts are percentages between 0 and 100; use "0" when none applies.
4. tax_rate is a fraction ("0.07" means 7%%); use "0" if the request gives no hint.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.

Client request: %s`, requestText)
}

// draftSchema reflects QuoteDraft into the map form the Responses API expects.
func draftSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&QuoteDraft{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
