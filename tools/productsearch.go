// Product search augmentation tool.
//
// Delegates the user's free-text request to the vector retrieval client and
// serializes the ranked products as text for the model's follow-up call.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToolNameEnhanceProductQuery is the registered name of the search
// augmentation tool. It also appears verbatim in persisted tool-call records.
const ToolNameEnhanceProductQuery = "EnhanceUserProductQuery"

// ProductRetriever returns products ranked by semantic similarity, nearest
// first. Rows never contain vector-typed columns.
type ProductRetriever interface {
	Nearest(ctx context.Context, query string, k int) ([]map[string]any, error)
}

// EnhanceProductQuery retrieves products matching the user's request.
type EnhanceProductQuery struct {
	BaseTool
	retriever ProductRetriever
	topK      int
}

// NewEnhanceProductQuery creates the search augmentation tool.
func NewEnhanceProductQuery(retriever ProductRetriever, topK int) *EnhanceProductQuery {
	if topK <= 0 {
		topK = 10
	}
	return &EnhanceProductQuery{
		retriever: retriever,
		topK:      topK,
	}
}

// Metadata returns the tool metadata.
func (t *EnhanceProductQuery) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolNameEnhanceProductQuery,
		Description: "Ищет в каталоге товары, подходящие под запрос пользователя",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"request": map[string]interface{}{
					"type":        "string",
					"description": "Запрос пользователя о товарах своими словами",
				},
			},
			"required": []string{"request"},
		},
	}
}

type searchArgs struct {
	Request string `json:"request"`
}

// Validate validates the arguments.
func (t *EnhanceProductQuery) Validate(args json.RawMessage) error {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Request == "" {
		return fmt.Errorf("request cannot be empty")
	}
	return nil
}

// Execute retrieves the ranked products and returns them as text.
func (t *EnhanceProductQuery) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a searchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if a.Request == "" {
		return FailureResultf("request cannot be empty"), nil
	}

	products, err := t.retriever.Nearest(ctx, a.Request, t.topK)
	if err != nil {
		return FailureResult(fmt.Errorf("product search failed: %w", err)), nil
	}
	if len(products) == 0 {
		return SuccessResult("Подходящих товаров не найдено."), nil
	}

	return SuccessResult(FormatProducts(products)), nil
}

// FormatProducts renders product rows as a numbered text list with stable
// column order.
func FormatProducts(products []map[string]any) string {
	var b strings.Builder
	for i, product := range products {
		fmt.Fprintf(&b, "%d. ", i+1)

		keys := make([]string, 0, len(product))
		for key := range product {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, key := range keys {
			fields = append(fields, fmt.Sprintf("%s: %v", key, product[key]))
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Verify EnhanceProductQuery implements Tool
var _ Tool = (*EnhanceProductQuery)(nil)
