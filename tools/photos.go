// Product photo delivery tool.
//
// Looks up product photos in the catalog and pushes them to the client's
// messenger through the image gateway. Dispatch is fire-and-forget: a gateway
// failure is counted as "missing" for reporting, never retried and never
// surfaced as a tool error.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ToolNameShowProductPhotos is the registered name of the photo delivery
// tool. It also appears verbatim in persisted tool-call records.
const ToolNameShowProductPhotos = "ShowProductPhotos"

// PhotoCatalog resolves a product to its photo URL.
// An empty URL with a nil error means the product has no photo.
type PhotoCatalog interface {
	PhotoURL(ctx context.Context, productTitle, supplierName string) (string, error)
}

// ShowProductPhotos sends product photos to a client over the image gateway.
type ShowProductPhotos struct {
	BaseTool
	catalog    PhotoCatalog
	client     *http.Client
	gatewayURL string
}

// NewShowProductPhotos creates the photo delivery tool.
func NewShowProductPhotos(catalog PhotoCatalog, gatewayURL string, timeout time.Duration) *ShowProductPhotos {
	return &ShowProductPhotos{
		catalog: catalog,
		client: &http.Client{
			Timeout: timeout,
		},
		gatewayURL: gatewayURL,
	}
}

// Metadata returns the tool metadata.
func (t *ShowProductPhotos) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolNameShowProductPhotos,
		Description: "Отправляет клиенту фотографии указанных товаров в мессенджер",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"products": map[string]interface{}{
					"type":        "array",
					"description": "Товары, фотографии которых нужно отправить",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"product_title": map[string]interface{}{
								"type":        "string",
								"description": "Точное название товара",
							},
							"supplier_name": map[string]interface{}{
								"type":        "string",
								"description": "Название поставщика товара",
							},
						},
					},
				},
				"phone_number": map[string]interface{}{
					"type":        "string",
					"description": "Номер телефона клиента, которому отправить фотографии",
				},
			},
			"required": []string{"products", "phone_number"},
		},
	}
}

type photoRequestItem struct {
	ProductTitle string `json:"product_title"`
	SupplierName string `json:"supplier_name"`
}

type photoArgs struct {
	Products    []photoRequestItem `json:"products"`
	PhoneNumber string             `json:"phone_number"`
}

type sendImageRequest struct {
	Recipient string `json:"recipient"`
	ImageURL  string `json:"image_url"`
	Caption   string `json:"caption"`
}

// Validate validates the arguments.
func (t *ShowProductPhotos) Validate(args json.RawMessage) error {
	var a photoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.PhoneNumber == "" {
		return fmt.Errorf("phone_number cannot be empty")
	}
	return nil
}

// Execute looks up and dispatches each photo, then returns a summary string
// partitioning the inputs into delivered and missing.
func (t *ShowProductPhotos) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a photoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if a.PhoneNumber == "" {
		return FailureResultf("phone_number cannot be empty"), nil
	}

	var delivered, missing []string
	for _, item := range a.Products {
		url, err := t.catalog.PhotoURL(ctx, item.ProductTitle, item.SupplierName)
		if err != nil {
			log.Warn().Err(err).Str("product", item.ProductTitle).Msg("photo lookup failed")
			missing = append(missing, item.ProductTitle)
			continue
		}
		if url == "" {
			missing = append(missing, item.ProductTitle)
			continue
		}

		if err := t.dispatch(ctx, sendImageRequest{
			Recipient: a.PhoneNumber,
			ImageURL:  url,
			Caption:   item.ProductTitle,
		}); err != nil {
			log.Warn().Err(err).Str("product", item.ProductTitle).Msg("image dispatch failed")
			missing = append(missing, item.ProductTitle)
			continue
		}
		delivered = append(delivered, item.ProductTitle)
	}

	return SuccessResult(photoSummary(delivered, missing)), nil
}

// dispatch posts one image to the gateway. Fire-and-forget: the response body
// is ignored, only transport and status failures are reported.
func (t *ShowProductPhotos) dispatch(ctx context.Context, payload sendImageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// photoSummary renders the delivered/missing partition for the LLM and logs.
func photoSummary(delivered, missing []string) string {
	if len(delivered) == 0 && len(missing) == 0 {
		return "Нет товаров для отправки фотографий."
	}

	var parts []string
	if len(delivered) > 0 {
		parts = append(parts, "Фотографии отправлены: "+strings.Join(delivered, ", ")+".")
	}
	if len(missing) > 0 {
		parts = append(parts, "Без фото: "+strings.Join(missing, ", ")+".")
	}
	return strings.Join(parts, " ")
}

// Verify ShowProductPhotos implements Tool
var _ Tool = (*ShowProductPhotos)(nil)
