package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gilerojas/orden-compra-app/internal/entity"
)

// SheetAPIConfig configures the hosted sheet gateway client.
type SheetAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
}

// SheetAPI talks JSON over HTTP to the sheet gateway that fronts the cloud
// spreadsheet. Transport errors get a single retry; HTTP error statuses do
// not, since the gateway has already seen the request.
type SheetAPI struct {
	cfg    SheetAPIConfig
	client *http.Client
	logger *slog.Logger
}

func NewSheetAPI(cfg SheetAPIConfig, logger *slog.Logger) *SheetAPI {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SheetAPI{cfg: cfg, client: client, logger: logger}
}

type sheetItem struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type sheetOrder struct {
	OrderNumber     string      `json:"order_number"`
	OrderDate       string      `json:"order_date"`
	Supplier        string      `json:"supplier"`
	SupplierAddress string      `json:"supplier_address,omitempty"`
	TaxID           string      `json:"tax_id,omitempty"`
	Terms           string      `json:"terms,omitempty"`
	Currency        string      `json:"currency"`
	Items           []sheetItem `json:"items"`
	Subtotal        string      `json:"subtotal"`
	Tax             string      `json:"tax"`
	Total           string      `json:"total"`
	Fingerprint     string      `json:"fingerprint"`
}

func (s *SheetAPI) Lookup(ctx context.Context, orderNumber string) (*StoredOrder, error) {
	endpoint := s.cfg.BaseURL + "/v1/orders/" + url.PathEscape(NormalizeOrderNumber(orderNumber))
	resp, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Op: "lookup", Err: err}
	}
	defer discard(resp.Body, s.logger)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode/100 != 2:
		return nil, &Error{Op: "lookup", Err: fmt.Errorf("non-2xx status: %d", resp.StatusCode)}
	}

	var body struct {
		OrderNumber string `json:"order_number"`
		Fingerprint string `json:"fingerprint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Op: "lookup", Err: fmt.Errorf("decode response: %w", err)}
	}
	return &StoredOrder{
		OrderNumber: body.OrderNumber,
		Fingerprint: strings.TrimSpace(body.Fingerprint),
	}, nil
}

func (s *SheetAPI) Append(ctx context.Context, rec *entity.OrderRecord, fp string) error {
	payload := sheetOrder{
		OrderNumber:     rec.OrderNumber,
		OrderDate:       rec.OrderDate.Format("2006-01-02"),
		Supplier:        rec.Supplier,
		SupplierAddress: rec.SupplierAddress,
		TaxID:           rec.TaxID,
		Terms:           rec.Terms,
		Currency:        rec.Currency,
		Subtotal:        rec.Subtotal.StringFixed(2),
		Tax:             rec.Tax.StringFixed(2),
		Total:           rec.Total.StringFixed(2),
		Fingerprint:     fp,
	}
	for _, it := range rec.Items {
		payload.Items = append(payload.Items, sheetItem{
			Description: it.Description,
			Quantity:    it.Quantity.StringFixed(2),
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal.StringFixed(2),
		})
	}
	bs, err := json.Marshal(payload)
	if err != nil {
		return &Error{Op: "append", Err: fmt.Errorf("encode json: %w", err)}
	}

	resp, err := s.do(ctx, http.MethodPost, s.cfg.BaseURL+"/v1/orders", bs)
	if err != nil {
		return &Error{Op: "append", Err: err}
	}
	defer discard(resp.Body, s.logger)

	if resp.StatusCode/100 != 2 {
		return &Error{Op: "append", Err: fmt.Errorf("non-2xx status: %d", resp.StatusCode)}
	}
	s.logger.Info("store.append.ok",
		"order_number", rec.OrderNumber,
		"rows", len(rec.Items),
		"fingerprint", fp,
	)
	return nil
}

// do sends one request, retrying once on transport failure.
func (s *SheetAPI) do(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if s.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		}

		resp, err := s.client.Do(req)
		if err == nil {
			s.logger.Info("store.http.response",
				"req_id", reqID,
				"method", method,
				"status", resp.StatusCode,
				"attempt", attempt+1,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return resp, nil
		}
		lastErr = err
		s.logger.Warn("store.http.send_error", "req_id", reqID, "method", method, "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func discard(body io.ReadCloser, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		logger.Warn("store.http.response_body_close_error", "error", err)
	}
}
