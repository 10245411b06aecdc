package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WaSenderConfig configures the WaSender gateway client.
type WaSenderConfig struct {
	APIBase string // e.g. https://www.wasenderapi.com
	APIKey  string
	GroupID string // destination JID used when Message.Destination is empty
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
}

// WaSender delivers documents through the WaSender HTTP API in two steps:
// upload the PDF to get a public URL, then send a document message that
// references it.
type WaSender struct {
	cfg    WaSenderConfig
	client *http.Client
	logger *slog.Logger
}

func NewWaSender(cfg WaSenderConfig, logger *slog.Logger) *WaSender {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &WaSender{cfg: cfg, client: client, logger: logger}
}

func (w *WaSender) Send(ctx context.Context, pdf []byte, msg Message) error {
	reqID := uuid.New().String()
	filename := msg.Filename
	if filename == "" {
		filename = fmt.Sprintf("Orden_Compra_%s.pdf", msg.OrderNumber)
	}
	dest := msg.Destination
	if dest == "" {
		dest = w.cfg.GroupID
	}
	if dest == "" {
		return &Error{Step: "send", Err: fmt.Errorf("no destination configured")}
	}

	start := time.Now()
	publicURL, err := w.upload(ctx, pdf, filename)
	if err != nil {
		return &Error{Step: "upload", Err: err}
	}
	w.logger.Info("notify.upload.ok", "req_id", reqID, "filename", filename, "bytes", len(pdf))

	if err := w.sendDocument(ctx, dest, publicURL, filename, caption(msg)); err != nil {
		return &Error{Step: "send", Err: err}
	}
	w.logger.Info("notify.send.ok",
		"req_id", reqID,
		"order_number", msg.OrderNumber,
		"destination", dest,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// upload posts the PDF as multipart form data and returns the public URL
// the gateway assigns to it.
func (w *WaSender) upload(ctx context.Context, pdf []byte, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.APIBase+"/api/upload", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer drain(resp.Body, w.logger)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}

	var out struct {
		PublicURL string `json:"publicUrl"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	u := out.PublicURL
	if u == "" {
		u = out.URL
	}
	if u == "" {
		return "", fmt.Errorf("upload response carries no public url")
	}
	return u, nil
}

func (w *WaSender) sendDocument(ctx context.Context, to, documentURL, filename, text string) error {
	payload, err := json.Marshal(map[string]string{
		"to":          to,
		"text":        text,
		"documentUrl": documentURL,
		"fileName":    filename,
	})
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.APIBase+"/api/send-message", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body, w.logger)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

func caption(msg Message) string {
	currency := msg.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("Orden de Compra %s\nProveedor: %s\nTotal: %s %s",
		msg.OrderNumber, msg.Supplier, currency, msg.Total.StringFixed(2))
}

func drain(body io.ReadCloser, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		logger.Warn("notify.response_body_close_error", "error", err)
	}
}
