package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds one delivery attempt when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response body is kept in StatusError.
const maxErrorBody = 4096

// ErrTransportUnavailable is returned when delivery is requested from an
// exporter that has no HTTP transport.
var ErrTransportUnavailable = errors.New("export: no HTTP transport available")

// StatusError reports a non-2xx response from the cohort endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("export: cohort delivery failed with status %d", e.StatusCode)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures cohort delivery.
type Config struct {
	// URL receives the POST. Empty means build the payload only.
	URL string

	// Token, when set, is sent as a bearer token.
	Token string

	Timeout time.Duration
}

// Exporter posts cohort payloads.
type Exporter struct {
	cfg    Config
	client Doer
}

// NewExporter creates an exporter. A nil client leaves the exporter without
// a transport: payloads can still be built, deliveries fail with
// ErrTransportUnavailable.
func NewExporter(cfg Config, client Doer) *Exporter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Exporter{cfg: cfg, client: client}
}

// NewHTTPExporter creates an exporter backed by an *http.Client using cfg.Timeout.
func NewHTTPExporter(cfg Config) *Exporter {
	e := NewExporter(cfg, nil)
	e.client = &http.Client{Timeout: e.cfg.Timeout}
	return e
}

// Delivers reports whether Export will POST.
func (e *Exporter) Delivers() bool {
	return e.cfg.URL != ""
}

// Export posts payload when a URL is configured. Without a URL it is a no-op
// and returns nil, so callers can always hand back the payload.
func (e *Exporter) Export(ctx context.Context, payload CohortPayload) error {
	if e.cfg.URL == "" {
		return nil
	}
	if e.client == nil {
		return ErrTransportUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("export: encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("export: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("export: post cohort: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
