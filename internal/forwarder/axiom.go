// internal/forwarder/axiom.go
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ThourayaBchir/elb-lambda-axiom/internal/models"
)

// DefaultAxiomURL is the public Axiom API endpoint.
const DefaultAxiomURL = "https://api.axiom.co"

// StatusError is returned by AxiomSink when the ingest endpoint answers with
// a non-success status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ingest returned status %d", e.Code)
}

// AxiomSink sends record batches to an Axiom dataset ingest endpoint, one
// JSON array per call, authenticated with a bearer token.
type AxiomSink struct {
	baseURL string
	dataset string
	token   string
	client  *http.Client
}

// NewAxiomSink creates a sink for the named dataset. An empty baseURL falls
// back to DefaultAxiomURL, a nil client to http.DefaultClient; callers own
// timeouts via the client or the request context.
func NewAxiomSink(baseURL, dataset, token string, client *http.Client) *AxiomSink {
	if baseURL == "" {
		baseURL = DefaultAxiomURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AxiomSink{baseURL: baseURL, dataset: dataset, token: token, client: client}
}

// Send posts one batch. The response body is drained and discarded; only the
// status code decides success.
func (s *AxiomSink) Send(ctx context.Context, batch []models.Record) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/v1/datasets/%s/ingest", s.baseURL, s.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ingest request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post batch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
