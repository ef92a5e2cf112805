// Package transmit posts aggregates to the ingestion endpoint. Sends
// are best-effort: one POST per aggregate, a bounded timeout, no retry
// and no queuing. A failed send loses that window's data and nothing
// else.
package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/denlab/airnode/pkg/telemetry"
)

// DefaultTimeout bounds one send attempt end to end.
const DefaultTimeout = 10 * time.Second

// Client posts aggregates to a fixed endpoint.
type Client struct {
	endpoint string
	hc       *http.Client
}

// New creates a Client for the given endpoint URL. A zero timeout
// selects DefaultTimeout.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
	}
}

// Send serializes agg and performs one synchronous POST. It fails fast
// when no endpoint is configured, and treats any transport error or
// non-2xx status as a failure. It never buffers the aggregate for a
// later attempt.
func (c *Client) Send(ctx context.Context, agg telemetry.Aggregate) error {
	if c.endpoint == "" {
		return fmt.Errorf("transmit: no ingest endpoint configured")
	}

	body, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("transmit: marshal aggregate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transmit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("transmit: post: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("transmit: endpoint returned %s", resp.Status)
	}

	log.WithFields(log.Fields{
		"status":  resp.StatusCode,
		"samples": agg.SampleCount,
	}).Info("aggregate transmitted")
	return nil
}
