// Package renderer talks to the PDF rendering worker over NATS request/reply.
//
// The worker stamps a label onto every page of a solution and returns the
// plain copy together with a duplex copy padded to an even page count.
package renderer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// ErrRenderFailed wraps errors reported by the worker itself.
var ErrRenderFailed = errors.New("renderer reported failure")

// Request is the message sent to the worker.
type Request struct {
	Label  string `json:"label"`
	Source []byte `json:"source"`
}

// Response is the worker's reply.
type Response struct {
	Normal []byte `json:"normal"`
	Duplex []byte `json:"duplex"`
	Error  string `json:"error,omitempty"`
}

// Result holds the rendered documents.
type Result struct {
	Normal []byte
	Duplex []byte
}

// Client issues render requests.
type Client struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	logger  zerolog.Logger
}

// New constructs a client bound to a NATS connection.
func New(conn *nats.Conn, subject string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		conn:    conn,
		subject: subject,
		timeout: timeout,
		logger:  logger.With().Str("component", "renderer").Logger(),
	}
}

// Render stamps label onto source and returns both printable variants.
func (c *Client) Render(ctx context.Context, label string, source []byte) (Result, error) {
	if c.conn == nil {
		return Result{}, fmt.Errorf("renderer connection not configured")
	}

	payload, err := EncodeRequest(Request{Label: label, Source: source})
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, c.subject, payload)
	if err != nil {
		return Result{}, fmt.Errorf("render request failed: %w", err)
	}

	result, err := DecodeResponse(msg.Data)
	if err != nil {
		return Result{}, err
	}

	c.logger.Debug().Int("source_bytes", len(source)).Int("normal_bytes", len(result.Normal)).Msg("submission rendered")
	return result, nil
}

// EncodeRequest serialises a render request.
func EncodeRequest(req Request) ([]byte, error) {
	if len(req.Source) == 0 {
		return nil, fmt.Errorf("render source is empty")
	}
	return json.Marshal(req)
}

// DecodeResponse parses the worker reply, surfacing reported failures.
func DecodeResponse(data []byte) (Result, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Result{}, fmt.Errorf("invalid renderer response: %w", err)
	}
	if resp.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrRenderFailed, resp.Error)
	}
	if len(resp.Normal) == 0 || len(resp.Duplex) == 0 {
		return Result{}, fmt.Errorf("renderer response missing documents")
	}
	return Result{Normal: resp.Normal, Duplex: resp.Duplex}, nil
}
