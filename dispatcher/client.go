package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// client is the configuration shared by both send strategies. It is never
// modified after the builder returns it.
type client struct {
	url        string
	authHeader string
	userAgent  string
	http       *http.Client
	logger     *slog.Logger
}

// encode is the single serialization path for outgoing messages.
func encode(p *payload.Payload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return body, nil
}

func (c *client) newRequest(ctx context.Context, p *payload.Payload) (*http.Request, error) {
	body, err := encode(p)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if p.Markdown {
		req.Header.Set("Markdown", "yes")
	}
	return req, nil
}

// send performs exactly one request/response exchange.
func (c *client) send(ctx context.Context, p *payload.Payload) error {
	req, err := c.newRequest(ctx, p)
	if err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "publishing message", slog.String("url", c.url), slog.Any("payload", p))

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if err := ClassifyStatus(resp.StatusCode); err != nil {
		return err
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(text) == 0 {
		return &StatusError{StatusCode: resp.StatusCode, Err: ErrEmptyResponse}
	}
	return nil
}
