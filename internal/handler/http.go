package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lisahq/lisaflow/pkg/api"
)

const maxResponseBytes = 4 << 20

var (
	ErrHTTPRequest = errors.New("http request failed")
	ErrHTTPStatus  = errors.New("http request returned error status")
)

// NewHTTPHandler creates the handler for outbound HTTP call nodes. A nil
// client falls back to http.DefaultClient; per-node timeouts arrive through
// the context
func NewHTTPHandler(client *http.Client) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return func(
		ctx context.Context, node *api.ExecutionNode, inputs api.Values,
	) (api.Values, error) {
		cfg := node.HTTP
		if cfg == nil || cfg.URL == "" {
			return nil, fmt.Errorf("%w: %s", api.ErrHTTPRequired, node.ID)
		}

		method := cfg.Method
		if method == "" {
			method = http.MethodGet
		}

		var body io.Reader
		if cfg.Body != nil {
			payload := cfg.Body.Merge(inputs)
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrEncodeInputs, err)
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for name, value := range cfg.Headers {
			req.Header.Set(name, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHTTPRequest, err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s %s: %d",
				ErrHTTPStatus, method, cfg.URL, resp.StatusCode)
		}

		outputs := api.Values{"status": resp.StatusCode}
		var parsed any
		if json.Unmarshal(data, &parsed) == nil {
			outputs["body"] = parsed
		} else {
			outputs["body"] = string(data)
		}
		return outputs, nil
	}
}
