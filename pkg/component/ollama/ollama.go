// Package ollama provides an Ollama API client for embedding generation.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
	ollamaopts "github.com/kart-io/sentinel-kb/pkg/options/ollama"
	"github.com/kart-io/sentinel-kb/pkg/resilience"
)

// Client is an Ollama API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	opts       *ollamaopts.Options
}

// New creates a new Ollama client.
func New(opts *ollamaopts.Options) *Client {
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

// EmbedRequest is the request body for embedding.
type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbedResponse is the response from embedding.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings for the given texts. Transport failures come
// back as collaborator-unavailable, deadline hits as embedding-timeout, so
// the caller can tell retryable failures from bad requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(EmbedRequest{
		Model: c.opts.EmbedModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, kberrors.ErrEmbeddingTimeout.WithCause(err)
		}
		return nil, kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, kberrors.ErrCollaboratorUnavailable.WithMessagef(
				"embed request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
		}
		return nil, fmt.Errorf("embed request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var embedResp EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	return embedResp.Embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *Client) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// doRequestWithRetry 带退避重试请求,每次重试前通过 GetBody 重建请求体。
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	attempt := 0
	err := resilience.Retry(req.Context(), &resilience.RetryConfig{
		MaxAttempts:  c.opts.MaxRetries + 1,
		InitialDelay: 500 * time.Millisecond,
		Multiplier:   2,
	}, func() error {
		if attempt > 0 && req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return berr
			}
			req.Body = body
		}
		attempt++

		var derr error
		resp, derr = c.httpClient.Do(req)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// getJSON 发起 GET 请求并把 200 响应解码到 out。out 为 nil 时只检查状态码。
func (c *Client) getJSON(ctx context.Context, path, op string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed with status %d", op, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// Ping checks if the Ollama server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.getJSON(ctx, "/api/tags", "ping", nil)
}

// ListModels lists all available models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", "list models", &result); err != nil {
		return nil, err
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = m.Name
	}
	return models, nil
}
