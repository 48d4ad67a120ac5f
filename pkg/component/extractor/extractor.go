// Package extractor provides a client for the content extraction service,
// which fetches and cleans pages and crawls whole sites.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kart-io/sentinel-kb/internal/kb/biz"
	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
	extractoropts "github.com/kart-io/sentinel-kb/pkg/options/extractor"
)

// Client is a content extraction service client.
type Client struct {
	baseURL    string
	pageClient *http.Client
	siteClient *http.Client
	opts       *extractoropts.Options
}

// New creates a new extraction service client.
func New(opts *extractoropts.Options) *Client {
	return &Client{
		baseURL:    opts.BaseURL,
		pageClient: &http.Client{Timeout: opts.Timeout},
		siteClient: &http.Client{Timeout: opts.SiteTimeout},
		opts:       opts,
	}
}

type extractPageRequest struct {
	URL string `json:"url"`
}

type extractPageResponse struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

type extractSiteRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

type extractSiteResponse struct {
	Pages []struct {
		URL     string `json:"url"`
		Content string `json:"content,omitempty"`
		Error   string `json:"error,omitempty"`
	} `json:"pages"`
}

// ExtractPage fetches and cleans a single page.
func (c *Client) ExtractPage(ctx context.Context, url string) (string, error) {
	var out extractPageResponse
	if err := c.post(ctx, c.pageClient, "/v1/extract/page", extractPageRequest{URL: url}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// ExtractSite crawls a website. Pages the crawler could not fetch are
// reported inside the slice with their error; only a failure to reach the
// extraction service itself fails the call.
func (c *Client) ExtractSite(ctx context.Context, url string) ([]biz.ExtractedPage, error) {
	var out extractSiteResponse
	req := extractSiteRequest{URL: url, MaxPages: c.opts.MaxPages}
	if err := c.post(ctx, c.siteClient, "/v1/extract/site", req, &out); err != nil {
		return nil, err
	}

	pages := make([]biz.ExtractedPage, len(out.Pages))
	for i, p := range out.Pages {
		pages[i] = biz.ExtractedPage{URL: p.URL, Content: p.Content, Error: p.Error}
	}
	return pages, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequestWithRetry(client, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return kberrors.ErrTimeout.WithCause(err)
		}
		return kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError {
			return kberrors.ErrCollaboratorUnavailable.WithMessagef(
				"extract request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
		}
		return fmt.Errorf("extract request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode extract response: %w", err)
	}
	return nil
}

func (c *Client) doRequestWithRetry(client *http.Client, req *http.Request) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.opts.MaxRetries; i++ {
		resp, err := client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < c.opts.MaxRetries {
			time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

// Ping checks if the extraction service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}

	resp, err := c.pageClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status %d", resp.StatusCode)
	}
	return nil
}
