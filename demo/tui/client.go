package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"emarknews/types"
)

// NewsClient is a thin HTTP client for the emarknews API.
type NewsClient struct {
	baseURL string
	client  *http.Client
}

func NewNewsClient(baseURL string) *NewsClient {
	return &NewsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetStatus fetches the per-category pipeline status.
func (c *NewsClient) GetStatus() (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.do(http.MethodGet, "/api/status", &status); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// GetNews fetches a category, from the fast endpoint when fast is set.
func (c *NewsClient) GetNews(category string, fast bool) (*types.CacheEntry, error) {
	path := "/api/news/" + category
	if fast {
		path += "/fast"
	}
	var entry types.CacheEntry
	if err := c.do(http.MethodGet, path, &entry); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", category, err)
	}
	return &entry, nil
}

// Refresh asks the server to run a full cycle now.
func (c *NewsClient) Refresh(category string) (*types.CacheEntry, error) {
	var entry types.CacheEntry
	if err := c.do(http.MethodPost, "/api/admin/refresh/"+category, &entry); err != nil {
		return nil, fmt.Errorf("failed to refresh %s: %w", category, err)
	}
	return &entry, nil
}

func (c *NewsClient) do(method, path string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
