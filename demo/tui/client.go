package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"atlas/dedup"
)

// AtlasClient is a thin HTTP client for the deduplication API
type AtlasClient struct {
	baseURL string
	client  *http.Client
}

// NewAtlasClient creates a new deduplication API client
func NewAtlasClient(baseURL string) *AtlasClient {
	return &AtlasClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetStatistics fetches corpus-wide duplicate statistics
func (c *AtlasClient) GetStatistics() (*dedup.DuplicateStatistics, error) {
	resp, err := c.client.Get(c.baseURL + "/api/dedup/stats")
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var stats dedup.DuplicateStatistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &stats, nil
}

// RunCleanup triggers a cleanup sweep on the server
func (c *AtlasClient) RunCleanup(dryRun bool, confidenceThreshold float64) (*dedup.CleanupReport, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"dry_run":              dryRun,
		"confidence_threshold": confidenceThreshold,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/api/dedup/cleanup", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to run cleanup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var report dedup.CleanupReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &report, nil
}
