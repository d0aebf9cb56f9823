package concepts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIExtractor implements Extractor against a remote extraction
// endpoint speaking a small JSON protocol.
type APIExtractor struct {
	endpoint    string
	model       string
	apiKey      string
	maxConcepts int
}

// NewAPIExtractor creates an APIExtractor from the given Config.
func NewAPIExtractor(cfg Config) *APIExtractor {
	return &APIExtractor{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxConcepts: cfg.MaxConcepts,
	}
}

type apiRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type apiResponse struct {
	Concepts []string `json:"concepts"`
}

// Extract posts text to the extraction endpoint and normalizes the
// returned phrases.
func (e *APIExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	body, err := json.Marshal(apiRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("concepts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("concepts: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("concepts: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("concepts: API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("concepts: decode response: %w", err)
	}

	return normalizeAll(result.Concepts, e.maxConcepts), nil
}
