package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMinWords = 25
	defaultMaxWords = 50
)

// HTTPSummarizer calls a summarization inference endpoint speaking the
// Hugging Face pipeline contract: the request carries min/max length bounds
// and disables sampling, so identical input is expected to yield identical
// output. The minimum bound is only a hint to the model; a shorter summary
// is accepted as-is.
type HTTPSummarizer struct {
	endpoint string
	apiKey   string
	minWords int
	maxWords int
	client   *http.Client
}

func NewHTTPSummarizer(endpoint, apiKey string) *HTTPSummarizer {
	return &HTTPSummarizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		minWords: defaultMinWords,
		maxWords: defaultMaxWords,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// Inference API request/response types

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type inferenceResult struct {
	SummaryText string `json:"summary_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	// Inputs already shorter than the minimum bound cannot be meaningfully
	// compressed; pass them through instead of paying for an inference call.
	if len(strings.Fields(text)) <= s.minWords {
		return truncateWords(text, s.maxWords), nil
	}

	reqBody := inferenceRequest{
		Inputs: text,
		Parameters: inferenceParameters{
			MinLength: s.minWords,
			MaxLength: s.maxWords,
			DoSample:  false,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("summarize: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("summarize: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("summarize: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("summarize: API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("summarize: endpoint returned status %d", resp.StatusCode)
	}

	var results []inferenceResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return "", fmt.Errorf("summarize: failed to parse response: %w", err)
	}
	if len(results) == 0 || results[0].SummaryText == "" {
		return "", fmt.Errorf("summarize: empty summary in response")
	}

	return truncateWords(results[0].SummaryText, s.maxWords), nil
}
