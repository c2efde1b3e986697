package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"snaplens/internal/logger"
)

// analyzePath is the analysis endpoint path under the configured base URL.
const analyzePath = "/api/analyze"

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Result *string `json:"result"`
}

// AnalyzeClient implements Explainer against the snaplens analysis service.
type AnalyzeClient struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewAnalyzeClient creates a client for the analysis service.
func NewAnalyzeClient(baseURL string, timeout time.Duration) (*AnalyzeClient, error) {
	const op = "NewAnalyzeClient"

	if baseURL == "" {
		return nil, WrapExplainError(op, ErrMissingBaseURL, "")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AnalyzeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithComponent("explain-analyze"),
	}, nil
}

// NewAnalyzeClientWithHTTPClient creates a client with an explicit HTTP
// client (for testing).
func NewAnalyzeClientWithHTTPClient(baseURL string, httpClient *http.Client) *AnalyzeClient {
	return &AnalyzeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        logger.WithComponent("explain-analyze"),
	}
}

// Explain issues a single JSON POST to the analysis endpoint. An absent
// result field yields FallbackMessage rather than an error. No retry is
// attempted.
func (c *AnalyzeClient) Explain(ctx context.Context, text string) (string, error) {
	const op = "Explain"
	startTime := time.Now()

	reqBody, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return "", WrapExplainError(op, err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(reqBody))
	if err != nil {
		return "", WrapExplainError(op, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ExplainError{Op: op, Err: ErrServiceUnavailable, Details: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ExplainError{Op: op, Err: ErrBadStatus, Details: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExplainError{Op: op, Err: ErrMalformedResponse, Details: err.Error()}
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ExplainError{Op: op, Err: ErrMalformedResponse, Details: err.Error()}
	}

	if parsed.Result == nil || *parsed.Result == "" {
		c.log.Info().Msg("analysis service returned no result, using fallback")
		return FallbackMessage, nil
	}

	c.log.Info().
		Int("explanation_length", len(*parsed.Result)).
		Dur("duration", time.Since(startTime)).
		Msg("analysis completed")

	return *parsed.Result, nil
}
