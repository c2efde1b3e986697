package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"snaplens/internal/logger"
	"snaplens/internal/reduce"
)

const (
	// DefaultOCRSpaceEndpoint is the OCR.space synchronous parse endpoint.
	DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

	// DefaultHTTPTimeout bounds a single OCR submission.
	DefaultHTTPTimeout = 30 * time.Second

	// dataURIPrefix is prepended to the base64 payload as required by the
	// base64Image form field.
	dataURIPrefix = "data:image/jpeg;base64,"
)

// ocrSpaceResponse mirrors the subset of the OCR.space response we consume.
type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
}

// OCRSpaceClient implements TextExtractor against the OCR.space HTTP API.
type OCRSpaceClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOCRSpaceClient creates a client for the OCR.space parse endpoint. The
// API key is required; the endpoint defaults to the public service when empty.
func NewOCRSpaceClient(apiKey, endpoint string, timeout time.Duration) (*OCRSpaceClient, error) {
	const op = "NewOCRSpaceClient"

	if apiKey == "" {
		return nil, WrapOCRError(op, ErrMissingAPIKey, "")
	}
	if endpoint == "" {
		endpoint = DefaultOCRSpaceEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	return &OCRSpaceClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.WithComponent("ocr-space"),
	}, nil
}

// NewOCRSpaceClientWithHTTPClient creates a client with an explicit HTTP
// client (for testing).
func NewOCRSpaceClientWithHTTPClient(apiKey, endpoint string, httpClient *http.Client) *OCRSpaceClient {
	return &OCRSpaceClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        logger.WithComponent("ocr-space"),
	}
}

// ExtractText base64-encodes the payload, submits it as a multipart form and
// parses the extracted text out of the JSON response. A single attempt is
// made; there is no retry.
func (c *OCRSpaceClient) ExtractText(ctx context.Context, payload *reduce.Payload) (*Result, error) {
	const op = "ExtractText"
	startTime := time.Now()

	if payload == nil || payload.Size() == 0 {
		return nil, WrapOCRError(op, ErrEmptyPayload, "")
	}

	if payload.BestEffort {
		c.log.Warn().
			Int("bytes", payload.Size()).
			Msg("submitting best-effort payload over the size ceiling")
	}

	body, contentType, err := c.buildForm(payload.Data)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to build multipart form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to build request")
	}
	req.Header.Set("Content-Type", contentType)

	c.log.Debug().
		Str("endpoint", c.endpoint).
		Int("payload_bytes", payload.Size()).
		Msg("submitting image for OCR")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewOCRError(op, ErrServiceUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewOCRError(op, ErrBadStatus, fmt.Sprintf("status %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewOCRError(op, ErrMalformedResponse, err.Error())
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewOCRError(op, ErrMalformedResponse, err.Error())
	}

	// Absent or empty ParsedResults is the valid "no text found" outcome,
	// not a failure.
	text := ""
	if len(parsed.ParsedResults) > 0 {
		text = strings.TrimSpace(parsed.ParsedResults[0].ParsedText)
	}

	result := &Result{
		Text:               text,
		Provider:           "ocrspace",
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(startTime),
	}

	c.log.Info().
		Int("text_length", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR extraction completed")

	return result, nil
}

// buildForm writes the apikey and base64Image multipart fields.
func (c *OCRSpaceClient) buildForm(data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("apikey", c.apiKey); err != nil {
		return nil, "", err
	}

	encoded := dataURIPrefix + base64.StdEncoding.EncodeToString(data)
	if err := writer.WriteField("base64Image", encoded); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}
