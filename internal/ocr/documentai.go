package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"snaplens/internal/reduce"
)

// DocumentAIConfig configures the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // e.g. "us" or "eu"
	ProcessorID string
}

// DocumentAIClient implements TextExtractor using a Google Document AI OCR
// processor over raw JPEG images.
type DocumentAIClient struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
}

// NewDocumentAIClient creates a Document AI extractor with credentials from
// the environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: ProjectID and ProcessorID in the config.
func NewDocumentAIClient(ctx context.Context, config DocumentAIConfig) (*DocumentAIClient, error) {
	const op = "NewDocumentAIClient"

	if config.ProjectID == "" {
		return nil, NewOCRError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, NewOCRError(op, ErrMissingCredentials, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "us" // Default location
	}

	var clientOptions []option.ClientOption

	// Set regional endpoint if not us-central1
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIClient{
		client: client,
		config: config,
	}, nil
}

// NewDocumentAIClientWithClient creates an extractor with explicit config and
// client (for testing).
func NewDocumentAIClientWithClient(config DocumentAIConfig, client *documentai.DocumentProcessorClient) *DocumentAIClient {
	return &DocumentAIClient{
		client: client,
		config: config,
	}
}

// ExtractText submits the encoded JPEG as a raw document to the OCR processor
// and returns the document text.
func (d *DocumentAIClient) ExtractText(ctx context.Context, payload *reduce.Payload) (*Result, error) {
	const op = "ExtractText"
	startTime := time.Now()

	if payload == nil || payload.Size() == 0 {
		return nil, WrapOCRError(op, ErrEmptyPayload, "")
	}
	if payload.Size() > MaxInlineImageBytes {
		return nil, NewOCRError(op, ErrBadStatus, fmt.Sprintf("payload size %d exceeds inline limit", payload.Size()))
	}

	req := &documentaipb.ProcessRequest{
		Name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  payload.Data,
				MimeType: "image/jpeg",
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, NewOCRError(op, ErrServiceUnavailable, err.Error())
	}

	doc := resp.GetDocument()
	if doc == nil {
		return nil, NewOCRError(op, ErrMalformedResponse, "response contained no document")
	}

	return &Result{
		Text:               strings.TrimSpace(doc.GetText()),
		Provider:           "documentai",
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(startTime),
	}, nil
}

// Close releases the underlying gRPC connection.
func (d *DocumentAIClient) Close() error {
	return d.client.Close()
}
