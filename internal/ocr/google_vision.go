package ocr

import (
	"context"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"snaplens/internal/reduce"
)

// MaxInlineImageBytes is the maximum inline image size accepted by the
// Google providers (20MB).
const MaxInlineImageBytes = 20 * 1024 * 1024

// GoogleVisionClient implements TextExtractor using Google Cloud Vision
// text detection.
type GoogleVisionClient struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionClient creates a Vision-backed extractor with credentials
// from the environment. It expects either GOOGLE_APPLICATION_CREDENTIALS path
// or GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionClient(ctx context.Context) (*GoogleVisionClient, error) {
	const op = "NewGoogleVisionClient"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionClient{client: client}, nil
}

// NewGoogleVisionClientWithClient creates an extractor with an explicit
// client (for testing).
func NewGoogleVisionClientWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionClient {
	return &GoogleVisionClient{client: client}
}

// ExtractText runs Vision text detection over the encoded JPEG payload.
func (g *GoogleVisionClient) ExtractText(ctx context.Context, payload *reduce.Payload) (*Result, error) {
	const op = "ExtractText"
	startTime := time.Now()

	if payload == nil || payload.Size() == 0 {
		return nil, WrapOCRError(op, ErrEmptyPayload, "")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: payload.Data},
				Features: []*visionpb.Feature{
					{
						Type:       visionpb.Feature_TEXT_DETECTION,
						MaxResults: 1,
					},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, NewOCRError(op, ErrServiceUnavailable, err.Error())
	}

	if len(resp.GetResponses()) == 0 {
		return nil, NewOCRError(op, ErrMalformedResponse, "empty annotation response")
	}

	annotation := resp.GetResponses()[0]
	if apiErr := annotation.GetError(); apiErr != nil {
		return nil, NewOCRError(op, ErrBadStatus, apiErr.GetMessage())
	}

	text := strings.TrimSpace(annotation.GetFullTextAnnotation().GetText())

	return &Result{
		Text:               text,
		Provider:           "google-vision",
		ProcessedAt:        time.Now(),
		ProcessingDuration: time.Since(startTime),
	}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleVisionClient) Close() error {
	return g.client.Close()
}
