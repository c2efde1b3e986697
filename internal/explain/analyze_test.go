package explain_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/internal/explain"
)

func TestExplainReturnsResult(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"This is an invoice reference."}`))
	}))
	defer server.Close()

	client := explain.NewAnalyzeClientWithHTTPClient(server.URL, server.Client())

	explanation, err := client.Explain(context.Background(), "Invoice #123")
	require.NoError(t, err)

	assert.Equal(t, "This is an invoice reference.", explanation)
	assert.Equal(t, "/api/analyze", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Invoice #123", gotBody["text"])
}

func TestExplainFallsBackWhenResultAbsent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing result", `{}`},
		{"null result", `{"result":null}`},
		{"empty result", `{"result":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := explain.NewAnalyzeClientWithHTTPClient(server.URL, server.Client())

			explanation, err := client.Explain(context.Background(), "some text")
			require.NoError(t, err, "an absent result is a successful-but-empty outcome")
			assert.Equal(t, explain.FallbackMessage, explanation)
		})
	}
}

func TestExplainBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := explain.NewAnalyzeClientWithHTTPClient(server.URL, server.Client())

	_, err := client.Explain(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrBadStatus)
}

func TestExplainMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>surprise</html>"))
	}))
	defer server.Close()

	client := explain.NewAnalyzeClientWithHTTPClient(server.URL, server.Client())

	_, err := client.Explain(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrMalformedResponse)
}

func TestExplainServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := explain.NewAnalyzeClientWithHTTPClient(baseURL, &http.Client{})

	_, err := client.Explain(context.Background(), "some text")
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrServiceUnavailable)
}

func TestNewAnalyzeClientRequiresBaseURL(t *testing.T) {
	_, err := explain.NewAnalyzeClient("", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrMissingBaseURL)
}
