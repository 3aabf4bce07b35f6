package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Index defines the interface for the search index boundary
type Index interface {
	// EnsureIndex creates the index if it does not exist. Check-then-create:
	// idempotent when the index exists, not atomic under concurrent creators.
	EnsureIndex(name string) error

	// IndexDocument writes one document under the given id. Writing an
	// existing id overwrites the prior record.
	IndexDocument(indexName, docID string, body any) error
}

// indexSettings is applied when EnsureIndex creates a missing index
var indexSettings = map[string]any{
	"settings": map[string]any{
		"index": map[string]any{
			"number_of_shards": 4,
		},
	},
}

// HTTPIndex implements the Index interface against an OpenSearch-compatible
// REST endpoint
type HTTPIndex struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewHTTPIndex creates a new HTTPIndex instance. Credentials are optional;
// when set they are sent as basic auth.
func NewHTTPIndex(baseURL, username, password string) (*HTTPIndex, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("index endpoint is required")
	}

	return &HTTPIndex{
		baseURL:  baseURL,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (h *HTTPIndex) do(method, path string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.username != "" || h.password != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling index API: %w", err)
	}
	return resp, nil
}

// EnsureIndex creates the index if it does not exist
func (h *HTTPIndex) EnsureIndex(name string) error {
	resp, err := h.do(http.MethodHead, "/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		// fall through to create
	default:
		return fmt.Errorf("index API error checking %s (status %d)", name, resp.StatusCode)
	}

	settings, err := json.Marshal(indexSettings)
	if err != nil {
		return fmt.Errorf("marshaling index settings: %w", err)
	}
	resp, err = h.do(http.MethodPut, "/"+url.PathEscape(name), settings)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index API error creating %s (status %d): %s", name, resp.StatusCode, string(body))
	}
	return nil
}

// IndexDocument writes one document under the given id
func (h *HTTPIndex) IndexDocument(indexName, docID string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	path := fmt.Sprintf("/%s/_doc/%s?refresh=true", url.PathEscape(indexName), url.PathEscape(docID))
	resp, err := h.do(http.MethodPut, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("index API error writing %s/%s (status %d): %s", indexName, docID, resp.StatusCode, string(respBody))
	}
	return nil
}
