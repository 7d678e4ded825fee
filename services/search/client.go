package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/manuals-assistant/services"
	"go.uber.org/zap"
)

const defaultAPIVersion = "2023-11-01"

// Config holds the Azure AI Search connection settings
type Config struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	Timeout    time.Duration
}

// Client queries the manual index over the Azure AI Search REST API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new search client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.APIVersion == "" {
		config.APIVersion = defaultAPIVersion
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// searchRequest is the index query payload
type searchRequest struct {
	Search string `json:"search"`
	Top    int    `json:"top"`
	Count  bool   `json:"count"`
}

// searchResponse is the raw index response. Rows are decoded loosely
// because ingested blobs do not all carry the same metadata fields.
type searchResponse struct {
	Value []map[string]interface{} `json:"value"`
}

// Search runs a full-text query against the manual index and returns
// normalized documents in backend relevance order.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	reqBody, err := json.Marshal(searchRequest{
		Search: query,
		Top:    topK,
		Count:  true,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to marshal search request", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Index, c.config.APIVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, services.WrapInternal("failed to create search request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.config.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, services.WrapExternal("search request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read search response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		c.logger.Warn("search backend returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("index", c.config.Index))
		return nil, services.NewDomainError(services.ErrorTypeExternal,
			fmt.Sprintf("search backend returned status %d", httpResp.StatusCode), nil).
			WithDetail("body", string(respBody))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, services.WrapExternal("failed to unmarshal search response", err)
	}

	docs := make([]Document, 0, len(searchResp.Value))
	for _, row := range searchResp.Value {
		docs = append(docs, normalizeRow(row))
	}

	c.logger.Debug("search completed",
		zap.String("index", c.config.Index),
		zap.Int("top_k", topK),
		zap.Int("results", len(docs)))

	return docs, nil
}

// normalizeRow maps a raw index row to a Document, tolerating missing fields
func normalizeRow(row map[string]interface{}) Document {
	doc := Document{Source: UnknownSource}

	if v, ok := row["content"].(string); ok {
		doc.Content = v
	}
	if v, ok := row["metadata_storage_name"].(string); ok && v != "" {
		doc.Source = v
	}
	if v, ok := row["metadata_storage_path"].(string); ok {
		doc.Path = v
	}
	if v, ok := row["@search.score"].(float64); ok {
		doc.Score = v
	}

	return doc
}
