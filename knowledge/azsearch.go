package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SearchClient talks to an Azure AI Search index over its REST API. It
// implements both Retriever and Indexer.
type SearchClient struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	client     *http.Client
	top        int
}

func NewSearchClient(endpoint, apiKey, index, apiVersion string) *SearchClient {
	return &SearchClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		index:      index,
		apiVersion: apiVersion,
		client:     &http.Client{Timeout: 30 * time.Second},
		top:        3,
	}
}

// Configured reports whether the client has enough settings to be usable.
func (c *SearchClient) Configured() bool {
	return c.endpoint != "" && c.apiKey != "" && c.index != ""
}

func (c *SearchClient) post(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/%s?api-version=%s", c.endpoint, c.index, path, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("body", string(text)).Msg("search request failed")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}

// Query runs a full-text search and returns the top matching chunks joined
// into one context string for the agent.
func (c *SearchClient) Query(ctx context.Context, query string) (string, error) {
	if !c.Configured() {
		return "", ErrUnavailable
	}

	payload := map[string]any{
		"search": query,
		"top":    c.top,
		"select": "title,content",
	}
	var result struct {
		Value []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		} `json:"value"`
	}
	if err := c.post(ctx, "search", payload, &result); err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "", fmt.Errorf("%w: no matching documents", ErrUnavailable)
	}

	var b strings.Builder
	for i, doc := range result.Value {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if doc.Title != "" {
			b.WriteString("[" + doc.Title + "]\n")
		}
		b.WriteString(doc.Content)
	}
	return b.String(), nil
}

// IndexDocuments uploads document chunks with mergeOrUpload semantics so
// re-ingesting a file is idempotent.
func (c *SearchClient) IndexDocuments(ctx context.Context, docs []Document) error {
	if !c.Configured() {
		return ErrUnavailable
	}
	if len(docs) == 0 {
		return nil
	}

	actions := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		actions = append(actions, map[string]any{
			"@search.action": "mergeOrUpload",
			"id":             doc.ID,
			"title":          doc.Title,
			"content":        doc.Content,
			"source":         doc.Source,
		})
	}

	if err := c.post(ctx, "index", map[string]any{"value": actions}, nil); err != nil {
		return err
	}
	log.Info().Int("documents", len(docs)).Str("index", c.index).Msg("indexed documents")
	return nil
}
