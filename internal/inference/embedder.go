package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"
)

// EmbedderClient talks to the face embedding service (Facenet behind HTTP).
type EmbedderClient struct {
	endpoint string
	client   *http.Client
}

// NewEmbedderClient creates a client posting face crops to endpoint.
func NewEmbedderClient(endpoint string, timeout time.Duration, opts ...Option) *EmbedderClient {
	o := buildOptions(timeout, opts)
	return &EmbedderClient{endpoint: endpoint, client: o.client}
}

// Embed returns the embedding vector of the first face found in the crop.
func (c *EmbedderClient) Embed(ctx context.Context, face image.Image) ([]float64, error) {
	var raw json.RawMessage
	if err := postImage(ctx, c.client, c.endpoint, "embedder", face, &raw); err != nil {
		return nil, err
	}
	return parseEmbedding(raw)
}

// CheckHealth verifies the embedding service is reachable.
func (c *EmbedderClient) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, c.client, c.endpoint, "embedder")
}

type embeddingEntry struct {
	Embedding []float64 `json:"embedding"`
}

// parseEmbedding accepts {"embedding": [...]}, {"results": [{"embedding": [...]}]}
// and [{"embedding": [...]}].
func parseEmbedding(raw json.RawMessage) ([]float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}

	var entries []embeddingEntry
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode embedding list: %w", err)
		}
	} else {
		var obj struct {
			Embedding []float64        `json:"embedding"`
			Results   []embeddingEntry `json:"results"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		if len(obj.Embedding) > 0 {
			return obj.Embedding, nil
		}
		entries = obj.Results
	}

	for _, e := range entries {
		if len(e.Embedding) > 0 {
			return e.Embedding, nil
		}
	}
	return nil, ErrEmptyResponse
}
