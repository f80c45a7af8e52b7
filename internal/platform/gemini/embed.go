package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Embed returns one vector for text under the given task type.
func (c *Client) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("gemini embed: empty text")
	}
	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if c.cfg.EmbeddingDim > 0 {
		dim := int32(c.cfg.EmbeddingDim)
		cfg.OutputDimensionality = &dim
	}
	start := time.Now()
	vec, err := withRetry(ctx, c, "embed", func(ctx context.Context) ([]float32, error) {
		resp, err := c.api.Models.EmbedContent(ctx, c.cfg.EmbeddingModel, genai.Text(text), cfg)
		if err != nil {
			return nil, wrapCallError("embed", err)
		}
		if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
			return nil, &CallError{Op: "embed", Message: "empty embedding"}
		}
		return resp.Embeddings[0].Values, nil
	})
	return vec, c.observe(c.cfg.EmbeddingModel, "embed", start, err)
}
