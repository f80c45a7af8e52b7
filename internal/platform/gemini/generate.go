package gemini

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// FilePart is a document handed to the model directly, either inline bytes
// or a URI the API can read.
type FilePart struct {
	URI      string
	MIMEType string
	Data     []byte
}

type GenerateRequest struct {
	Prompt      string
	System      string
	History     []Message
	Files       []FilePart
	JSON        bool
	Temperature *float32
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	contents, cfg := c.buildRequest(req)
	start := time.Now()
	text, err := withRetry(ctx, c, "generate", func(ctx context.Context) (string, error) {
		resp, err := c.api.Models.GenerateContent(ctx, c.cfg.TextModel, contents, cfg)
		if err != nil {
			return "", wrapCallError("generate", err)
		}
		if err := checkBlocked(resp); err != nil {
			return "", err
		}
		return resp.Text(), nil
	})
	return text, c.observe(c.cfg.TextModel, "generate", start, err)
}

// Stream sends text fragments to onDelta as they arrive. Returning an error
// from onDelta stops the stream.
func (c *Client) Stream(ctx context.Context, req GenerateRequest, onDelta func(string) error) error {
	contents, cfg := c.buildRequest(req)
	start := time.Now()
	var streamErr error
	for resp, err := range c.api.Models.GenerateContentStream(ctx, c.cfg.TextModel, contents, cfg) {
		if err != nil {
			streamErr = wrapCallError("stream", err)
			break
		}
		if err := checkBlocked(resp); err != nil {
			streamErr = err
			break
		}
		if delta := resp.Text(); delta != "" {
			if err := onDelta(delta); err != nil {
				streamErr = err
				break
			}
		}
	}
	return c.observe(c.cfg.TextModel, "stream", start, streamErr)
}

func (c *Client) buildRequest(req GenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	parts := make([]*genai.Part, 0, len(req.Files)+1)
	for _, f := range req.Files {
		switch {
		case len(f.Data) > 0:
			parts = append(parts, genai.NewPartFromBytes(f.Data, f.MIMEType))
		case f.URI != "":
			parts = append(parts, genai.NewPartFromURI(f.URI, f.MIMEType))
		}
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if s := strings.TrimSpace(req.System); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return contents, cfg
}
