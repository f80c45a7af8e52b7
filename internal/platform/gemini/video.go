package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type VideoConfig struct {
	AspectRatio     string
	NegativePrompt  string
	DurationSeconds int
}

// VideoStatus is one poll of a long-running video operation.
type VideoStatus struct {
	Done     bool
	VideoURI string
	MIMEType string
	Bytes    []byte
	Error    string
}

// StartVideo begins a Veo generation and returns the operation name to poll.
func (c *Client) StartVideo(ctx context.Context, prompt string, vc VideoConfig) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("gemini video: empty prompt")
	}
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:    vc.AspectRatio,
		NegativePrompt: vc.NegativePrompt,
		NumberOfVideos: 1,
	}
	if vc.DurationSeconds > 0 {
		d := int32(vc.DurationSeconds)
		cfg.DurationSeconds = &d
	}
	start := time.Now()
	op, err := c.api.Models.GenerateVideos(ctx, c.cfg.VideoModel, prompt, nil, cfg)
	if err != nil {
		return "", c.observe(c.cfg.VideoModel, "video_start", start, wrapCallError("video_start", err))
	}
	_ = c.observe(c.cfg.VideoModel, "video_start", start, nil)
	if op == nil || op.Name == "" {
		return "", &CallError{Op: "video_start", Message: "operation has no name"}
	}
	return op.Name, nil
}

func (c *Client) PollVideo(ctx context.Context, operationName string) (VideoStatus, error) {
	op, err := withRetry(ctx, c, "video_poll", func(ctx context.Context) (*genai.GenerateVideosOperation, error) {
		op, err := c.api.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operationName}, nil)
		return op, wrapCallError("video_poll", err)
	})
	if err != nil {
		return VideoStatus{}, err
	}
	if op == nil || !op.Done {
		return VideoStatus{}, nil
	}
	if len(op.Error) > 0 {
		return VideoStatus{Done: true, Error: fmt.Sprint(op.Error["message"])}, nil
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		reason := "no video returned"
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			reason = "SAFETY: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return VideoStatus{Done: true, Error: reason}, nil
	}
	v := op.Response.GeneratedVideos[0].Video
	return VideoStatus{Done: true, VideoURI: v.URI, MIMEType: v.MIMEType, Bytes: v.VideoBytes}, nil
}

// FetchVideo downloads a generated video by URI.
func (c *Client) FetchVideo(ctx context.Context, uri string) ([]byte, error) {
	start := time.Now()
	data, err := withRetry(ctx, c, "video_fetch", func(ctx context.Context) ([]byte, error) {
		b, err := c.api.Files.Download(ctx, genai.NewDownloadURIFromVideo(&genai.Video{URI: uri}), nil)
		return b, wrapCallError("video_fetch", err)
	})
	return data, c.observe(c.cfg.VideoModel, "video_fetch", start, err)
}
