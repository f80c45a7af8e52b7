package gemini

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Audio is raw little-endian PCM plus the format needed to wrap it.
type Audio struct {
	PCM           []byte
	MIMEType      string
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// SynthesizeMultiSpeaker renders a "Speaker: line" script with one prebuilt
// voice per speaker.
func (c *Client) SynthesizeMultiSpeaker(ctx context.Context, script string, voices map[string]string) (Audio, error) {
	if strings.TrimSpace(script) == "" {
		return Audio{}, fmt.Errorf("gemini tts: empty script")
	}
	speakers := make([]string, 0, len(voices))
	for s := range voices {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)
	speakerCfgs := make([]*genai.SpeakerVoiceConfig, 0, len(speakers))
	for _, s := range speakers {
		speakerCfgs = append(speakerCfgs, &genai.SpeakerVoiceConfig{
			Speaker: s,
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voices[s]},
			},
		})
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			MultiSpeakerVoiceConfig: &genai.MultiSpeakerVoiceConfig{SpeakerVoiceConfigs: speakerCfgs},
		},
	}

	start := time.Now()
	audio, err := withRetry(ctx, c, "tts", func(ctx context.Context) (Audio, error) {
		resp, err := c.api.Models.GenerateContent(ctx, c.cfg.TTSModel, genai.Text(script), cfg)
		if err != nil {
			return Audio{}, wrapCallError("tts", err)
		}
		if err := checkBlocked(resp); err != nil {
			return Audio{}, err
		}
		blob := firstInlineData(resp)
		if blob == nil || len(blob.Data) == 0 {
			return Audio{}, &CallError{Op: "tts", Message: "no audio in response"}
		}
		return Audio{
			PCM:           blob.Data,
			MIMEType:      blob.MIMEType,
			SampleRate:    SampleRateFromMIME(blob.MIMEType, 24000),
			Channels:      1,
			BitsPerSample: 16,
		}, nil
	})
	return audio, c.observe(c.cfg.TTSModel, "tts", start, err)
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil {
				return p.InlineData
			}
		}
	}
	return nil
}

// SampleRateFromMIME reads the rate parameter of "audio/L16;codec=pcm;rate=24000".
func SampleRateFromMIME(mime string, def int) int {
	for _, part := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "rate") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}
