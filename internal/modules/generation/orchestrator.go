package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

var (
	ErrTimeout = errors.New("generation timed out")
	ErrSafety  = errors.New("generation blocked by safety filters")
	ErrFailed  = errors.New("generation failed")
)

type TextModel interface {
	Generate(ctx context.Context, req gemini.GenerateRequest) (string, error)
	Stream(ctx context.Context, req gemini.GenerateRequest, onDelta func(string) error) error
}

type SpeechModel interface {
	SynthesizeMultiSpeaker(ctx context.Context, script string, voices map[string]string) (gemini.Audio, error)
}

type Config struct {
	Timeout    time.Duration
	MaxFiles   int
	HostVoice  string
	GuestVoice string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = 3
	}
	if c.HostVoice == "" {
		c.HostVoice = "Kore"
	}
	if c.GuestVoice == "" {
		c.GuestVoice = "Puck"
	}
	return c
}

type Request struct {
	Type  ContentType
	Input PromptInput
	Files []domain.FileSource
}

type PodcastAudio struct {
	WAV      []byte
	Format   WAVFormat
	Duration time.Duration
}

type Result struct {
	Type      ContentType
	Content   string
	Questions []MCQuestion
	Audio     *PodcastAudio
}

// Orchestrator renders prompts, calls the model under a wall-clock timeout
// and post-processes per content type.
type Orchestrator struct {
	log     *logger.Logger
	text    TextModel
	speech  SpeechModel
	files   FileLoader
	catalog *Catalog
	cfg     Config
}

func New(log *logger.Logger, text TextModel, speech SpeechModel, files FileLoader, catalog *Catalog, cfg Config) *Orchestrator {
	return &Orchestrator{
		log:     log.With("service", "GenerationOrchestrator"),
		text:    text,
		speech:  speech,
		files:   files,
		catalog: catalog,
		cfg:     cfg.withDefaults(),
	}
}

func (o *Orchestrator) System() string { return o.catalog.System }

func (o *Orchestrator) BuildPrompt(t ContentType, in PromptInput) (string, error) {
	return o.catalog.BuildPrompt(t, in)
}

func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidArgument, req.Type)
	}
	ctx, span := observability.StartSpan(ctx, "generation.generate", attribute.String("type", string(req.Type)))
	defer span.End()

	parts := o.LoadFiles(ctx, req.Files)
	in := req.Input
	in.HasFiles = len(parts) > 0
	prompt, err := o.catalog.BuildPrompt(req.Type, in)
	if err != nil {
		return nil, err
	}
	text, err := o.Complete(ctx, gemini.GenerateRequest{
		Prompt: prompt,
		System: o.catalog.System,
		Files:  parts,
		JSON:   req.Type == TypeMCQ,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &Result{Type: req.Type, Content: strings.TrimSpace(text)}
	switch req.Type {
	case TypeMCQ:
		qs, err := ParseMCQ(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailed, err)
		}
		out.Questions = qs
	case TypePodcast:
		script, err := NormalizeScript(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailed, err)
		}
		out.Content = script
		audio, err := o.Speak(ctx, script)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out.Audio = audio
	}
	return out, nil
}

// Complete runs one generation call under the timeout.
func (o *Orchestrator) Complete(ctx context.Context, req gemini.GenerateRequest) (string, error) {
	var text string
	err := o.race(ctx, func(ctx context.Context) error {
		s, err := o.text.Generate(ctx, req)
		text = s
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Stream forwards fragments until the model finishes or the timeout fires.
// onDelta is never called after Stream returns.
func (o *Orchestrator) Stream(ctx context.Context, req gemini.GenerateRequest, onDelta func(string) error) error {
	var (
		mu     sync.Mutex
		closed bool
	)
	guarded := func(s string) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return context.Canceled
		}
		return onDelta(s)
	}
	err := o.race(ctx, func(ctx context.Context) error {
		return o.text.Stream(ctx, req, guarded)
	})
	mu.Lock()
	closed = true
	mu.Unlock()
	return err
}

// Speak synthesizes a two-speaker script and wraps the PCM in a WAV header.
func (o *Orchestrator) Speak(ctx context.Context, script string) (*PodcastAudio, error) {
	if o.speech == nil {
		return nil, fmt.Errorf("%w: speech synthesis is not configured", ErrFailed)
	}
	voices := map[string]string{SpeakerHost: o.cfg.HostVoice, SpeakerGuest: o.cfg.GuestVoice}
	var audio gemini.Audio
	err := o.race(ctx, func(ctx context.Context) error {
		a, err := o.speech.SynthesizeMultiSpeaker(ctx, script, voices)
		audio = a
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(audio.PCM) == 0 {
		return nil, fmt.Errorf("%w: speech synthesis returned no audio", ErrFailed)
	}
	f := WAVFormat{SampleRate: audio.SampleRate, Channels: audio.Channels, BitsPerSample: audio.BitsPerSample}.withDefaults()
	return &PodcastAudio{WAV: EncodeWAV(audio.PCM, f), Format: f, Duration: PCMDuration(audio.PCM, f)}, nil
}

// LoadFiles fetches up to MaxFiles references. Unreadable files are logged
// and skipped.
func (o *Orchestrator) LoadFiles(ctx context.Context, refs []domain.FileSource) []gemini.FilePart {
	if o.files == nil || len(refs) == 0 {
		return nil
	}
	parts := make([]gemini.FilePart, 0, len(refs))
	for _, ref := range refs {
		if len(parts) == o.cfg.MaxFiles {
			break
		}
		p, err := o.files.Load(ctx, ref)
		if err != nil {
			o.log.Warn("course file unavailable; continuing without it", "material_id", ref.MaterialID, "error", err)
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

func (o *Orchestrator) race(ctx context.Context, fn func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()
	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ClassifyError(err)
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTimeout
	}
}

// ClassifyError maps model errors onto ErrTimeout, ErrSafety and ErrFailed.
// Caller cancellation passes through unchanged.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrSafety), errors.Is(err, ErrFailed):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case gemini.IsSafetyBlock(err):
		return fmt.Errorf("%w: %w", ErrSafety, err)
	default:
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}
}
