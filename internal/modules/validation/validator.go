package validation

import (
	"context"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/modules/rag"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

var checkWeights = struct{ code, grounding, rubric, selfEval float64 }{15, 35, 30, 20}

// Searcher is the retrieval layer used to ground claims.
type Searcher interface {
	Search(ctx context.Context, query string, opts rag.ContextOptions) ([]domain.Source, error)
}

type Config struct {
	// MaxClaims caps extraction; CheckedClaims caps the searches.
	MaxClaims     int
	CheckedClaims int
	Concurrency   int
	// GroundingMinScore, when positive, replaces the searcher's own cutoff
	// for the per-claim lookups.
	GroundingMinScore float64
	GroundingLimit    int
	JudgeTemperature  float32
}

func (c Config) withDefaults() Config {
	if c.MaxClaims <= 0 {
		c.MaxClaims = 10
	}
	if c.CheckedClaims <= 0 {
		c.CheckedClaims = 5
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.GroundingLimit <= 0 {
		c.GroundingLimit = 3
	}
	return c
}

type Options struct {
	SkipGrounding bool `json:"skipGrounding"`
	SkipSelfEval  bool `json:"skipSelfEval"`
}

type Validator struct {
	log       *logger.Logger
	judge     Judge
	searcher  Searcher
	extractor ClaimExtractor
	cfg       Config
	now       func() time.Time
}

// New builds a validator. A nil searcher fails grounding with a reason, a nil
// judge falls back on the rubric and self-evaluation defaults, and a nil
// extractor uses PatternExtractor.
func New(log *logger.Logger, judge Judge, searcher Searcher, extractor ClaimExtractor, cfg Config) *Validator {
	if extractor == nil {
		extractor = PatternExtractor{}
	}
	return &Validator{
		log:       log.With("service", "ContentValidator"),
		judge:     judge,
		searcher:  searcher,
		extractor: extractor,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// Validate always returns a result; sub-check failures degrade to defaults.
func (v *Validator) Validate(ctx context.Context, response, query string, opts Options) domain.ValidationResult {
	ctx, span := observability.StartSpan(ctx, "validation.validate",
		attribute.Bool("skip_grounding", opts.SkipGrounding),
		attribute.Bool("skip_self_eval", opts.SkipSelfEval),
	)
	defer span.End()

	var checks domain.ValidationChecks
	checks.Code = CheckCode(response)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if opts.SkipGrounding {
			checks.Grounding = domain.GroundingCheck{Score: 100, Grounded: true, Skipped: true}
			return nil
		}
		checks.Grounding = v.checkGrounding(gctx, response)
		return nil
	})
	g.Go(func() error {
		checks.Rubric = v.checkRubric(gctx, response, query)
		return nil
	})
	g.Go(func() error {
		if opts.SkipSelfEval {
			checks.SelfEval = domain.SelfEvalCheck{Score: selfEvalDefaultScore, Confidence: selfEvalDefaultConfidence, Skipped: true}
			return nil
		}
		checks.SelfEval = v.checkSelfEval(gctx, response, query)
		return nil
	})
	_ = g.Wait()

	overall := OverallScore(checks)
	status := domain.StatusForScore(overall)
	span.SetAttributes(attribute.Int("overall_score", overall), attribute.String("status", string(status)))
	observability.Current().ObserveValidation(string(status), overall)
	v.log.Debug("response validated",
		"overall_score", overall,
		"status", status,
		"has_code", checks.Code.HasCode,
		"grounding", checks.Grounding.Score,
		"rubric", checks.Rubric.TotalScore,
		"self_eval", checks.SelfEval.Score,
	)
	return domain.ValidationResult{
		Timestamp:    v.now().UTC(),
		Checks:       checks,
		OverallScore: overall,
		Status:       status,
	}
}

// QuickValidate skips grounding searches and self-evaluation.
func (v *Validator) QuickValidate(ctx context.Context, response, query string) domain.ValidationResult {
	return v.Validate(ctx, response, query, Options{SkipGrounding: true, SkipSelfEval: true})
}

// OverallScore is the weighted mean of the checks. The code weight counts
// only when the response has code; selfEval is rescaled from 1-10.
func OverallScore(c domain.ValidationChecks) int {
	sum := float64(c.Grounding.Score)*checkWeights.grounding +
		float64(c.Rubric.TotalScore)*checkWeights.rubric +
		float64(c.SelfEval.Score*10)*checkWeights.selfEval
	weights := checkWeights.grounding + checkWeights.rubric + checkWeights.selfEval
	if c.Code.HasCode {
		sum += float64(c.Code.Score) * checkWeights.code
		weights += checkWeights.code
	}
	return clampInt(int(math.Round(sum/weights)), 0, 100)
}

func (v *Validator) checkGrounding(ctx context.Context, response string) domain.GroundingCheck {
	claims := v.extractor.Extract(response, v.cfg.MaxClaims)
	if len(claims) == 0 {
		return domain.GroundingCheck{Score: 100, Grounded: true}
	}
	if v.searcher == nil {
		return domain.GroundingCheck{Score: 0, Grounded: false, Reason: "no search backend configured"}
	}
	if len(claims) > v.cfg.CheckedClaims {
		claims = claims[:v.cfg.CheckedClaims]
	}

	opts := rag.ContextOptions{Limit: v.cfg.GroundingLimit}
	if v.cfg.GroundingMinScore > 0 {
		floor := v.cfg.GroundingMinScore
		opts.MinScore = &floor
	}
	supported := make([]bool, len(claims))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Concurrency)
	for i, claim := range claims {
		g.Go(func() error {
			hits, err := v.searcher.Search(gctx, claim, opts)
			if err != nil {
				v.log.Warn("grounding search failed; counting claim as unsupported", "claim_index", i, "error", err)
				return nil
			}
			supported[i] = len(hits) > 0
			return nil
		})
	}
	_ = g.Wait()

	out := domain.GroundingCheck{Checked: len(claims), Unverified: []string{}}
	for i, ok := range supported {
		if ok {
			out.Supported++
		} else {
			out.Unverified = append(out.Unverified, truncateClaim(claims[i]))
		}
	}
	out.Score = int(math.Round(float64(out.Supported) / float64(out.Checked) * 100))
	out.Grounded = out.Score >= 50
	return out
}

func truncateClaim(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 160 {
		return string(r)
	}
	return string(r[:160]) + "..."
}
