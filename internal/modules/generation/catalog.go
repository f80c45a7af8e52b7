package generation

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const promptCatalogEnv = "PROMPT_CATALOG_PATH"

//go:embed prompts.yaml
var promptsFS embed.FS

type ContentType string

const (
	TypeNotes     ContentType = "notes"
	TypeSlides    ContentType = "slides"
	TypePDF       ContentType = "pdf"
	TypeCodeGuide ContentType = "code-guide"
	TypeMCQ       ContentType = "mcq"
	TypePodcast   ContentType = "podcast"
)

// ContentTypes lists every supported type; the catalog must define each.
var ContentTypes = []ContentType{TypeNotes, TypeSlides, TypePDF, TypeCodeGuide, TypeMCQ, TypePodcast}

func (t ContentType) Valid() bool {
	for _, ct := range ContentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// PromptInput is what a template sees.
type PromptInput struct {
	Title         string
	Topic         string
	Context       string
	Customization string
	HasFiles      bool
}

type yamlCatalog struct {
	Catalog  string            `yaml:"catalog"`
	Version  int               `yaml:"version"`
	System   string            `yaml:"system"`
	Prompts  []yamlPrompt      `yaml:"prompts"`
	Answer   string            `yaml:"answer"`
	Partials map[string]string `yaml:"partials"`
}

type yamlPrompt struct {
	Type     string `yaml:"type"`
	Template string `yaml:"template"`
}

// AnswerInput is what the question-answering template sees.
type AnswerInput struct {
	Question      string
	Context       string
	Customization string
	HasFiles      bool
}

type Catalog struct {
	System    string
	templates map[ContentType]*template.Template
	answer    *template.Template
}

var (
	catalogOnce  sync.Once
	catalogCache *Catalog
	catalogErr   error
)

// DefaultCatalog loads the override file named by PROMPT_CATALOG_PATH, else
// the embedded catalog. An unusable override falls back to the embedded one.
func DefaultCatalog(log *logger.Logger) (*Catalog, error) {
	catalogOnce.Do(func() {
		if path := strings.TrimSpace(os.Getenv(promptCatalogEnv)); path != "" {
			data, err := os.ReadFile(path)
			if err == nil {
				catalogCache, err = ParseCatalog(data)
			}
			if err == nil {
				return
			}
			if log != nil {
				log.Warn("prompt catalog override unusable; using embedded catalog", "path", path, "error", err)
			}
		}
		data, err := promptsFS.ReadFile("prompts.yaml")
		if err != nil {
			catalogErr = err
			return
		}
		catalogCache, catalogErr = ParseCatalog(data)
	})
	return catalogCache, catalogErr
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var spec yamlCatalog
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}
	if strings.TrimSpace(spec.Catalog) != "skooly_generation" {
		return nil, fmt.Errorf("unexpected prompt catalog: %q", spec.Catalog)
	}

	base := template.New("base").Option("missingkey=error")
	for name, body := range spec.Partials {
		if _, err := base.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("partial %q: %w", name, err)
		}
	}

	c := &Catalog{System: strings.TrimSpace(spec.System), templates: map[ContentType]*template.Template{}}
	for _, p := range spec.Prompts {
		ct := ContentType(strings.TrimSpace(p.Type))
		if !ct.Valid() {
			return nil, fmt.Errorf("unknown content type in catalog: %q", p.Type)
		}
		if _, dup := c.templates[ct]; dup {
			return nil, fmt.Errorf("duplicate prompt for %q", ct)
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		tpl, err := clone.New(string(ct)).Parse(p.Template)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", ct, err)
		}
		c.templates[ct] = tpl
	}
	var missing []string
	for _, ct := range ContentTypes {
		if _, ok := c.templates[ct]; !ok {
			missing = append(missing, string(ct))
		}
	}
	if len(missing) > 0 {
		return nil, errors.New("prompt catalog missing types: " + strings.Join(missing, ", "))
	}
	if strings.TrimSpace(spec.Answer) == "" {
		return nil, errors.New("prompt catalog missing answer template")
	}
	clone, err := base.Clone()
	if err != nil {
		return nil, err
	}
	if c.answer, err = clone.New("answer").Parse(spec.Answer); err != nil {
		return nil, fmt.Errorf("answer prompt: %w", err)
	}
	return c, nil
}

func (c *Catalog) BuildPrompt(t ContentType, in PromptInput) (string, error) {
	tpl, ok := c.templates[t]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", t)
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = in.Topic
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = "Course material"
	}
	var b strings.Builder
	if err := tpl.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func (c *Catalog) BuildAnswer(in AnswerInput) (string, error) {
	if strings.TrimSpace(in.Question) == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}
	var b strings.Builder
	if err := c.answer.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render answer prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
