package qdrant

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorDim  int
	// CreateIfMissing creates the collection (cosine distance) on startup.
	CreateIfMissing bool
	Timeout         time.Duration
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
}

func (e *ConfigError) Error() string {
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333", e.Value)
	case ConfigErrorMissingCollection:
		return "QDRANT_COLLECTION is required"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid vector dimension %q; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(c.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: c.URL}
	}
	if strings.TrimSpace(c.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if c.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: fmt.Sprint(c.VectorDim)}
	}
	return nil
}
