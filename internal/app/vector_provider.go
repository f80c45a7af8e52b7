package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	neturl "net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
	"github.com/yungbote/skooly-backend/internal/platform/pgvector"
	"github.com/yungbote/skooly-backend/internal/platform/qdrant"
	"github.com/yungbote/skooly-backend/internal/platform/vectorstore"
)

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorInvalidProvider    VectorProviderBootstrapErrorCode = "invalid_provider"
	VectorProviderBootstrapErrorConnectFailed      VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorSchemaMismatch     VectorProviderBootstrapErrorCode = "schema_mismatch"
	VectorProviderBootstrapErrorMigrateFailed      VectorProviderBootstrapErrorCode = "migrate_failed"
	VectorProviderBootstrapErrorProviderInitFailed VectorProviderBootstrapErrorCode = "provider_init_failed"
)

type VectorProviderBootstrapError struct {
	Code     VectorProviderBootstrapErrorCode
	Provider string
	Cause    error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector provider bootstrap failed"
	}
	return fmt.Sprintf("vector provider bootstrap failed (code=%s provider=%q): %v", e.Code, e.Provider, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// vectorIndex is the resolved index plus whether it must be rebuilt from the
// chunk table on startup.
type vectorIndex struct {
	store     vectorstore.VectorStore
	provider  VectorProvider
	ephemeral bool
}

func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg VectorProviderConfig, db *gorm.DB) (vectorIndex, error) {
	provider := string(cfg.Provider)
	metrics := observability.Current()
	metrics.SetVectorStoreProviderActive(provider)

	log.Info(
		"Selecting vector store provider",
		"provider", provider,
		"provider_mode_source", cfg.ModeSource,
		"vector_dim", cfg.VectorDim,
	)

	fail := func(err error) (vectorIndex, error) {
		code := vectorProviderBootstrapErrorCode(err)
		metrics.ObserveVectorStoreProviderBootstrap(provider, "error", string(code))
		log.Error(
			"Vector store provider bootstrap failed",
			"provider", provider,
			"provider_mode_source", cfg.ModeSource,
			"error_code", code,
			"error", err,
		)
		return vectorIndex{}, err
	}

	var (
		vs        vectorstore.VectorStore
		ephemeral bool
	)
	switch cfg.Provider {
	case VectorProviderMemory:
		vs = vectorstore.NewMemoryStore(cfg.VectorDim)
		ephemeral = true

	case VectorProviderPGVector:
		store, err := pgvector.New(log, db, cfg.PGVector)
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}
		if err := store.Migrate(ctx); err != nil {
			return fail(&VectorProviderBootstrapError{Code: VectorProviderBootstrapErrorMigrateFailed, Provider: provider, Cause: err})
		}
		vs = store

	case VectorProviderQdrant:
		log.Info("Connecting to qdrant", "qdrant_url", cfg.Qdrant.URL, "qdrant_collection", cfg.Qdrant.Collection)
		store, err := qdrant.New(log, cfg.Qdrant)
		if err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return fail(classifyVectorProviderBootstrapError(provider, err))
		}
		vs = store

	default:
		return fail(&VectorProviderBootstrapError{
			Code:     VectorProviderBootstrapErrorInvalidProvider,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported vector provider %q", provider),
		})
	}

	metrics.ObserveVectorStoreProviderBootstrap(provider, "success", "none")
	return vectorIndex{store: instrumentVectorStore(provider, vs), provider: cfg.Provider, ephemeral: ephemeral}, nil
}

func classifyVectorProviderBootstrapError(provider string, err error) error {
	code := VectorProviderBootstrapErrorProviderInitFailed
	var (
		urlErr *neturl.Error
		netErr net.Error
		opErr  *qdrant.OperationError
	)
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		code = VectorProviderBootstrapErrorConnectFailed
	case errors.As(err, &opErr):
		switch opErr.Code {
		case qdrant.OperationErrorTransportFailed, qdrant.OperationErrorTimeout:
			code = VectorProviderBootstrapErrorConnectFailed
		case qdrant.OperationErrorValidation:
			code = VectorProviderBootstrapErrorSchemaMismatch
		}
	case strings.Contains(strings.ToLower(err.Error()), "connection refused"):
		code = VectorProviderBootstrapErrorConnectFailed
	}
	return &VectorProviderBootstrapError{Code: code, Provider: provider, Cause: err}
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
