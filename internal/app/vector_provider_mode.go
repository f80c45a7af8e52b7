package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/skooly-backend/internal/platform/envutil"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/pgvector"
	"github.com/yungbote/skooly-backend/internal/platform/qdrant"
)

type VectorProvider string

const (
	VectorProviderMemory   VectorProvider = "memory"
	VectorProviderPGVector VectorProvider = "pgvector"
	VectorProviderQdrant   VectorProvider = "qdrant"
)

type VectorProviderConfigErrorCode string

const (
	VectorProviderConfigErrorInvalidProvider       VectorProviderConfigErrorCode = "invalid_provider"
	VectorProviderConfigErrorInvalidStorageMode    VectorProviderConfigErrorCode = "invalid_storage_mode"
	VectorProviderConfigErrorPGVectorNeedsPostgres VectorProviderConfigErrorCode = "pgvector_requires_postgres"
	VectorProviderConfigErrorMissingQdrantURL      VectorProviderConfigErrorCode = "missing_qdrant_url"
	VectorProviderConfigErrorInvalidQdrantURL      VectorProviderConfigErrorCode = "invalid_qdrant_url"
	VectorProviderConfigErrorMissingQdrantColl     VectorProviderConfigErrorCode = "missing_qdrant_collection"
	VectorProviderConfigErrorInvalidQdrantVector   VectorProviderConfigErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderConfigErrorUnknownQdrantFailure  VectorProviderConfigErrorCode = "qdrant_config_error"
)

type VectorProviderConfigError struct {
	Code        VectorProviderConfigErrorCode
	Provider    VectorProvider
	StorageMode string
	Cause       error
}

func (e *VectorProviderConfigError) Error() string {
	if e == nil {
		return "invalid vector provider config"
	}
	return fmt.Sprintf(
		"invalid vector provider config (code=%s provider=%q object_storage_mode=%q): %v",
		e.Code,
		e.Provider,
		e.StorageMode,
		e.Cause,
	)
}

func (e *VectorProviderConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type VectorProviderConfig struct {
	Provider   VectorProvider
	ModeSource string
	VectorDim  int
	Qdrant     qdrant.Config
	PGVector   pgvector.Config
}

// resolveVectorProviderConfig honors VECTOR_PROVIDER when set. Otherwise the
// object storage mode picks a default: the emulator pairs with qdrant when
// QDRANT_URL is present, real GCS pairs with pgvector on postgres, and
// everything else falls back to the in-memory index.
func resolveVectorProviderConfig(storageMode gcp.ObjectStorageMode, dbDriver string, vectorDim int) (VectorProviderConfig, error) {
	switch storageMode {
	case gcp.ObjectStorageModeGCS, gcp.ObjectStorageModeGCSEmulator:
	default:
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:        VectorProviderConfigErrorInvalidStorageMode,
			StorageMode: string(storageMode),
			Cause:       fmt.Errorf("unsupported object storage mode %q", storageMode),
		}
	}

	out := VectorProviderConfig{VectorDim: vectorDim}
	raw := strings.ToLower(envutil.String("VECTOR_PROVIDER", ""))
	if raw != "" {
		out.Provider = VectorProvider(raw)
		out.ModeSource = "env"
	} else {
		out.ModeSource = "object_storage_mode_default"
		out.Provider = VectorProviderMemory
		switch {
		case storageMode == gcp.ObjectStorageModeGCSEmulator && envutil.String("QDRANT_URL", "") != "":
			out.Provider = VectorProviderQdrant
		case storageMode == gcp.ObjectStorageModeGCS && isPostgres(dbDriver):
			out.Provider = VectorProviderPGVector
		}
	}

	switch out.Provider {
	case VectorProviderMemory:
		return out, nil
	case VectorProviderPGVector:
		if !isPostgres(dbDriver) {
			return VectorProviderConfig{}, &VectorProviderConfigError{
				Code:        VectorProviderConfigErrorPGVectorNeedsPostgres,
				Provider:    out.Provider,
				StorageMode: string(storageMode),
				Cause:       fmt.Errorf("DATABASE_DRIVER=%q cannot host pgvector", dbDriver),
			}
		}
		out.PGVector = pgvector.Config{
			Table:     envutil.String("PGVECTOR_TABLE", ""),
			VectorDim: vectorDim,
		}
		return out, nil
	case VectorProviderQdrant:
		qcfg := qdrant.Config{
			URL:             envutil.String("QDRANT_URL", ""),
			APIKey:          envutil.String("QDRANT_API_KEY", ""),
			Collection:      envutil.String("QDRANT_COLLECTION", "skooly_chunks"),
			VectorDim:       envutil.Int("QDRANT_VECTOR_DIM", vectorDim),
			CreateIfMissing: envutil.Bool("QDRANT_CREATE_COLLECTION", true),
			Timeout:         envutil.Duration("QDRANT_TIMEOUT", 10*time.Second),
		}
		if err := qcfg.Validate(); err != nil {
			return VectorProviderConfig{}, mapVectorProviderConfigError(storageMode, err)
		}
		out.Qdrant = qcfg
		return out, nil
	default:
		return VectorProviderConfig{}, &VectorProviderConfigError{
			Code:        VectorProviderConfigErrorInvalidProvider,
			Provider:    out.Provider,
			StorageMode: string(storageMode),
			Cause:       fmt.Errorf("unsupported VECTOR_PROVIDER %q (allowed: memory, pgvector, qdrant)", raw),
		}
	}
}

func isPostgres(driver string) bool {
	d := strings.ToLower(strings.TrimSpace(driver))
	return d == "" || d == "postgres"
}

func mapVectorProviderConfigError(storageMode gcp.ObjectStorageMode, err error) error {
	code := VectorProviderConfigErrorUnknownQdrantFailure
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorProviderConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorProviderConfigErrorInvalidQdrantURL
		case qdrant.ConfigErrorMissingCollection:
			code = VectorProviderConfigErrorMissingQdrantColl
		case qdrant.ConfigErrorInvalidVectorDim:
			code = VectorProviderConfigErrorInvalidQdrantVector
		}
	}
	return &VectorProviderConfigError{
		Code:        code,
		Provider:    VectorProviderQdrant,
		StorageMode: string(storageMode),
		Cause:       err,
	}
}
