package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidURL          StorageProviderBootstrapErrorCode = "invalid_url"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveStorageConfig reads OBJECT_STORAGE_MODE and friends, classifying
// configuration mistakes before any client is built.
func resolveStorageConfig(log *logger.Logger) (gcp.StorageConfig, error) {
	cfg, err := gcp.StorageConfigFromEnv()
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		observability.Current().ObserveObjectStorageProviderBootstrap(string(cfg.Mode), "error", string(code))
		log.Error(
			"Object storage provider selection failed",
			"mode", cfg.Mode,
			"bucket", cfg.Bucket,
			"emulator_host", cfg.EmulatorHost,
			"error_code", code,
			"error", classified,
		)
		return cfg, classified
	}
	return cfg, nil
}

func resolveBucketService(ctx context.Context, log *logger.Logger, cfg gcp.StorageConfig) (gcp.BucketService, error) {
	metrics := observability.Current()
	metrics.SetObjectStorageModeActive(string(cfg.Mode))

	log.Info(
		"Selecting object storage provider",
		"mode", cfg.Mode,
		"bucket", cfg.Bucket,
		"emulator_host", cfg.EmulatorHost,
	)

	bucket, err := newBucketService(ctx, log, cfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(cfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		metrics.ObserveObjectStorageProviderBootstrap(string(cfg.Mode), "error", string(code))
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", cfg.Mode,
			"emulator_host", cfg.EmulatorHost,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}
	metrics.ObserveObjectStorageProviderBootstrap(string(cfg.Mode), "success", "none")
	return bucket, nil
}

func classifyStorageProviderBootstrapError(cfg gcp.StorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.StorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.StorageConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case gcp.StorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.StorageConfigErrorInvalidURL:
			code = StorageProviderBootstrapErrorInvalidURL
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(cfg.Mode),
		EmulatorHost: cfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
