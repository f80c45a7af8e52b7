package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/skooly-backend/internal/platform/envutil"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

// StorageConfig describes the single bucket that holds uploaded materials,
// podcast audio and generated videos (one folder each).
type StorageConfig struct {
	Mode          ObjectStorageMode
	Bucket        string
	EmulatorHost  string
	CDNDomain     string
	PublicBaseURL string
}

type StorageConfigErrorCode string

const (
	StorageConfigErrorInvalidMode         StorageConfigErrorCode = "invalid_mode"
	StorageConfigErrorMissingBucket       StorageConfigErrorCode = "missing_bucket"
	StorageConfigErrorMissingEmulatorHost StorageConfigErrorCode = "missing_emulator_host"
	StorageConfigErrorInvalidURL          StorageConfigErrorCode = "invalid_url"
)

type StorageConfigError struct {
	Code  StorageConfigErrorCode
	Value string
}

func (e *StorageConfigError) Error() string {
	switch e.Code {
	case StorageConfigErrorInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator)
	case StorageConfigErrorMissingBucket:
		return "missing env var MATERIAL_GCS_BUCKET_NAME"
	case StorageConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", ObjectStorageModeGCSEmulator)
	case StorageConfigErrorInvalidURL:
		return fmt.Sprintf("invalid URL %q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return "invalid object storage config"
	}
}

// StorageConfigFromEnv resolves the storage mode. An emulator host without an
// explicit mode selects the emulator.
func StorageConfigFromEnv() (StorageConfig, error) {
	cfg := StorageConfig{
		Bucket:        envutil.String("MATERIAL_GCS_BUCKET_NAME", ""),
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		CDNDomain:     envutil.String("MATERIAL_CDN_DOMAIN", ""),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
	}
	raw := envutil.String("OBJECT_STORAGE_MODE", "")
	switch ObjectStorageMode(strings.ToLower(raw)) {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		return cfg, &StorageConfigError{Code: StorageConfigErrorInvalidMode, Value: raw}
	}
	return cfg, cfg.Validate()
}

func (c StorageConfig) Validate() error {
	switch c.Mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
	default:
		return &StorageConfigError{Code: StorageConfigErrorInvalidMode, Value: string(c.Mode)}
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return &StorageConfigError{Code: StorageConfigErrorMissingBucket}
	}
	if c.Mode == ObjectStorageModeGCSEmulator {
		if c.EmulatorHost == "" {
			return &StorageConfigError{Code: StorageConfigErrorMissingEmulatorHost}
		}
		if !isAbsoluteURL(c.EmulatorHost) {
			return &StorageConfigError{Code: StorageConfigErrorInvalidURL, Value: c.EmulatorHost}
		}
	}
	if c.PublicBaseURL != "" && !isAbsoluteURL(c.PublicBaseURL) {
		return &StorageConfigError{Code: StorageConfigErrorInvalidURL, Value: c.PublicBaseURL}
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
