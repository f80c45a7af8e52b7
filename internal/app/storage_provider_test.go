package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

func TestResolveStorageConfigClassifiesEnvErrors(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		bucket   string
		emulator string
		code     StorageProviderBootstrapErrorCode
	}{
		{name: "unknown mode", mode: "s3", bucket: "skooly", code: StorageProviderBootstrapErrorInvalidMode},
		{name: "missing bucket", mode: "gcs", code: StorageProviderBootstrapErrorMissingBucket},
		{name: "emulator without host", mode: "gcs_emulator", bucket: "skooly", code: StorageProviderBootstrapErrorMissingEmulatorHost},
		{name: "relative emulator host", mode: "gcs_emulator", bucket: "skooly", emulator: "fake-gcs:4443", code: StorageProviderBootstrapErrorInvalidURL},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("OBJECT_STORAGE_MODE", tc.mode)
			t.Setenv("MATERIAL_GCS_BUCKET_NAME", tc.bucket)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.emulator)
			t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

			_, err := resolveStorageConfig(logger.Nop())
			var got *StorageProviderBootstrapError
			if !errors.As(err, &got) {
				t.Fatalf("expected StorageProviderBootstrapError, got=%T (%v)", err, err)
			}
			if got.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, got.Code)
			}
		})
	}
}

func TestResolveStorageConfigEmulatorFromHost(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("MATERIAL_GCS_BUCKET_NAME", "skooly")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	cfg, err := resolveStorageConfig(logger.Nop())
	if err != nil {
		t.Fatalf("resolveStorageConfig: %v", err)
	}
	if cfg.Mode != gcp.ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", gcp.ObjectStorageModeGCSEmulator, cfg.Mode)
	}
}

func TestResolveBucketService(t *testing.T) {
	orig := newBucketService
	t.Cleanup(func() { newBucketService = orig })

	cfg := gcp.StorageConfig{Mode: gcp.ObjectStorageModeGCSEmulator, Bucket: "skooly", EmulatorHost: "http://fake-gcs:4443"}

	t.Run("success", func(t *testing.T) {
		newBucketService = func(_ context.Context, _ *logger.Logger, got gcp.StorageConfig) (gcp.BucketService, error) {
			if got.Bucket != "skooly" {
				t.Fatalf("bucket: want=skooly got=%q", got.Bucket)
			}
			return stubBucket{}, nil
		}
		b, err := resolveBucketService(context.Background(), logger.Nop(), cfg)
		if err != nil || b == nil {
			t.Fatalf("resolveBucketService: bucket=%v err=%v", b, err)
		}
	})

	t.Run("client failure", func(t *testing.T) {
		newBucketService = func(context.Context, *logger.Logger, gcp.StorageConfig) (gcp.BucketService, error) {
			return nil, errors.New("dial tcp: connection refused")
		}
		_, err := resolveBucketService(context.Background(), logger.Nop(), cfg)
		if code := storageProviderBootstrapErrorCode(err); code != StorageProviderBootstrapErrorConnectFailed {
			t.Fatalf("code: want=%q got=%q", StorageProviderBootstrapErrorConnectFailed, code)
		}
		var got *StorageProviderBootstrapError
		if !errors.As(err, &got) || got.EmulatorHost != "http://fake-gcs:4443" {
			t.Fatalf("bootstrap error: %v", err)
		}
	})
}

type stubBucket struct{}

func (stubBucket) Upload(context.Context, gcp.UploadInput) (gcp.StoredObject, error) {
	return gcp.StoredObject{}, nil
}
func (stubBucket) Delete(context.Context, string, gcp.ResourceKind) error { return nil }
func (stubBucket) Open(context.Context, string) (io.ReadCloser, error)    { return nil, io.EOF }
func (stubBucket) PublicURL(key string) string                             { return key }
