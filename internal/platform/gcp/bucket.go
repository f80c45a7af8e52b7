package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// ResourceKind selects the folder-level content class of an object.
type ResourceKind string

const (
	ResourceRaw   ResourceKind = "raw"
	ResourceAudio ResourceKind = "audio"
	ResourceVideo ResourceKind = "video"
	ResourceImage ResourceKind = "image"
)

// StoredObject is what callers persist: the public URL for reads and the
// public id (object key) for deletes.
type StoredObject struct {
	URL      string
	PublicID string
	Size     int64
}

type UploadInput struct {
	Folder      string
	Kind        ResourceKind
	Filename    string
	ContentType string
	Body        io.Reader
}

type BucketService interface {
	Upload(ctx context.Context, in UploadInput) (StoredObject, error)
	Delete(ctx context.Context, publicID string, kind ResourceKind) error
	Open(ctx context.Context, publicID string) (io.ReadCloser, error)
	PublicURL(publicID string) string
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	cfg    StorageConfig
}

func NewBucketService(ctx context.Context, log *logger.Logger, cfg StorageConfig) (BucketService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	serviceLog := log.With("service", "BucketService")
	serviceLog.Info("Object storage initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	return &bucketService{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg StorageConfig) (*storage.Client, error) {
	if cfg.Mode == ObjectStorageModeGCSEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (bs *bucketService) Upload(ctx context.Context, in UploadInput) (StoredObject, error) {
	if in.Body == nil {
		return StoredObject{}, errors.New("upload: empty body")
	}
	key := ObjectKey(in.Folder, in.Kind, in.Filename, uuid.NewString())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = in.ContentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}
	n, err := io.Copy(w, in.Body)
	if err != nil {
		_ = w.Close()
		return StoredObject{}, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, fmt.Errorf("close object writer %q: %w", key, err)
	}
	bs.log.Debug("object uploaded", "key", key, "bytes", n)
	return StoredObject{URL: bs.PublicURL(key), PublicID: key, Size: n}, nil
}

// Delete removes the object. A missing object is not an error.
func (bs *bucketService) Delete(ctx context.Context, publicID string, kind ResourceKind) error {
	publicID = strings.TrimLeft(strings.TrimSpace(publicID), "/")
	if publicID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := bs.client.Bucket(bs.cfg.Bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s object %q: %w", kind, publicID, err)
	}
	return nil
}

// Open returns a reader whose context lives until Close.
func (bs *bucketService) Open(ctx context.Context, publicID string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := bs.client.Bucket(bs.cfg.Bucket).Object(strings.TrimLeft(publicID, "/")).NewReader(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open object %q: %w", publicID, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (bs *bucketService) PublicURL(publicID string) string {
	return PublicObjectURL(bs.cfg, publicID)
}

// PublicObjectURL prefers the CDN domain, then the emulator media endpoint,
// then an explicit public base, then storage.googleapis.com.
func PublicObjectURL(cfg StorageConfig, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case cfg.CDNDomain != "":
		return fmt.Sprintf("https://%s/%s", cfg.CDNDomain, key)
	case cfg.Mode == ObjectStorageModeGCSEmulator:
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.Bucket), url.PathEscape(key))
	case cfg.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
	}
}

// ObjectKey builds "<folder>/<kind>/<id><ext>"; the original filename only
// contributes its extension.
func ObjectKey(folder string, kind ResourceKind, filename, id string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "misc"
	}
	if kind == "" {
		kind = ResourceRaw
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	return fmt.Sprintf("%s/%s/%s%s", folder, kind, id, ext)
}

func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}
