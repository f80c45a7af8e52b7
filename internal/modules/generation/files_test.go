package generation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
)

type cdnBucket struct {
	objects map[string]string
}

func (b *cdnBucket) Upload(context.Context, gcp.UploadInput) (gcp.StoredObject, error) {
	return gcp.StoredObject{}, errors.New("read only")
}

func (b *cdnBucket) Delete(context.Context, string, gcp.ResourceKind) error { return nil }

func (b *cdnBucket) Open(_ context.Context, publicID string) (io.ReadCloser, error) {
	data, ok := b.objects[publicID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (b *cdnBucket) PublicURL(publicID string) string { return "https://cdn.skooly.test/" + publicID }

func countingServer(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestStorageFileLoaderRejectsPrivateAddresses(t *testing.T) {
	srv, hits := countingServer(t, "INTERNAL-SECRET")

	l := NewStorageFileLoader(nil, nil, 0, FetchPolicy{AllowedHosts: []string{"127.0.0.1"}})
	_, err := l.Load(context.Background(), domain.FileSource{URL: srv.URL + "/latest/meta-data/"})
	if !errors.Is(err, ErrFetchBlocked) {
		t.Fatalf("want ErrFetchBlocked, got=%v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("server was reached %d times", hits.Load())
	}
}

func TestStorageFileLoaderRequiresAllowedHost(t *testing.T) {
	srv, hits := countingServer(t, "secret")
	l := NewStorageFileLoader(nil, &cdnBucket{}, 0, FetchPolicy{AllowedHosts: []string{"docs.python.org"}, AllowPrivateNetworks: true})

	cases := []string{
		srv.URL + "/x",
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal/computeMetadata/v1/",
		"http://localhost:8080/admin",
		"file:///etc/passwd",
		"https://python.org.evil.test/x",
	}
	for _, raw := range cases {
		if _, err := l.Load(context.Background(), domain.FileSource{URL: raw}); !errors.Is(err, ErrFetchBlocked) {
			t.Fatalf("%s: want ErrFetchBlocked, got=%v", raw, err)
		}
	}
	if hits.Load() != 0 {
		t.Fatalf("server was reached %d times", hits.Load())
	}
}

func TestStorageFileLoaderFetchesAllowedHost(t *testing.T) {
	srv, hits := countingServer(t, "lecture notes")

	l := NewStorageFileLoader(nil, nil, 0, FetchPolicy{AllowedHosts: []string{"127.0.0.1"}, AllowPrivateNetworks: true})
	part, err := l.Load(context.Background(), domain.FileSource{URL: srv.URL + "/notes.txt"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(part.Data) != "lecture notes" || part.MIMEType != "text/plain" || hits.Load() != 1 {
		t.Fatalf("part=%+v hits=%d", part, hits.Load())
	}
}

func TestStorageFileLoaderBlocksRedirectOffAllowlist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
	}))
	defer srv.Close()

	l := NewStorageFileLoader(nil, nil, 0, FetchPolicy{AllowedHosts: []string{"127.0.0.1"}, AllowPrivateNetworks: true})
	if _, err := l.Load(context.Background(), domain.FileSource{URL: srv.URL + "/go"}); !errors.Is(err, ErrFetchBlocked) {
		t.Fatalf("want ErrFetchBlocked, got=%v", err)
	}
}

func TestStorageFileLoaderReadsOwnBucketURLs(t *testing.T) {
	bucket := &cdnBucket{objects: map[string]string{"materials/document/a.pdf": "%PDF-1.4"}}
	l := NewStorageFileLoader(nil, bucket, 0, FetchPolicy{})

	part, err := l.Load(context.Background(), domain.FileSource{URL: "https://cdn.skooly.test/materials/document/a.pdf"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(part.Data) != "%PDF-1.4" || part.MIMEType != "application/pdf" {
		t.Fatalf("part=%+v", part)
	}
}
