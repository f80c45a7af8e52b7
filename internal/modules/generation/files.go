package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/skooly-backend/internal/data/repos"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/dbctx"
	"github.com/yungbote/skooly-backend/internal/platform/gcp"
	"github.com/yungbote/skooly-backend/internal/platform/gemini"
)

const (
	defaultMaxFileBytes = 20 << 20
	maxFetchRedirects   = 5
)

// ErrFetchBlocked is returned for URLs outside the fetch policy.
var ErrFetchBlocked = errors.New("file url not allowed")

// FileLoader turns a referenced course file into bytes the model can read.
type FileLoader interface {
	Load(ctx context.Context, f domain.FileSource) (gemini.FilePart, error)
}

// FetchPolicy bounds which remote URLs the loader may GET. Hosts match
// exactly or as a parent domain. The bucket's public host is always allowed.
type FetchPolicy struct {
	AllowedHosts         []string
	AllowPrivateNetworks bool
}

// StorageFileLoader reads stored uploads from the bucket by their public id
// and falls back to an HTTP GET, restricted by FetchPolicy, for link
// materials and caller-supplied URLs.
type StorageFileLoader struct {
	materials    repos.MaterialRepo
	bucket       gcp.BucketService
	http         *http.Client
	maxBytes     int64
	allowedHosts []string
	bucketBase   string
}

func NewStorageFileLoader(materials repos.MaterialRepo, bucket gcp.BucketService, maxBytes int64, policy FetchPolicy) *StorageFileLoader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	l := &StorageFileLoader{
		materials: materials,
		bucket:    bucket,
		maxBytes:  maxBytes,
	}
	for _, h := range policy.AllowedHosts {
		if h = normalizeHost(h); h != "" {
			l.allowedHosts = append(l.allowedHosts, h)
		}
	}
	if bucket != nil {
		sample := bucket.PublicURL("k")
		if u, err := url.Parse(sample); err == nil && u.Hostname() != "" {
			l.allowedHosts = append(l.allowedHosts, normalizeHost(u.Hostname()))
		}
		if base := strings.TrimSuffix(sample, "k"); base != sample && strings.HasSuffix(base, "/") {
			l.bucketBase = base
		}
	}
	l.http = newFetchClient(l, policy.AllowPrivateNetworks)
	return l
}

func newFetchClient(l *StorageFileLoader, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if !allowPrivate {
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || isPrivateIP(ip) {
				return fmt.Errorf("%w: %s resolves to a private address", ErrFetchBlocked, host)
			}
			return nil
		}
	}
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     60 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxFetchRedirects {
				return fmt.Errorf("too many redirects")
			}
			return l.checkURL(req.URL)
		},
	}
}

func (l *StorageFileLoader) Load(ctx context.Context, f domain.FileSource) (gemini.FilePart, error) {
	if l.bucket != nil && l.materials != nil && f.MaterialID != uuid.Nil {
		m, err := l.materials.GetByID(dbctx.Context{Ctx: ctx}, f.MaterialID)
		if err == nil && m.StoragePublicID != "" {
			return l.open(ctx, m.StoragePublicID, m.MimeType)
		}
	}
	if key, ok := l.bucketKey(f.URL); ok {
		return l.open(ctx, key, "")
	}
	return l.fetch(ctx, f.URL)
}

func (l *StorageFileLoader) open(ctx context.Context, key, mimeType string) (gemini.FilePart, error) {
	rc, err := l.bucket.Open(ctx, key)
	if err != nil {
		return gemini.FilePart{}, err
	}
	defer rc.Close()
	data, err := l.readLimited(rc)
	if err != nil {
		return gemini.FilePart{}, err
	}
	if mimeType == "" {
		mimeType = gcp.ContentTypeForKey(key)
	}
	return gemini.FilePart{Data: data, MIMEType: baseMIME(mimeType)}, nil
}

// bucketKey maps a public object URL of our own bucket back to its key.
func (l *StorageFileLoader) bucketKey(rawURL string) (string, bool) {
	if l.bucket == nil || l.bucketBase == "" {
		return "", false
	}
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, l.bucketBase) || strings.ContainsAny(rawURL, "?#") {
		return "", false
	}
	key := strings.TrimPrefix(rawURL, l.bucketBase)
	if key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

func (l *StorageFileLoader) checkURL(u *url.URL) error {
	if u == nil {
		return ErrFetchBlocked
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "https" && scheme != "http" {
		return fmt.Errorf("%w: scheme %q", ErrFetchBlocked, u.Scheme)
	}
	host := normalizeHost(u.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".local") {
		return fmt.Errorf("%w: host %q", ErrFetchBlocked, host)
	}
	for _, allowed := range l.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q is not on the allowlist", ErrFetchBlocked, host)
}

func (l *StorageFileLoader) fetch(ctx context.Context, rawURL string) (gemini.FilePart, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return gemini.FilePart{}, fmt.Errorf("%w: %v", ErrFetchBlocked, err)
	}
	if err := l.checkURL(u); err != nil {
		return gemini.FilePart{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gemini.FilePart{}, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return gemini.FilePart{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return gemini.FilePart{}, fmt.Errorf("fetch %s: status %d", u.Redacted(), resp.StatusCode)
	}
	data, err := l.readLimited(resp.Body)
	if err != nil {
		return gemini.FilePart{}, err
	}
	mt := resp.Header.Get("Content-Type")
	if mt == "" || strings.HasPrefix(mt, "application/octet-stream") {
		mt = gcp.ContentTypeForKey(path.Base(req.URL.Path))
	}
	return gemini.FilePart{Data: data, MIMEType: baseMIME(mt)}, nil
}

func normalizeHost(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	// 100.64.0.0/10 carrier-grade NAT
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1]&0xc0 == 64 {
		return true
	}
	return false
}

func (l *StorageFileLoader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

func baseMIME(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}
