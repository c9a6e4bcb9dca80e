// Package storage addresses S3 objects by their public URL, which is what the
// composition records keep.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"skitbot/common"
)

// DefaultPresignTTL is used when no lifetime is configured for download links.
const DefaultPresignTTL = time.Hour

// objectAPI is the subset of common.S3 the store needs.
type objectAPI interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType, cacheControl string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, lifetime time.Duration) (string, error)
}

// Config describes where objects live and how their URLs look.
type Config struct {
	Bucket string
	Region string
	// PublicBaseURL replaces the virtual-hosted S3 URL, e.g. a CDN or MinIO endpoint.
	PublicBaseURL string
	PresignTTL    time.Duration
}

// Store uploads, fetches and deletes objects by URL.
type Store struct {
	api        objectAPI
	bucket     string
	region     string
	publicBase string
	presignTTL time.Duration
}

// New creates a Store on top of an S3 client.
func New(client *common.S3, cfg Config) (*Store, error) {
	return newStore(client, cfg)
}

func newStore(api objectAPI, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage bucket not set")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	return &Store{
		api:        api,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL: cfg.PresignTTL,
	}, nil
}

// URL returns the public URL for key.
func (s *Store) URL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// KeyFromURL extracts the object key from a URL produced by this store.
// Virtual-hosted, path-style and public-base URLs are accepted.
func (s *Store) KeyFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if s.publicBase != "" && strings.HasPrefix(raw, s.publicBase+"/") {
		key := strings.TrimPrefix(raw, s.publicBase+"/")
		if i := strings.IndexAny(key, "?#"); i >= 0 {
			key = key[:i]
		}
		return key, key != ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")
	host := strings.ToLower(u.Hostname())

	var key string
	switch {
	case strings.HasPrefix(host, strings.ToLower(s.bucket)+".s3.") || host == strings.ToLower(s.bucket)+".s3.amazonaws.com":
		key = path
	case strings.HasPrefix(host, "s3.") || host == "s3.amazonaws.com":
		if !strings.HasPrefix(path, s.bucket+"/") {
			return "", false
		}
		key = strings.TrimPrefix(path, s.bucket+"/")
	default:
		return "", false
	}
	return key, key != ""
}

// Put uploads data to folder/filename and returns its URL.
func (s *Store) Put(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	key := strings.Trim(folder, "/") + "/" + filename
	if err := s.api.Put(ctx, s.bucket, key, bytes.NewReader(data), contentType, ""); err != nil {
		return "", common.NewProviderError("s3", "put "+key, err)
	}
	return s.URL(key), nil
}

// Get downloads the object behind objectURL.
func (s *Store) Get(ctx context.Context, objectURL string) ([]byte, error) {
	key, ok := s.KeyFromURL(objectURL)
	if !ok {
		return nil, common.NewProviderError("s3", "get", fmt.Errorf("not an object url in bucket %s: %q", s.bucket, objectURL))
	}
	body, err := s.api.Get(ctx, s.bucket, key)
	if err != nil {
		return nil, common.NewProviderError("s3", "get "+key, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, common.NewProviderError("s3", "get "+key, fmt.Errorf("failed to read object body: %w", err))
	}
	return data, nil
}

// Delete removes the object behind objectURL. Malformed URLs and missing
// objects are not errors.
func (s *Store) Delete(ctx context.Context, objectURL string) error {
	key, ok := s.KeyFromURL(objectURL)
	if !ok {
		log.Printf("[storage] skipping delete of unrecognised url %q", objectURL)
		return nil
	}
	if err := s.api.Delete(ctx, s.bucket, key); err != nil {
		if common.IsS3NotFound(err) {
			return nil
		}
		return common.NewProviderError("s3", "delete "+key, err)
	}
	return nil
}

// PresignURL returns a time-limited download link for objectURL.
func (s *Store) PresignURL(ctx context.Context, objectURL string) (string, error) {
	key, ok := s.KeyFromURL(objectURL)
	if !ok {
		return "", common.NewProviderError("s3", "presign", fmt.Errorf("not an object url in bucket %s: %q", s.bucket, objectURL))
	}
	signed, err := s.api.PresignGet(ctx, s.bucket, key, s.presignTTL)
	if err != nil {
		return "", common.NewProviderError("s3", "presign "+key, err)
	}
	return signed, nil
}
