package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"skitbot/common"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObjects struct {
	objects   map[string][]byte
	types     map[string]string
	deleted   []string
	deleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjects) Put(ctx context.Context, bucket, key string, body io.Reader, contentType, cacheControl string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = contentType
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(ctx context.Context, bucket, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, bucket, key string, lifetime time.Duration) (string, error) {
	return "https://signed.example/" + key + "?ttl=" + lifetime.String(), nil
}

func newTestStore(t *testing.T, api objectAPI, publicBase string) *Store {
	t.Helper()
	s, err := newStore(api, Config{Bucket: "skits", Region: "us-west-2", PublicBaseURL: publicBase})
	if err != nil {
		t.Fatalf("newStore error: %v", err)
	}
	return s
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := newStore(newFakeObjects(), Config{}); err == nil {
		t.Fatalf("newStore with empty bucket succeeded; want error")
	}
}

func TestKeyFromURL(t *testing.T) {
	s := newTestStore(t, newFakeObjects(), "")
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://skits.s3.us-west-2.amazonaws.com/compositions/a.mp4", "compositions/a.mp4", true},
		{"https://skits.s3.amazonaws.com/audio/x_line_0.mp3", "audio/x_line_0.mp3", true},
		{"https://s3.us-west-2.amazonaws.com/skits/subtitles/x.srt", "subtitles/x.srt", true},
		{"https://s3.us-west-2.amazonaws.com/other/subtitles/x.srt", "", false},
		{"https://other.s3.us-west-2.amazonaws.com/a.mp4", "", false},
		{"https://skits.s3.us-west-2.amazonaws.com/", "", false},
		{"not a url", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := s.KeyFromURL(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("KeyFromURL(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestKeyFromPublicBaseURL(t *testing.T) {
	s := newTestStore(t, newFakeObjects(), "http://localhost:9000/skits/")
	u := s.URL("compositions/a.mp4")
	if u != "http://localhost:9000/skits/compositions/a.mp4" {
		t.Fatalf("URL = %q", u)
	}
	key, ok := s.KeyFromURL(u + "?download=1")
	if !ok || key != "compositions/a.mp4" {
		t.Fatalf("KeyFromURL = %q, %v; want compositions/a.mp4, true", key, ok)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	api := newFakeObjects()
	s := newTestStore(t, api, "")
	ctx := context.Background()

	u, err := s.Put(ctx, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"), "subtitles/", "c1.srt", "text/plain")
	if err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if want := "https://skits.s3.us-west-2.amazonaws.com/subtitles/c1.srt"; u != want {
		t.Fatalf("Put url = %q; want %q", u, want)
	}
	if ct := api.types["skits/subtitles/c1.srt"]; ct != "text/plain" {
		t.Fatalf("content type = %q; want text/plain", ct)
	}

	data, err := s.Get(ctx, u)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !strings.Contains(string(data), "hi") {
		t.Fatalf("Get returned %q", data)
	}
}

func TestGetFailuresAreProviderErrors(t *testing.T) {
	s := newTestStore(t, newFakeObjects(), "")
	ctx := context.Background()
	for _, u := range []string{"garbage", "https://skits.s3.us-west-2.amazonaws.com/audio/missing.mp3"} {
		if _, err := s.Get(ctx, u); !common.IsProvider(err) {
			t.Fatalf("Get(%q) error = %v; want provider error", u, err)
		}
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	api := newFakeObjects()
	s := newTestStore(t, api, "")
	ctx := context.Background()

	if err := s.Delete(ctx, "::::"); err != nil {
		t.Fatalf("Delete(malformed) = %v; want nil", err)
	}
	if len(api.deleted) != 0 {
		t.Fatalf("malformed url reached the backend: %v", api.deleted)
	}

	if err := s.Delete(ctx, s.URL("compositions/gone.mp4")); err != nil {
		t.Fatalf("Delete(missing) = %v; want nil", err)
	}

	api.deleteErr = &s3types.NoSuchKey{}
	if err := s.Delete(ctx, s.URL("compositions/gone.mp4")); err != nil {
		t.Fatalf("Delete(NoSuchKey) = %v; want nil", err)
	}

	api.deleteErr = errors.New("access denied")
	if err := s.Delete(ctx, s.URL("compositions/a.mp4")); !common.IsProvider(err) {
		t.Fatalf("Delete error = %v; want provider error", err)
	}
}

func TestPresignURL(t *testing.T) {
	s := newTestStore(t, newFakeObjects(), "")
	signed, err := s.PresignURL(context.Background(), s.URL("compositions/a.mp4"))
	if err != nil {
		t.Fatalf("PresignURL error: %v", err)
	}
	if signed != "https://signed.example/compositions/a.mp4?ttl=1h0m0s" {
		t.Fatalf("PresignURL = %q", signed)
	}
}
