package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"skitbot/common"

	"github.com/google/uuid"
)

// Result is a synthesized line written into the caller's directory.
type Result struct {
	Path     string
	Duration float64
	Cached   bool
}

// Synthesizer wraps a Provider with an identity cache and duration probing.
// Cached audio lives in cacheDir; every call hands the caller a private copy.
type Synthesizer struct {
	provider Provider
	cache    Cache
	prober   DurationProber
	cacheDir string
	settings VoiceSettings
}

// NewSynthesizer creates a Synthesizer. cache may be nil to disable caching.
func NewSynthesizer(provider Provider, cache Cache, prober DurationProber, cacheDir string, defaults *VoiceSettings) *Synthesizer {
	settings := DefaultVoiceSettings
	if defaults != nil {
		settings = *defaults
	}
	return &Synthesizer{
		provider: provider,
		cache:    cache,
		prober:   prober,
		cacheDir: cacheDir,
		settings: settings,
	}
}

// Synthesize renders text with voiceID into a new file under dir and returns
// its probed duration. A cache hit skips the provider call. Provider errors are
// returned as ProviderError and never retried.
func (s *Synthesizer) Synthesize(ctx context.Context, dir, text, voiceID string, settings *VoiceSettings) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create speech dir: %w", err)
	}
	out := filepath.Join(dir, fmt.Sprintf("speech_%s.mp3", uuid.NewString()))
	key := CacheKey(voiceID, text)

	if entry, ok := s.lookup(ctx, key); ok {
		if err := copyFile(entry.Path, out); err == nil {
			log.Printf("[speech] cache hit for voice %s (%.2fs)", voiceID, entry.Duration)
			return &Result{Path: out, Duration: entry.Duration, Cached: true}, nil
		}
	}

	vs := s.settings
	if settings != nil {
		vs = *settings
	}
	body, err := s.provider.Synthesize(ctx, text, voiceID, vs)
	if err != nil {
		return nil, common.NewProviderError("elevenlabs", "synthesize", err)
	}
	err = writeStream(body, out)
	body.Close()
	if err != nil {
		return nil, common.NewProviderError("elevenlabs", "synthesize", err)
	}

	duration, err := s.prober.ProbeDuration(ctx, out)
	if err != nil {
		return nil, common.NewProviderError("ffprobe", "speech duration", err)
	}

	s.remember(ctx, key, out, duration)
	return &Result{Path: out, Duration: duration}, nil
}

// Voices lists provider voices.
func (s *Synthesizer) Voices(ctx context.Context) ([]Voice, error) {
	voices, err := s.provider.Voices(ctx)
	if err != nil {
		return nil, common.NewProviderError("elevenlabs", "list voices", err)
	}
	return voices, nil
}

// lookup returns a cache entry whose file still exists. Stale entries are dropped.
func (s *Synthesizer) lookup(ctx context.Context, key string) (Entry, bool) {
	if s.cache == nil {
		return Entry{}, false
	}
	entry, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[speech] cache read failed: %v", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		_ = s.cache.Delete(ctx, key)
		return Entry{}, false
	}
	return entry, true
}

// remember copies the fresh audio into the cache directory. Failures only cost a future cache miss.
func (s *Synthesizer) remember(ctx context.Context, key, path string, duration float64) {
	if s.cache == nil || s.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		log.Printf("[speech] cache dir unavailable: %v", err)
		return
	}
	cached := s.cachePath(key)
	if err := replaceFile(path, cached); err != nil {
		log.Printf("[speech] failed to cache audio: %v", err)
		return
	}
	if err := s.cache.Set(ctx, key, Entry{Path: cached, Duration: duration}); err != nil {
		log.Printf("[speech] cache write failed: %v", err)
	}
}

func (s *Synthesizer) cachePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:16])+".mp3")
}

// replaceFile copies src next to dst and renames it into place, so concurrent
// readers of dst see either the old file or the complete new one.
func replaceFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".cache-*.tmp")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func writeStream(r io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeStream(in, dst)
}
