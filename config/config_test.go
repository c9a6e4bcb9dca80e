package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v; want nil", err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skitbot.yaml")
	yamlDoc := `
server:
  port: "9000"
storage:
  bucket: from-file
  presign_ttl: 15m
kafka:
  enabled: true
  brokers: ["k1:9092"]
script:
  provider: cohere
video:
  quality: medium
sweeper:
  max_age: 2h
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("S3_BUCKET", "from-env")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("WORDS_PER_SECOND", "3")
	t.Setenv("VOICE_SPEAKER_BOOST", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("Port = %q; want file value 9000", cfg.Server.Port)
	}
	if cfg.Storage.Bucket != "from-env" {
		t.Fatalf("Bucket = %q; want env override", cfg.Storage.Bucket)
	}
	if cfg.Storage.PresignTTL != 15*time.Minute {
		t.Fatalf("PresignTTL = %v; want 15m", cfg.Storage.PresignTTL)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"a:9092", "b:9092"}) {
		t.Fatalf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Kafka.Enabled || cfg.Script.Provider != "cohere" || cfg.Video.Quality != "medium" {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.Sweeper.MaxAge != 2*time.Hour || cfg.Sweeper.Schedule != "@every 30m" {
		t.Fatalf("Sweeper = %+v", cfg.Sweeper)
	}
	if cfg.Speech.WordsPerSecond != 3 || cfg.Speech.SpeakerBoost {
		t.Fatalf("Speech = %+v", cfg.Speech)
	}
	if cfg.Speech.Model != "eleven_multilingual_v2" {
		t.Fatalf("default model lost: %q", cfg.Speech.Model)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"provider", "SCRIPT_PROVIDER", "llama-on-a-toaster"},
		{"quality", "VIDEO_QUALITY", "ultra"},
		{"words per second", "WORDS_PER_SECOND", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%s succeeded; want error", tt.key, tt.val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "does-not-exist.yaml")
	if _, err := Load(); err == nil {
		t.Fatalf("Load with missing CONFIG_FILE succeeded; want error")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD_INT", "twelve")
	t.Setenv("X_DUR", "90s")
	if got := getEnvInt("X_INT", 1); got != 12 {
		t.Fatalf("getEnvInt = %d; want 12", got)
	}
	if got := getEnvInt("X_BAD_INT", 1); got != 1 {
		t.Fatalf("getEnvInt(bad) = %d; want default 1", got)
	}
	if got := getEnvDuration("X_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("getEnvDuration = %v; want 90s", got)
	}
	if got := GetEnvOrDefault("X_UNSET_FOR_TEST", "fallback"); got != "fallback" {
		t.Fatalf("GetEnvOrDefault = %q; want fallback", got)
	}
}
