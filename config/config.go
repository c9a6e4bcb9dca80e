// Package config loads service settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Script   ScriptConfig   `yaml:"script"`
	Speech   SpeechConfig   `yaml:"speech"`
	Video    VideoConfig    `yaml:"video"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
}

type ServerConfig struct {
	Port   string `yaml:"port"`
	GinLog bool   `yaml:"gin_log"`
}

type StorageConfig struct {
	Bucket        string        `yaml:"bucket"`
	Region        string        `yaml:"region"`
	Profile       string        `yaml:"profile"`
	Endpoint      string        `yaml:"endpoint"`
	UsePathStyle  bool          `yaml:"use_path_style"`
	PublicBaseURL string        `yaml:"public_base_url"`
	PresignTTL    time.Duration `yaml:"presign_ttl"`
}

// DatabaseConfig selects the record store. An empty URL keeps records in memory.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	Verbose      bool   `yaml:"verbose"`
}

// RedisConfig enables the shared speech cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"request_topic"`
	EventTopic   string   `yaml:"event_topic"`
	GroupID      string   `yaml:"group_id"`
}

// ScriptConfig selects the language-model provider: openai (any
// OpenAI-compatible endpoint, OpenRouter by default), cohere or gemini.
type ScriptConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	StructuredOutput bool   `yaml:"structured_output"`
	CohereAPIKey     string `yaml:"cohere_api_key"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
}

type SpeechConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	OutputFormat    string  `yaml:"output_format"`
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
	Style           float64 `yaml:"style"`
	SpeakerBoost    bool    `yaml:"speaker_boost"`
	WordsPerSecond  float64 `yaml:"words_per_second"`
	Pause           float64 `yaml:"pause"`
	CacheDir        string  `yaml:"cache_dir"`
}

type VideoConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	ProcessingDir string        `yaml:"processing_dir"`
	BaseImageSize int           `yaml:"base_image_size"`
	Quality       string        `yaml:"quality"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
}

type SweeperConfig struct {
	Schedule string        `yaml:"schedule"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Storage:  StorageConfig{Region: "us-east-1", PresignTTL: time.Hour},
		Database: DatabaseConfig{MaxOpenConns: 25, MaxIdleConns: 5},
		Redis:    RedisConfig{TTL: 24 * time.Hour},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			RequestTopic: "composition-requests",
			EventTopic:   "composition-events",
			GroupID:      "skitbot",
		},
		Script: ScriptConfig{Provider: "openai"},
		Speech: SpeechConfig{
			Model:           "eleven_multilingual_v2",
			OutputFormat:    "mp3_44100_128",
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.5,
			SpeakerBoost:    true,
			WordsPerSecond:  2.5,
			Pause:           0.5,
			CacheDir:        "cache/speech",
		},
		Video: VideoConfig{
			FFmpegPath:    "ffmpeg",
			ProcessingDir: "processing",
			BaseImageSize: BaseImageSize,
			Quality:       "high",
			ProbeTimeout:  30 * time.Second,
		},
		Sweeper: SweeperConfig{Schedule: "@every 30m", MaxAge: 6 * time.Hour},
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then environment overrides.
func Load() (Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
		log.Printf("[config] loaded %s", path)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = GetEnvOrDefault("PORT", c.Server.Port)
	c.Server.GinLog = getEnvBool("GIN_LOG", c.Server.GinLog)

	c.Storage.Bucket = GetEnvOrDefault("S3_BUCKET", c.Storage.Bucket)
	c.Storage.Region = GetEnvOrDefault("S3_REGION", GetEnvOrDefault("AWS_REGION", c.Storage.Region))
	c.Storage.Profile = GetEnvOrDefault("S3_PROFILE", c.Storage.Profile)
	c.Storage.Endpoint = GetEnvOrDefault("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", c.Storage.UsePathStyle)
	c.Storage.PublicBaseURL = GetEnvOrDefault("S3_PUBLIC_BASE_URL", c.Storage.PublicBaseURL)
	c.Storage.PresignTTL = getEnvDuration("S3_PRESIGN_TTL", c.Storage.PresignTTL)

	c.Database.URL = GetEnvOrDefault("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.Verbose = getEnvBool("DB_VERBOSE", c.Database.Verbose)

	c.Redis.Addr = GetEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = GetEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = getEnvDuration("SPEECH_CACHE_TTL", c.Redis.TTL)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = getEnvList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.RequestTopic = GetEnvOrDefault("KAFKA_REQUEST_TOPIC", c.Kafka.RequestTopic)
	c.Kafka.EventTopic = GetEnvOrDefault("KAFKA_EVENT_TOPIC", c.Kafka.EventTopic)
	c.Kafka.GroupID = GetEnvOrDefault("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Script.Provider = strings.ToLower(GetEnvOrDefault("SCRIPT_PROVIDER", c.Script.Provider))
	c.Script.APIKey = GetEnvOrDefault("OPENROUTER_API_KEY", GetEnvOrDefault("OPENAI_API_KEY", c.Script.APIKey))
	c.Script.BaseURL = GetEnvOrDefault("SCRIPT_BASE_URL", c.Script.BaseURL)
	c.Script.Model = GetEnvOrDefault("SCRIPT_MODEL", c.Script.Model)
	c.Script.StructuredOutput = getEnvBool("SCRIPT_STRUCTURED_OUTPUT", c.Script.StructuredOutput)
	c.Script.CohereAPIKey = GetEnvOrDefault("COHERE_API_KEY", c.Script.CohereAPIKey)
	c.Script.GeminiAPIKey = GetEnvOrDefault("GEMINI_API_KEY", c.Script.GeminiAPIKey)

	c.Speech.APIKey = GetEnvOrDefault("ELEVENLABS_API_KEY", c.Speech.APIKey)
	c.Speech.BaseURL = GetEnvOrDefault("ELEVENLABS_BASE_URL", c.Speech.BaseURL)
	c.Speech.Model = GetEnvOrDefault("ELEVENLABS_MODEL", c.Speech.Model)
	c.Speech.OutputFormat = GetEnvOrDefault("ELEVENLABS_OUTPUT_FORMAT", c.Speech.OutputFormat)
	c.Speech.Stability = getEnvFloat("VOICE_STABILITY", c.Speech.Stability)
	c.Speech.SimilarityBoost = getEnvFloat("VOICE_SIMILARITY_BOOST", c.Speech.SimilarityBoost)
	c.Speech.Style = getEnvFloat("VOICE_STYLE", c.Speech.Style)
	c.Speech.SpeakerBoost = getEnvBool("VOICE_SPEAKER_BOOST", c.Speech.SpeakerBoost)
	c.Speech.WordsPerSecond = getEnvFloat("WORDS_PER_SECOND", c.Speech.WordsPerSecond)
	c.Speech.Pause = getEnvFloat("LINE_PAUSE", c.Speech.Pause)
	c.Speech.CacheDir = GetEnvOrDefault("SPEECH_CACHE_DIR", c.Speech.CacheDir)

	c.Video.FFmpegPath = GetEnvOrDefault("FFMPEG_PATH", c.Video.FFmpegPath)
	c.Video.ProcessingDir = GetEnvOrDefault("PROCESSING_DIR", c.Video.ProcessingDir)
	c.Video.BaseImageSize = getEnvInt("BASE_IMAGE_SIZE", c.Video.BaseImageSize)
	c.Video.Quality = strings.ToLower(GetEnvOrDefault("VIDEO_QUALITY", c.Video.Quality))
	c.Video.ProbeTimeout = getEnvDuration("FFPROBE_TIMEOUT", c.Video.ProbeTimeout)

	c.Sweeper.Schedule = GetEnvOrDefault("SWEEP_SCHEDULE", c.Sweeper.Schedule)
	c.Sweeper.MaxAge = getEnvDuration("SWEEP_MAX_AGE", c.Sweeper.MaxAge)
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Script.Provider {
	case "openai", "cohere", "gemini":
	default:
		return fmt.Errorf("unknown SCRIPT_PROVIDER %q (want openai, cohere or gemini)", c.Script.Provider)
	}
	switch c.Video.Quality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("unknown VIDEO_QUALITY %q (want low, medium or high)", c.Video.Quality)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_ENABLED is set but KAFKA_BROKERS is empty")
	}
	if c.Speech.WordsPerSecond <= 0 {
		return fmt.Errorf("WORDS_PER_SECOND must be positive")
	}
	return nil
}

// GetEnvOrDefault returns the environment variable or a default value.
func GetEnvOrDefault(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(GetEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(GetEnvOrDefault(key, ""), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(GetEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	raw := GetEnvOrDefault(key, "")
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
