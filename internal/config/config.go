package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DeliveryLocal = "local"
	DeliveryCloud = "cloud"

	TTSProviderGoogle     = "gtts"
	TTSProviderElevenLabs = "elevenlabs"
	TTSProviderOpenAI     = "openai"
)

type Config struct {
	Port        string
	DatabaseURL string

	Camera    CameraConfig
	Inference InferenceConfig
	TTS       TTSConfig
	Audio     AudioConfig
	S3        S3Config
	Telegram  TelegramConfig

	// requests per minute per IP on pipeline endpoints, 0 = unlimited
	RateLimitPerMinute int
}

type CameraConfig struct {
	URL           string
	Timeout       time.Duration
	MaxBytes      int64
	RotateDegrees int
}

type InferenceConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type TTSConfig struct {
	Provider string
	Lang     string
	Timeout  time.Duration

	GoogleBaseURL string

	ElevenLabsKey      string
	ElevenLabsVoice    string
	ElevenLabsAltVoice string
	ElevenLabsBaseURL  string
	OpenAIKey          string
	OpenAIBaseURL      string
	OpenAIVoice        string
	OpenAIAltVoice     string
}

type AudioConfig struct {
	Dir            string
	TTL            time.Duration
	Delivery       string
	PerRequestURLs bool
}

type S3Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
	Timeout       time.Duration
}

type TelegramConfig struct {
	Token       string
	AdminChatID int64
}

// Enabled reports whether object storage credentials were supplied.
func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.AdminChatID != 0
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getString("PORT", "8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Camera: CameraConfig{
			URL: getString("CAMERA_URL", "http://172.30.26.174/cam-hi.jpg"),
		},
		Inference: InferenceConfig{
			BaseURL: getString("INFERENCE_BASE_URL", "https://router.huggingface.co/v1"),
			APIKey:  os.Getenv("INFERENCE_API_KEY"),
			Model:   getString("INFERENCE_MODEL", "meta-llama/Llama-3.2-11B-Vision-Instruct"),
		},
		TTS: TTSConfig{
			Provider:           strings.ToLower(getString("TTS_PROVIDER", TTSProviderGoogle)),
			Lang:               getString("TTS_LANG", "en"),
			GoogleBaseURL:      os.Getenv("GTTS_BASE_URL"),
			ElevenLabsKey:      os.Getenv("ELEVENLABS_API_KEY"),
			ElevenLabsVoice:    getString("ELEVENLABS_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),
			ElevenLabsAltVoice: getString("ELEVENLABS_ALT_VOICE_ID", "JBFqnCBsd6RMkjVDRZzb"),
			ElevenLabsBaseURL:  getString("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
			OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:      getString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIVoice:        getString("OPENAI_TTS_VOICE", "alloy"),
			OpenAIAltVoice:     getString("OPENAI_TTS_ALT_VOICE", "fable"),
		},
		Audio: AudioConfig{
			Dir:      getString("AUDIO_DIR", "audio"),
			Delivery: strings.ToLower(getString("AUDIO_DELIVERY", DeliveryLocal)),
		},
		S3: S3Config{
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        os.Getenv("S3_REGION"),
			PublicBaseURL: strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
	}

	var err error
	if cfg.Camera.Timeout, err = getDuration("CAMERA_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Camera.MaxBytes, err = getInt64("CAMERA_MAX_BYTES", 20<<20); err != nil {
		return nil, err
	}
	if cfg.Camera.RotateDegrees, err = getInt("CAMERA_ROTATE_DEGREES", 270); err != nil {
		return nil, err
	}
	if cfg.Inference.Timeout, err = getDuration("INFERENCE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.TTS.Timeout, err = getDuration("TTS_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Audio.TTL, err = getDuration("AUDIO_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Audio.PerRequestURLs, err = getBool("AUDIO_PER_REQUEST_URLS", false); err != nil {
		return nil, err
	}
	if cfg.S3.UseSSL, err = getBool("S3_USE_SSL", true); err != nil {
		return nil, err
	}
	if cfg.S3.Timeout, err = getDuration("S3_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Telegram.AdminChatID, err = getInt64("TELEGRAM_ADMIN_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Camera.RotateDegrees {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("CAMERA_ROTATE_DEGREES must be one of 0, 90, 180, 270, got %d", c.Camera.RotateDegrees)
	}

	switch c.TTS.Provider {
	case TTSProviderGoogle:
	case TTSProviderOpenAI:
		if c.TTS.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
	case TTSProviderElevenLabs:
		if c.TTS.ElevenLabsKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY not set")
		}
	default:
		return fmt.Errorf("unknown TTS_PROVIDER %q", c.TTS.Provider)
	}

	switch c.Audio.Delivery {
	case DeliveryLocal:
	case DeliveryCloud:
		if !c.S3.Enabled() {
			return fmt.Errorf("AUDIO_DELIVERY=cloud requires S3_ENDPOINT and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown AUDIO_DELIVERY %q", c.Audio.Delivery)
	}

	if c.Audio.TTL < time.Second {
		return fmt.Errorf("AUDIO_TTL must be at least 1s, got %s", c.Audio.TTL)
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
