package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type StorageConfig struct {
	Backend string   `yaml:"backend"` // fs | s3
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type STTConfig struct {
	Provider       string        `yaml:"provider"` // openai | deepgram
	Model          string        `yaml:"model"`
	Language       string        `yaml:"language"`
	DeepgramAPIKey string        `yaml:"deepgram_api_key"`
	DeepgramURL    string        `yaml:"deepgram_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"` // chat | completion | perplexity
	Model             string        `yaml:"model"`
	PromptTemplate    string        `yaml:"prompt_template"`
	MaxTokens         int           `yaml:"max_tokens"`
	MaxReplyChars     int           `yaml:"max_reply_chars"`
	Temperature       float32       `yaml:"temperature"`
	RepetitionPenalty float32       `yaml:"repetition_penalty"`
	PerplexityAPIKey  string        `yaml:"perplexity_api_key"`
	PerplexityURL     string        `yaml:"perplexity_url"`
	Timeout           time.Duration `yaml:"timeout"`
}

type TTSConfig struct {
	Provider         string        `yaml:"provider"` // openai | elevenlabs
	Model            string        `yaml:"model"`
	Voice            string        `yaml:"voice"`
	ElevenLabsAPIKey string        `yaml:"elevenlabs_api_key"`
	ElevenLabsVoice  string        `yaml:"elevenlabs_voice_id"`
	ElevenLabsURL    string        `yaml:"elevenlabs_url"`
	OutputFormat     string        `yaml:"output_format"`
	Timeout          time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	AdmissionTimeout time.Duration `yaml:"admission_timeout"`
	History          int           `yaml:"history"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type Config struct {
	Port               string         `yaml:"port"`
	RateLimitPerMinute int            `yaml:"rate_limit_per_minute"`
	Storage            StorageConfig  `yaml:"storage"`
	OpenAI             OpenAIConfig   `yaml:"openai"`
	STT                STTConfig      `yaml:"stt"`
	LLM                LLMConfig      `yaml:"llm"`
	TTS                TTSConfig      `yaml:"tts"`
	Pipeline           PipelineConfig `yaml:"pipeline"`
	Telegram           TelegramConfig `yaml:"telegram"`
}

func Default() Config {
	return Config{
		Port:               "3000",
		RateLimitPerMinute: 60,
		Storage: StorageConfig{
			Backend: "fs",
			Dir:     "./resources",
			S3:      S3Config{Prefix: "voice", Secure: true},
		},
		STT: STTConfig{
			Provider:    "openai",
			Model:       "whisper-1",
			Language:    "en",
			DeepgramURL: "https://api.deepgram.com/v1/listen",
			Timeout:     30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:          "chat",
			PromptTemplate:    "Answer briefly: %s",
			MaxTokens:         50,
			MaxReplyChars:     1000,
			Temperature:       0.5,
			RepetitionPenalty: 1.2,
			PerplexityURL:     "https://api.perplexity.ai/chat/completions",
			Timeout:           60 * time.Second,
		},
		TTS: TTSConfig{
			Provider:      "openai",
			Model:         "tts-1",
			Voice:         "alloy",
			ElevenLabsURL: "https://api.elevenlabs.io/v1/text-to-speech",
			OutputFormat:  "wav_44100",
			Timeout:       60 * time.Second,
		},
		Pipeline: PipelineConfig{
			AdmissionTimeout: 30 * time.Second,
			History:          32,
			MaxUploadBytes:   25 << 20,
		},
	}
}

// Load: .env → CONFIG_FILE (yaml) → переменные окружения.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("PORT", &cfg.Port)
	setString("STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("RESOURCE_DIR", &cfg.Storage.Dir)
	setString("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	setString("S3_ACCESS_KEY", &cfg.Storage.S3.AccessKey)
	setString("S3_SECRET_KEY", &cfg.Storage.S3.SecretKey)
	setString("S3_BUCKET", &cfg.Storage.S3.Bucket)
	setString("S3_REGION", &cfg.Storage.S3.Region)
	setString("S3_PREFIX", &cfg.Storage.S3.Prefix)

	setString("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)

	setString("STT_PROVIDER", &cfg.STT.Provider)
	setString("STT_MODEL", &cfg.STT.Model)
	setString("STT_LANGUAGE", &cfg.STT.Language)
	setString("DEEPGRAM_API_KEY", &cfg.STT.DeepgramAPIKey)

	setString("LLM_PROVIDER", &cfg.LLM.Provider)
	setString("LLM_MODEL", &cfg.LLM.Model)
	setString("LLM_PROMPT_TEMPLATE", &cfg.LLM.PromptTemplate)
	setString("PERPLEXITY_API_KEY", &cfg.LLM.PerplexityAPIKey)

	setString("TTS_PROVIDER", &cfg.TTS.Provider)
	setString("TTS_MODEL", &cfg.TTS.Model)
	setString("TTS_VOICE", &cfg.TTS.Voice)
	setString("ELEVENLABS_API_KEY", &cfg.TTS.ElevenLabsAPIKey)
	setString("ELEVENLABS_VOICE_ID", &cfg.TTS.ElevenLabsVoice)
	setString("ELEVENLABS_OUTPUT_FORMAT", &cfg.TTS.OutputFormat)

	setString("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)

	var errs []error
	errs = append(errs,
		setBool("S3_SECURE", &cfg.Storage.S3.Secure),
		setInt("RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute),
		setInt("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens),
		setInt("LLM_MAX_REPLY_CHARS", &cfg.LLM.MaxReplyChars),
		setFloat("LLM_TEMPERATURE", &cfg.LLM.Temperature),
		setFloat("LLM_REPETITION_PENALTY", &cfg.LLM.RepetitionPenalty),
		setDuration("STT_TIMEOUT", &cfg.STT.Timeout),
		setDuration("LLM_TIMEOUT", &cfg.LLM.Timeout),
		setDuration("TTS_TIMEOUT", &cfg.TTS.Timeout),
		setDuration("ADMISSION_TIMEOUT", &cfg.Pipeline.AdmissionTimeout),
		setInt("CYCLE_HISTORY", &cfg.Pipeline.History),
		setInt64("MAX_UPLOAD_BYTES", &cfg.Pipeline.MaxUploadBytes),
		setInt64("TELEGRAM_ADMIN_CHAT_ID", &cfg.Telegram.AdminChatID),
	)
	return errors.Join(errs...)
}

// Validate проверяет, что для выбранных провайдеров заданы ключи.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case "fs":
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("RESOURCE_DIR is not set"))
		}
	case "s3":
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_ENDPOINT and S3_BUCKET are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	needOpenAI := false
	switch c.STT.Provider {
	case "openai":
		needOpenAI = true
	case "deepgram":
		if c.STT.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown stt provider %q", c.STT.Provider))
	}

	switch c.LLM.Provider {
	case "chat", "completion":
		needOpenAI = true
	case "perplexity":
		if c.LLM.PerplexityAPIKey == "" {
			errs = append(errs, errors.New("PERPLEXITY_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if strings.Count(c.LLM.PromptTemplate, "%s") != 1 {
		errs = append(errs, errors.New("LLM_PROMPT_TEMPLATE must contain exactly one %s"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("LLM_MAX_TOKENS must be positive"))
	}

	switch c.TTS.Provider {
	case "openai":
		needOpenAI = true
	case "elevenlabs":
		if c.TTS.ElevenLabsAPIKey == "" {
			errs = append(errs, errors.New("ELEVENLABS_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tts provider %q", c.TTS.Provider))
	}

	if needOpenAI && c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY not set"))
	}
	if c.Telegram.BotToken != "" && c.Telegram.AdminChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_ADMIN_CHAT_ID is required with TELEGRAM_BOT_TOKEN"))
	}
	return errors.Join(errs...)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(key string, dst *int) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(key string, dst *int64) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(key string, dst *float32) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = float32(f)
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
