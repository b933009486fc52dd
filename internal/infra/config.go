package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// sequentialProviderCalls is the longest run of outbound calls a single
// generation can make, each bounded by ProviderTimeout: research, then Hugging
// Face, Gemini, Qwen generation plus its download, and Pollinations.
const sequentialProviderCalls = 6

// writeTimeoutMargin covers the ledger, the archive and writing the response.
const writeTimeoutMargin = 30 * time.Second

// MinWriteTimeout is the shortest HTTP write timeout that lets a generation
// whose every provider runs to its timeout still deliver its response.
func MinWriteTimeout(providerTimeout time.Duration) time.Duration {
	return sequentialProviderCalls*providerTimeout + writeTimeoutMargin
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	GeoIPDBPath    string
	PublicBaseURL  string
	AllowedOrigins []string

	TextGenProvider string
	HFAPIKey        string
	HFBaseURL       string
	HFTextModel     string
	HFImageModel    string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	QwenAPIKey          string
	QwenModel           string
	QwenBaseURL         string
	PollinationsBaseURL string
	ProviderTimeout     time.Duration

	OnboardingCredits   int
	StripeSecretKey     string
	StripeWebhookSecret string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           port,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		TextGenProvider: strings.ToLower(getEnv("TEXTGEN_PROVIDER", "huggingface")),
		HFAPIKey:        strings.TrimSpace(os.Getenv("HF_API_KEY")),
		HFBaseURL:       getEnv("HF_BASE_URL", "https://router.huggingface.co/hf-inference"),
		HFTextModel:     getEnv("HF_TEXT_MODEL", "mistralai/Mistral-7B-Instruct-v0.2"),
		HFImageModel:    getEnv("HF_IMAGE_MODEL", "stabilityai/stable-diffusion-xl-base-1.0"),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),

		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		QwenAPIKey:          strings.TrimSpace(os.Getenv("QWEN_API_KEY")),
		QwenModel:           getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenBaseURL:         getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		PollinationsBaseURL: getEnv("POLLINATIONS_BASE_URL", "https://image.pollinations.ai"),
		ProviderTimeout:     time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)),

		OnboardingCredits:   getEnvInt("ONBOARDING_CREDITS", 0),
		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	switch cfg.TextGenProvider {
	case "huggingface", "openai", "none":
	default:
		return nil, fmt.Errorf("unsupported TEXTGEN_PROVIDER %q", cfg.TextGenProvider)
	}
	if cfg.OnboardingCredits < 0 {
		return nil, fmt.Errorf("ONBOARDING_CREDITS must not be negative")
	}
	if cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be positive")
	}
	// The write timeout defaults to the provider chain budget and may not be
	// set below it.
	minWrite := MinWriteTimeout(cfg.ProviderTimeout)
	if cfg.HTTPWriteTimeout <= 0 {
		cfg.HTTPWriteTimeout = minWrite
	}
	if cfg.HTTPWriteTimeout < minWrite {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT_SECONDS must be at least %d with PROVIDER_TIMEOUT_SECONDS=%d",
			int(minWrite/time.Second), int(cfg.ProviderTimeout/time.Second))
	}
	if cfg.StripeSecretKey != "" && cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
