package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OCRProviderVision = "vision"
	OCRProviderOpenAI = "openai"

	NLPProviderLanguage = "language"
	NLPProviderOllama   = "ollama"
	NLPProviderNone     = "none"
)

type Config struct {
	APIPort    string
	LogLevel   string
	ConfigFile string

	OCRProvider    string
	VisionAPIKey   string
	VisionEndpoint string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIOCRModel string

	NLPProvider      string
	LanguageAPIKey   string
	LanguageEndpoint string
	OllamaURL        string
	OllamaGenModel   string

	Workers            int
	FileTimeoutSeconds int
	MaxFiles           int
	MaxUploadMB        int

	PDFOCRFallback   bool
	ImageMaxWidth    int
	ImageJPEGQuality int

	SplitUnclassified     bool
	UnifyExtractionErrors bool

	ArchiveCompressionLevel int
	ArchiveSummaryXLSX      bool

	PostgresDSN string
	NATSURL     string
	NATSSubject string

	RateLimitRPS          float64
	RateLimitBurst        int
	MaxInFlight           int
	BackpressureWaitMilli int

	RetryMaxAttempts int
	BreakerEnabled   bool
}

// Load reads configuration from the environment. When SORTER_CONFIG_FILE
// names a YAML file, its keys (same names as the environment variables)
// provide base values and the environment overrides them.
func Load() (Config, error) {
	src := source{}
	path := strings.TrimSpace(os.Getenv("SORTER_CONFIG_FILE"))
	if path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = values
	}

	return Config{
		APIPort:    src.mustEnv("API_PORT", "8080"),
		LogLevel:   src.mustEnv("LOG_LEVEL", "info"),
		ConfigFile: path,

		OCRProvider:    strings.ToLower(src.mustEnv("OCR_PROVIDER", OCRProviderVision)),
		VisionAPIKey:   src.mustEnv("VISION_API_KEY", ""),
		VisionEndpoint: src.mustEnv("VISION_ENDPOINT", "https://vision.googleapis.com"),
		OpenAIAPIKey:   src.mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  src.mustEnv("OPENAI_BASE_URL", ""),
		OpenAIOCRModel: src.mustEnv("OPENAI_OCR_MODEL", "gpt-4o-mini"),

		NLPProvider:      strings.ToLower(src.mustEnv("NLP_PROVIDER", NLPProviderLanguage)),
		LanguageAPIKey:   src.mustEnv("LANGUAGE_API_KEY", ""),
		LanguageEndpoint: src.mustEnv("LANGUAGE_ENDPOINT", "https://language.googleapis.com"),
		OllamaURL:        src.mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   src.mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		Workers:            src.mustEnvInt("SORTER_WORKERS", 4),
		FileTimeoutSeconds: src.mustEnvInt("SORTER_FILE_TIMEOUT_SECONDS", 60),
		MaxFiles:           src.mustEnvInt("SORTER_MAX_FILES", 200),
		MaxUploadMB:        src.mustEnvInt("SORTER_MAX_UPLOAD_MB", 100),

		PDFOCRFallback:   src.mustEnvBool("SORTER_PDF_OCR_FALLBACK", true),
		ImageMaxWidth:    src.mustEnvInt("IMAGE_MAX_WIDTH", 2048),
		ImageJPEGQuality: src.mustEnvInt("IMAGE_JPEG_QUALITY", 85),

		SplitUnclassified:     src.mustEnvBool("SORTER_SPLIT_UNCLASSIFIED", false),
		UnifyExtractionErrors: src.mustEnvBool("SORTER_UNIFY_EXTRACTION_ERRORS", false),

		ArchiveCompressionLevel: src.mustEnvInt("ARCHIVE_COMPRESSION_LEVEL", 6),
		ArchiveSummaryXLSX:      src.mustEnvBool("ARCHIVE_SUMMARY_XLSX", false),

		PostgresDSN: src.mustEnv("POSTGRES_DSN", ""),
		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "documents.categorized"),

		RateLimitRPS:          src.mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		RateLimitBurst:        src.mustEnvInt("API_RATE_LIMIT_BURST", 10),
		MaxInFlight:           src.mustEnvInt("API_MAX_IN_FLIGHT", 0),
		BackpressureWaitMilli: src.mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		RetryMaxAttempts: src.mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		BreakerEnabled:   src.mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
	}, nil
}

// Validate reports every configuration problem that would otherwise surface
// as per-file backend failures.
func (c Config) Validate() error {
	var errs []error

	switch c.OCRProvider {
	case OCRProviderVision:
		if strings.TrimSpace(c.VisionAPIKey) == "" {
			errs = append(errs, errors.New("VISION_API_KEY is required when OCR_PROVIDER=vision"))
		}
	case OCRProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when OCR_PROVIDER=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_PROVIDER %q (use vision or openai)", c.OCRProvider))
	}

	switch c.NLPProvider {
	case NLPProviderLanguage:
		if strings.TrimSpace(c.LanguageAPIKey) == "" {
			errs = append(errs, errors.New("LANGUAGE_API_KEY is required when NLP_PROVIDER=language"))
		}
	case NLPProviderOllama:
		if strings.TrimSpace(c.OllamaURL) == "" {
			errs = append(errs, errors.New("OLLAMA_URL is required when NLP_PROVIDER=ollama"))
		}
	case NLPProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown NLP_PROVIDER %q (use language, ollama or none)", c.NLPProvider))
	}

	positive := []struct {
		key   string
		value int
	}{
		{"SORTER_WORKERS", c.Workers},
		{"SORTER_FILE_TIMEOUT_SECONDS", c.FileTimeoutSeconds},
		{"SORTER_MAX_FILES", c.MaxFiles},
		{"SORTER_MAX_UPLOAD_MB", c.MaxUploadMB},
		{"IMAGE_MAX_WIDTH", c.ImageMaxWidth},
		{"RESILIENCE_RETRY_MAX_ATTEMPTS", c.RetryMaxAttempts},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", p.key, p.value))
		}
	}
	if c.ImageJPEGQuality < 1 || c.ImageJPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("IMAGE_JPEG_QUALITY must be in 1..100, got %d", c.ImageJPEGQuality))
	}
	if c.ArchiveCompressionLevel < -2 || c.ArchiveCompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("ARCHIVE_COMPRESSION_LEVEL must be in -2..9, got %d", c.ArchiveCompressionLevel))
	}
	if c.RateLimitRPS < 0 || c.MaxInFlight < 0 {
		errs = append(errs, errors.New("API_RATE_LIMIT_RPS and API_MAX_IN_FLIGHT must not be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("API_RATE_LIMIT_BURST must be > 0 when rate limiting, got %d", c.RateLimitBurst))
	}
	if c.NATSURL != "" && strings.TrimSpace(c.NATSSubject) == "" {
		errs = append(errs, errors.New("NATS_SUBJECT is required when NATS_URL is set"))
	}

	return errors.Join(errs...)
}

func (c Config) FileTimeout() time.Duration {
	return time.Duration(c.FileTimeoutSeconds) * time.Second
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.BackpressureWaitMilli) * time.Millisecond
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = fmt.Sprint(v)
	}
	return out, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}
