package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hpungsan/lanequote/internal/logging"
)

// Environment variables holding provider API keys.
const (
	EnvGeoapifyKey = "GEOAPIFY_API_KEY"
	EnvGeminiKey   = "GEMINI_API_KEY"
	EnvHome        = "LANEQUOTE_HOME"
)

// Config holds application configuration.
type Config struct {
	// ReferenceTTLSeconds is how long a loaded reference snapshot (price list,
	// rate card, terms, both caches) is served before it is reloaded.
	ReferenceTTLSeconds int `json:"reference_ttl_seconds"`

	// SummaryTTLSeconds bounds the in-process memo of provider results
	// (distances and client summaries).
	SummaryTTLSeconds int `json:"summary_ttl_seconds"`

	// ProviderTimeoutSeconds bounds each geocode/route/generate round trip.
	ProviderTimeoutSeconds int `json:"provider_timeout_seconds"`

	// BatchWorkers is the number of batch rows resolved concurrently.
	BatchWorkers int `json:"batch_workers"`

	// GeoapifyBaseURL is the geocoding/routing API root.
	GeoapifyBaseURL string `json:"geoapify_base_url,omitempty"`

	// GeminiModel is the generative model used for client summaries.
	GeminiModel string `json:"gemini_model,omitempty"`

	// TemplatePath overrides the embedded quote document template.
	TemplatePath string `json:"template_path,omitempty"`

	// DefaultCurrency is used when a request does not name one.
	DefaultCurrency string `json:"default_currency,omitempty"`

	// AllowedPaths is an allowlist of directories documents and workbooks may be written to.
	// Paths outside <base>/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for written files.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// Logging configures the process logger.
	Logging logging.Config `json:"logging"`

	// BaseDir is where the database, exports and .env live. Not read from JSON.
	BaseDir string `json:"-"`
}

// Secrets holds provider API keys. An empty key disables that provider.
type Secrets struct {
	GeoapifyAPIKey string
	GeminiAPIKey   string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ReferenceTTLSeconds:    600,
		SummaryTTLSeconds:      3600,
		ProviderTimeoutSeconds: 15,
		BatchWorkers:           4,
		GeoapifyBaseURL:        "https://api.geoapify.com/v1",
		GeminiModel:            "gemini-flash-latest",
		Logging:                logging.DefaultConfig(),
	}
}

// ReferenceTTL returns ReferenceTTLSeconds as a duration.
func (c *Config) ReferenceTTL() time.Duration {
	return time.Duration(c.ReferenceTTLSeconds) * time.Second
}

// SummaryTTL returns SummaryTTLSeconds as a duration.
func (c *Config) SummaryTTL() time.Duration {
	return time.Duration(c.SummaryTTLSeconds) * time.Second
}

// ProviderTimeout returns ProviderTimeoutSeconds as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// ExportsDir returns the default output directory for documents and workbooks.
func (c *Config) ExportsDir() string {
	return filepath.Join(c.BaseDir, "exports")
}

// DefaultBaseDir returns $LANEQUOTE_HOME or ~/.lanequote.
func DefaultBaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lanequote"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.lanequote.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = baseDir
	return cfg, nil
}

// LoadSecrets reads provider keys from the environment, falling back to
// baseDir/.env. Process environment wins over the file.
func LoadSecrets(baseDir string) (Secrets, error) {
	fileEnv, err := godotenv.Read(filepath.Join(baseDir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Secrets{}, err
	}

	get := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(fileEnv[key])
	}

	return Secrets{
		GeoapifyAPIKey: get(EnvGeoapifyKey),
		GeminiAPIKey:   get(EnvGeminiKey),
	}, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.ReferenceTTLSeconds = firstPositive(overlay.ReferenceTTLSeconds, base.ReferenceTTLSeconds)
	result.SummaryTTLSeconds = firstPositive(overlay.SummaryTTLSeconds, base.SummaryTTLSeconds)
	result.ProviderTimeoutSeconds = firstPositive(overlay.ProviderTimeoutSeconds, base.ProviderTimeoutSeconds)
	result.BatchWorkers = firstPositive(overlay.BatchWorkers, base.BatchWorkers)
	result.DBMaxOpenConns = firstPositive(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstPositive(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.GeoapifyBaseURL = firstNonEmpty(overlay.GeoapifyBaseURL, base.GeoapifyBaseURL)
	result.GeminiModel = firstNonEmpty(overlay.GeminiModel, base.GeminiModel)
	result.TemplatePath = firstNonEmpty(overlay.TemplatePath, base.TemplatePath)
	result.DefaultCurrency = firstNonEmpty(overlay.DefaultCurrency, base.DefaultCurrency)
	result.BaseDir = firstNonEmpty(overlay.BaseDir, base.BaseDir)

	result.Logging.Level = firstNonEmpty(overlay.Logging.Level, base.Logging.Level)
	result.Logging.Format = firstNonEmpty(overlay.Logging.Format, base.Logging.Format)
	result.Logging.Output = firstNonEmpty(overlay.Logging.Output, base.Logging.Output)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
