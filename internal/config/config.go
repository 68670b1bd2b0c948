// Package config resolves open-mem's configuration in the order
// defaults ← environment (OPEN_MEM_* prefix) ← programmatic overrides,
// via github.com/spf13/viper, mirroring the teacher's per-file viper
// instances in cmd/bd/config.go and internal/config/local_config.go.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Provider names an AI provider. Autodetected from credential env
// presence (Google -> Anthropic -> Bedrock) unless explicitly set.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
	ProviderNone      Provider = ""
)

// defaultEmbeddingDimension is provider-specific; Anthropic has no
// embeddings endpoint so its default of 0 signals "disabled" (open-mem's
// gateway falls back to a local hash-based embedding regardless, but a
// zero dimension here means "don't even attempt semantic search sizing
// against a dimension the provider never promised").
var defaultEmbeddingDimension = map[Provider]int{
	ProviderGoogle:    768,
	ProviderAnthropic: 0,
	ProviderBedrock:   1024,
	ProviderNone:      0,
}

// Config is open-mem's fully resolved runtime configuration.
type Config struct {
	DBPath                     string
	Provider                   Provider
	APIKey                     string
	Model                      string
	MaxTokensPerCompression    int
	CompressionEnabled         bool
	ContextInjectionEnabled    bool
	MaxContextTokens           int
	BatchSize                  int
	BatchIntervalMs            int
	IgnoredTools               []string
	MinOutputLength            int
	MaxIndexEntries            int
	SensitivePatterns          []string
	RetentionDays              int
	MaxDatabaseSizeMb          int
	LogLevel                   string
	ContextShowTokenCosts      bool
	ContextObservationTypes    []string
	ContextFullObservationCount int
	MaxObservations            int
	ContextShowLastSummary     bool
	RateLimitingEnabled        bool
	FolderContextEnabled       bool
	FolderContextMaxDepth      int
	DaemonEnabled              bool
	DashboardEnabled           bool
	DashboardPort              int
	EmbeddingDimension         int
	UserMemoryEnabled          bool
	UserMemoryDbPath           string
	UserMemoryMaxContextTokens int
	RerankingEnabled           bool
	RerankingMaxCandidates     int
	EntityExtractionEnabled    bool
}

const envPrefix = "OPEN_MEM"

// Load resolves configuration for projectRoot: viper defaults, then
// environment variables prefixed OPEN_MEM_, then any programmatic
// overrides (applied last, so callers always win).
func Load(projectRoot string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg := &Config{
		DBPath:                      resolveDBPath(projectRoot, v.GetString("dbPath")),
		Provider:                    resolveProvider(v),
		APIKey:                      v.GetString("apiKey"),
		Model:                       v.GetString("model"),
		MaxTokensPerCompression:     v.GetInt("maxTokensPerCompression"),
		CompressionEnabled:          v.GetBool("compressionEnabled"),
		ContextInjectionEnabled:     v.GetBool("contextInjectionEnabled"),
		MaxContextTokens:            v.GetInt("maxContextTokens"),
		BatchSize:                   v.GetInt("batchSize"),
		BatchIntervalMs:             v.GetInt("batchIntervalMs"),
		IgnoredTools:                v.GetStringSlice("ignoredTools"),
		MinOutputLength:             v.GetInt("minOutputLength"),
		MaxIndexEntries:             v.GetInt("maxIndexEntries"),
		SensitivePatterns:           v.GetStringSlice("sensitivePatterns"),
		RetentionDays:               v.GetInt("retentionDays"),
		MaxDatabaseSizeMb:           v.GetInt("maxDatabaseSizeMb"),
		LogLevel:                    v.GetString("logLevel"),
		ContextShowTokenCosts:       v.GetBool("contextShowTokenCosts"),
		ContextObservationTypes:     v.GetStringSlice("contextObservationTypes"),
		ContextFullObservationCount: v.GetInt("contextFullObservationCount"),
		MaxObservations:             v.GetInt("maxObservations"),
		ContextShowLastSummary:      v.GetBool("contextShowLastSummary"),
		RateLimitingEnabled:         v.GetBool("rateLimitingEnabled"),
		FolderContextEnabled:        v.GetBool("folderContextEnabled"),
		FolderContextMaxDepth:       v.GetInt("folderContextMaxDepth"),
		DaemonEnabled:               v.GetBool("daemonEnabled"),
		DashboardEnabled:            v.GetBool("dashboardEnabled"),
		DashboardPort:               v.GetInt("dashboardPort"),
		UserMemoryEnabled:           v.GetBool("userMemoryEnabled"),
		UserMemoryDbPath:            v.GetString("userMemoryDbPath"),
		UserMemoryMaxContextTokens:  v.GetInt("userMemoryMaxContextTokens"),
		RerankingEnabled:            v.GetBool("rerankingEnabled"),
		RerankingMaxCandidates:      v.GetInt("rerankingMaxCandidates"),
		EntityExtractionEnabled:     v.GetBool("entityExtractionEnabled"),
	}

	if v.IsSet("embeddingDimension") {
		cfg.EmbeddingDimension = v.GetInt("embeddingDimension")
	} else {
		cfg.EmbeddingDimension = defaultEmbeddingDimension[cfg.Provider]
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dbPath", ".open-mem/memory.db")
	v.SetDefault("model", "claude-3-5-haiku-latest")
	v.SetDefault("maxTokensPerCompression", 512)
	v.SetDefault("compressionEnabled", true)
	v.SetDefault("contextInjectionEnabled", true)
	v.SetDefault("maxContextTokens", 4000)
	v.SetDefault("batchSize", 10)
	v.SetDefault("batchIntervalMs", 2000)
	v.SetDefault("ignoredTools", []string{})
	v.SetDefault("minOutputLength", 20)
	v.SetDefault("maxIndexEntries", 50)
	v.SetDefault("sensitivePatterns", []string{})
	v.SetDefault("retentionDays", 0)
	v.SetDefault("maxDatabaseSizeMb", 0)
	v.SetDefault("logLevel", "info")
	v.SetDefault("contextShowTokenCosts", true)
	v.SetDefault("contextObservationTypes", []string{})
	v.SetDefault("contextFullObservationCount", 5)
	v.SetDefault("maxObservations", 0)
	v.SetDefault("contextShowLastSummary", true)
	v.SetDefault("rateLimitingEnabled", true)
	v.SetDefault("folderContextEnabled", false)
	v.SetDefault("folderContextMaxDepth", 3)
	v.SetDefault("daemonEnabled", false)
	v.SetDefault("dashboardEnabled", false)
	v.SetDefault("dashboardPort", 7777)
	v.SetDefault("userMemoryEnabled", false)
	v.SetDefault("userMemoryDbPath", "")
	v.SetDefault("userMemoryMaxContextTokens", 1000)
	v.SetDefault("rerankingEnabled", false)
	v.SetDefault("rerankingMaxCandidates", 20)
	v.SetDefault("entityExtractionEnabled", false)
}

func resolveDBPath(projectRoot, dbPath string) string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(projectRoot, dbPath)
}

// resolveProvider autodetects from credential env presence in the order
// Google, Anthropic, Bedrock, unless explicitly configured.
func resolveProvider(v *viper.Viper) Provider {
	if p := v.GetString("provider"); p != "" {
		return Provider(p)
	}
	switch {
	case v.GetString("googleApiKey") != "":
		return ProviderGoogle
	case v.GetString("apiKey") != "", v.GetString("anthropicApiKey") != "":
		return ProviderAnthropic
	case v.GetString("awsAccessKeyId") != "":
		return ProviderBedrock
	default:
		return ProviderNone
	}
}

// Validate checks cfg against §4.8's validation rules.
func Validate(cfg *Config) error {
	keyRequiring := cfg.Provider == ProviderAnthropic || cfg.Provider == ProviderGoogle
	if cfg.CompressionEnabled && keyRequiring && cfg.APIKey == "" {
		return fmt.Errorf("config: compression enabled for provider %q but no API key configured", cfg.Provider)
	}
	if cfg.MaxContextTokens < 500 {
		return fmt.Errorf("config: maxContextTokens must be >= 500, got %d", cfg.MaxContextTokens)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("config: batchSize must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.MinOutputLength < 0 {
		return fmt.Errorf("config: minOutputLength must be >= 0, got %d", cfg.MinOutputLength)
	}
	return nil
}
