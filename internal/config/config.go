// Package config builds the immutable Config struct every component
// is constructed from. No component reads the environment or flags
// directly — everything funnels through here once, at startup, per
// spec.md §9's "global config singleton becomes an explicit struct"
// redesign note.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HybridWeights are the fusion weights from spec.md §4.D.
type HybridWeights struct {
	Semantic float64 `mapstructure:"sem"`
	Lexical  float64 `mapstructure:"lex"`
	Recency  float64 `mapstructure:"rec"`
	Quality  float64 `mapstructure:"qual"`
}

// Config is the fully resolved, immutable application configuration.
type Config struct {
	// Storage
	DatabaseURL string

	// Ingest
	Remotes             []string
	IngestInterval      time.Duration
	DeriveToolsFromMCP  bool
	IngestWorkerPool    int

	// Search
	LexicalBackend     string // "pgtrgm" | "none"
	VectorBackend      string // "pgvector" | "none"
	HybridWeights      HybridWeights
	RAGEnabled         bool
	RecencyTauDays     float64
	PublicSearchLimitCap int

	// Gateway
	GatewayURL      string
	GatewayToken    string
	GatewayJWTSecret string
	GatewayAdminUser string

	// Public base
	PublicBaseURL string

	// Security
	AdminToken string

	// HTTP server
	ListenAddress string
}

const (
	defaultIngestInterval       = 15 * time.Minute
	defaultIngestWorkerPool     = 4
	defaultRecencyTauDays       = 30.0
	defaultPublicSearchLimitCap = 5
	defaultListenAddress        = ":8080"
)

// Load builds a Config from environment variables (prefix MATRIX_HUB),
// a config file (if present), and defaults. It never panics; callers
// decide how to report a misconfiguration (spec.md exit code 2).
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("MATRIX_HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	v.SetDefault("ingest.interval_minutes", 15)
	v.SetDefault("ingest.derive_tools_from_mcp", true)
	v.SetDefault("ingest.worker_pool", defaultIngestWorkerPool)
	v.SetDefault("search.lexical_backend", "none")
	v.SetDefault("search.vector_backend", "none")
	v.SetDefault("search.hybrid_weights.sem", 0.35)
	v.SetDefault("search.hybrid_weights.lex", 0.35)
	v.SetDefault("search.hybrid_weights.rec", 0.15)
	v.SetDefault("search.hybrid_weights.qual", 0.15)
	v.SetDefault("search.rag_enabled", false)
	v.SetDefault("search.recency_tau_days", defaultRecencyTauDays)
	v.SetDefault("search.public_search_limit_cap", defaultPublicSearchLimitCap)
	v.SetDefault("listen_address", defaultListenAddress)

	cfg := &Config{
		DatabaseURL:          v.GetString("database_url"),
		Remotes:              v.GetStringSlice("ingest.remotes"),
		IngestInterval:       time.Duration(v.GetInt("ingest.interval_minutes")) * time.Minute,
		DeriveToolsFromMCP:   v.GetBool("ingest.derive_tools_from_mcp"),
		IngestWorkerPool:     v.GetInt("ingest.worker_pool"),
		LexicalBackend:       v.GetString("search.lexical_backend"),
		VectorBackend:        v.GetString("search.vector_backend"),
		RAGEnabled:           v.GetBool("search.rag_enabled"),
		RecencyTauDays:       v.GetFloat64("search.recency_tau_days"),
		PublicSearchLimitCap: v.GetInt("search.public_search_limit_cap"),
		HybridWeights: HybridWeights{
			Semantic: v.GetFloat64("search.hybrid_weights.sem"),
			Lexical:  v.GetFloat64("search.hybrid_weights.lex"),
			Recency:  v.GetFloat64("search.hybrid_weights.rec"),
			Quality:  v.GetFloat64("search.hybrid_weights.qual"),
		},
		GatewayURL:       v.GetString("gateway.url"),
		GatewayToken:     v.GetString("gateway.token"),
		GatewayJWTSecret: v.GetString("gateway.jwt_secret"),
		GatewayAdminUser: v.GetString("gateway.admin_username"),
		PublicBaseURL:    v.GetString("public_base_url"),
		AdminToken:       v.GetString("admin_token"),
		ListenAddress:    v.GetString("listen_address"),
	}

	if cfg.IngestWorkerPool <= 0 {
		cfg.IngestWorkerPool = defaultIngestWorkerPool
	}
	if cfg.IngestInterval <= 0 {
		cfg.IngestInterval = defaultIngestInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a configuration without a database_url. A loopback
// public_base_url is not an error here (Diagnostics reports it), and
// the gateway fields are not checked (the gateway is only required for
// install/sync).
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if c.PublicBaseURL != "" && (strings.Contains(c.PublicBaseURL, "127.0.0.1") ||
		strings.Contains(c.PublicBaseURL, "localhost")) {
		// Not fatal: spec.md calls this a "configuration bug" to be
		// surfaced in diagnostics, not a hard validation failure.
		return nil
	}
	return nil
}

// Diagnostics returns human-readable configuration warnings, such as
// the public_base_url loopback bug spec.md §4.D calls out.
func (c *Config) Diagnostics() []string {
	var warnings []string
	if strings.Contains(c.PublicBaseURL, "127.0.0.1") {
		warnings = append(warnings, "public_base_url is set to a loopback address (127.0.0.1); install_url links will not resolve for external clients")
	}
	if c.PublicBaseURL == "" {
		warnings = append(warnings, "public_base_url is not configured; install_url links will be relative")
	}
	return warnings
}
