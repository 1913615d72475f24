package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Patch splitting knobs
	Split SplitConfig `yaml:"split" mapstructure:"split"`

	// Symbol analysis settings
	Analyzer AnalyzerConfig `yaml:"analyzer" mapstructure:"analyzer"`

	// Semantic grouping weights
	Cohesion CohesionConfig `yaml:"cohesion" mapstructure:"cohesion"`

	// LLM enrichment settings
	Enrichment EnrichmentConfig `yaml:"enrichment" mapstructure:"enrichment"`

	// Extraction cache settings
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Output settings
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// GitHub access for PR diff sources
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`
}

type SplitConfig struct {
	TargetSize int     `yaml:"target_size" mapstructure:"target_size"` // changed lines per patch
	MaxFactor  float64 `yaml:"max_factor" mapstructure:"max_factor"`   // size ceiling = target * max_factor
	MinFactor  float64 `yaml:"min_factor" mapstructure:"min_factor"`   // size floor = target * min_factor
	MaxPatches int     `yaml:"max_patches" mapstructure:"max_patches"` // 0 = unlimited
}

type AnalyzerConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // parallel symbol extraction
}

type CohesionConfig struct {
	FileWeight    float64 `yaml:"file_weight" mapstructure:"file_weight"`
	SymbolWeight  float64 `yaml:"symbol_weight" mapstructure:"symbol_weight"`
	PatternWeight float64 `yaml:"pattern_weight" mapstructure:"pattern_weight"`
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"` // minimum cohesion to merge
}

type EnrichmentConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit int           `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

type GitHubConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Split: SplitConfig{
			TargetSize: 200,
			MaxFactor:  1.5,
			MinFactor:  0.5,
		},
		Analyzer: AnalyzerConfig{
			Workers: 8,
		},
		Cohesion: CohesionConfig{
			FileWeight:    0.5,
			SymbolWeight:  0.3,
			PatternWeight: 0.2,
			Threshold:     0.3,
		},
		Enrichment: EnrichmentConfig{
			Enabled:   false,
			Model:     "gpt-4o-mini",
			Timeout:   20 * time.Second,
			RateLimit: 2,
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    filepath.Join(homeDir, ".patchforge", "symbols.db"),
		},
		Output: OutputConfig{
			Dir: "patches",
		},
		GitHub: GitHubConfig{
			RateLimit: 10,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first so env overrides see them
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("split", cfg.Split)
	v.SetDefault("analyzer", cfg.Analyzer)
	v.SetDefault("cohesion", cfg.Cohesion)
	v.SetDefault("enrichment", cfg.Enrichment)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("output", cfg.Output)
	v.SetDefault("github", cfg.GitHub)

	v.SetEnvPrefix("PATCHFORGE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".patchforge")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".patchforge"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	if c.Split.TargetSize <= 0 {
		return fmt.Errorf("split.target_size must be positive, got %d", c.Split.TargetSize)
	}
	if c.Split.MaxFactor < 1.0 {
		return fmt.Errorf("split.max_factor must be >= 1.0, got %g", c.Split.MaxFactor)
	}
	if c.Split.MinFactor < 0 || c.Split.MinFactor > 1.0 {
		return fmt.Errorf("split.min_factor must be in [0,1], got %g", c.Split.MinFactor)
	}
	if c.Analyzer.Workers <= 0 {
		return fmt.Errorf("analyzer.workers must be positive, got %d", c.Analyzer.Workers)
	}
	if c.Cohesion.Threshold < 0 || c.Cohesion.Threshold > 1 {
		return fmt.Errorf("cohesion.threshold must be in [0,1], got %g", c.Cohesion.Threshold)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".patchforge", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Enrichment.APIKey = key
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if target := os.Getenv("PATCHFORGE_TARGET_SIZE"); target != "" {
		if n, err := strconv.Atoi(target); err == nil && n > 0 {
			cfg.Split.TargetSize = n
		}
	}
	if workers := os.Getenv("PATCHFORGE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Analyzer.Workers = n
		}
	}
	if enabled := os.Getenv("PATCHFORGE_ENRICHMENT"); enabled != "" {
		cfg.Enrichment.Enabled = enabled == "true" || enabled == "1"
	}
}
