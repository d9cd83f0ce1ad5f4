package model

import "time"

// Deadline policies for claim verification that runs out of time with
// partial scores in hand.
const (
	OnDeadlineFail         = "fail"
	OnDeadlineInsufficient = "insufficient"
)

// Config is the full runtime configuration. Everything tunable lives here
// and is passed into constructors explicitly; nothing is discovered at
// query time.
type Config struct {
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Index       IndexConfig       `yaml:"index" mapstructure:"index"`
	NLI         NLIConfig         `yaml:"nli" mapstructure:"nli"`
	Aggregation AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// EmbeddingConfig configures the external embedding collaborator.
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"` // openai, mock
	Model        string        `yaml:"model" mapstructure:"model"`
	ModelVersion string        `yaml:"model_version" mapstructure:"model_version"`
	Dimension    int           `yaml:"dimension" mapstructure:"dimension"` // 384 or 1536
	APIKey       string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// IndexConfig holds the IVF tuning knobs. Both are runtime-settable so the
// benchmark harness can sweep them without redeploying.
type IndexConfig struct {
	Lists       int `yaml:"lists" mapstructure:"lists"`
	ProbeBudget int `yaml:"probe_budget" mapstructure:"probe_budget"`
}

// NLIConfig configures the external entailment classifier and the retry
// behavior around it.
type NLIConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // openai, mock
	Model             string        `yaml:"model" mapstructure:"model"`
	ModelVersion      string        `yaml:"model_version" mapstructure:"model_version"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"` // per classifier call
	MaxAttempts       int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// AggregationConfig holds the verdict decision thresholds. The defaults
// are explicit constants subject to the same tests as the aggregator.
type AggregationConfig struct {
	// AcceptanceThreshold is the minimum weighted class score for a
	// SUPPORTED or REFUTED verdict.
	AcceptanceThreshold float64 `yaml:"acceptance_threshold" mapstructure:"acceptance_threshold"`
	// SignificanceFloor is the minimum each side must reach before
	// disagreement counts as CONFLICTING.
	SignificanceFloor float64 `yaml:"significance_floor" mapstructure:"significance_floor"`
	// BalanceRatio bounds how lopsided supporting/refuting counts may be
	// while still counting as balanced disagreement.
	BalanceRatio float64 `yaml:"balance_ratio" mapstructure:"balance_ratio"`
}

// PipelineConfig configures one verification run end to end.
type PipelineConfig struct {
	Version    string        `yaml:"version" mapstructure:"version"`
	TopK       int           `yaml:"top_k" mapstructure:"top_k"`
	Deadline   time.Duration `yaml:"deadline" mapstructure:"deadline"`
	OnDeadline string        `yaml:"on_deadline" mapstructure:"on_deadline"` // fail | insufficient
	TenantID   string        `yaml:"tenant_id" mapstructure:"tenant_id"`
}

// ConcurrencyConfig bounds parallelism.
type ConcurrencyConfig struct {
	ScoringWorkers int `yaml:"scoring_workers" mapstructure:"scoring_workers"`
	BatchWorkers   int `yaml:"batch_workers" mapstructure:"batch_workers"`
	IngestWorkers  int `yaml:"ingest_workers" mapstructure:"ingest_workers"`
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// CacheConfig configures the embedding cache tiers.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// Default aggregation thresholds. See AggregationConfig.
const (
	DefaultAcceptanceThreshold = 0.30
	DefaultSignificanceFloor   = 0.10
	DefaultBalanceRatio        = 2.0
)

// DefaultConfig returns the built-in defaults. Config files, environment
// variables and flags override these.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:     "openai",
			Model:        "text-embedding-3-small",
			ModelVersion: "1",
			Dimension:    1536,
			Timeout:      30 * time.Second,
		},
		Index: IndexConfig{
			Lists:       16,
			ProbeBudget: 4,
		},
		NLI: NLIConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			ModelVersion:      "1",
			Timeout:           30 * time.Second,
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Aggregation: AggregationConfig{
			AcceptanceThreshold: DefaultAcceptanceThreshold,
			SignificanceFloor:   DefaultSignificanceFloor,
			BalanceRatio:        DefaultBalanceRatio,
		},
		Pipeline: PipelineConfig{
			Version:    "v1",
			TopK:       10,
			Deadline:   2 * time.Minute,
			OnDeadline: OnDeadlineFail,
			TenantID:   "default",
		},
		Concurrency: ConcurrencyConfig{
			ScoringWorkers: 8,
			BatchWorkers:   4,
			IngestWorkers:  8,
		},
		Storage: StorageConfig{
			DatabasePath: "veracity.db",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".veracity-cache",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
