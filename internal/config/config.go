// Package config aggregates the agent's runtime configuration, loaded from
// a JSON file on disk with compiled-in defaults, following the teacher's
// Load/DefaultAppConfigJSON/ConvertJSONToAppConfig triad in app.go.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/fntelecomllc/kbagent/internal/logging"
)

// AppConfig aggregates every subsystem's configuration.
type AppConfig struct {
	Server            ServerConfig      `json:"server"`
	Worker            WorkerConfig      `json:"worker"`
	RateLimiter       RateLimiterConfig `json:"rateLimiter"`
	Retry             RetryConfig       `json:"retry"`
	ETC               ETCConfig         `json:"etc"`
	ModelBindings     ModelBindingsConfig `json:"modelBindings"`
	Storage           StorageConfig     `json:"storage"`
	TaskRetentionDays int               `json:"taskRetentionDays"`
	Heartbeat         HeartbeatConfig   `json:"heartbeat"`
	AITimeouts        AITimeoutsConfig  `json:"aiTimeouts"`
	Logging           LoggingConfig     `json:"logging"`
	Features          FeatureFlags      `json:"features"`

	loadedFromPath string
}

// ServerConfig is the interface-only HTTP front-door surface; §6 is
// out of scope for implementation beyond a minimal health/readiness API.
type ServerConfig struct {
	ListenAddr          string `json:"listenAddr"`
	ReadTimeoutSeconds  int    `json:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `json:"writeTimeoutSeconds"`
	GinMode             string `json:"ginMode"`
}

// WorkerConfig sizes the TaskRuntime's per-queue worker pools (PoolSizes)
// and the pipeline engine's per-item fanout. The poll-interval, retry and
// job-timeout fields are not read by any component.
type WorkerConfig struct {
	PollIntervalSeconds         int            `json:"pollIntervalSeconds"`
	MaxJobRetries               int            `json:"maxJobRetries"`
	ErrorRetryDelaySeconds      int            `json:"errorRetryDelaySeconds"`
	JobProcessingTimeoutMinutes int            `json:"jobProcessingTimeoutMinutes"`
	PoolSizes                   map[string]int `json:"poolSizes"`
	PerItemFanout               int            `json:"perItemFanout"`
}

// RateLimiterConfig carries per-queue token-bucket rate and burst.
type RateLimiterConfig struct {
	PerQueue map[string]QueueRateLimit `json:"perQueue"`
}

// QueueRateLimit is one queue's tokens-per-minute and burst size.
type QueueRateLimit struct {
	PerMinute int `json:"perMinute"`
	Burst     int `json:"burst"`
}

// RetryConfig is the RetryManager's default policy.
type RetryConfig struct {
	MaxRetries                    int     `json:"maxRetries"`
	BaseDelaySeconds               float64 `json:"baseDelaySeconds"`
	MaxDelaySeconds                float64 `json:"maxDelaySeconds"`
	ExponentialFactor              float64 `json:"exponentialFactor"`
	JitterEnabled                  bool    `json:"jitterEnabled"`
	Strategy                       string  `json:"strategy"`
	CircuitBreakerCooloffMinutes   int     `json:"circuitBreakerCooloffMinutes"`
}

// ETCConfig carries ring-capacity and noise-filter settings for the
// ETCEstimator. etc.New does not read it: the estimator uses its own
// RingCapacity constant and fixed sample bounds.
type ETCConfig struct {
	RingCapacity       int     `json:"ringCapacity"`
	MinSampleSeconds    float64 `json:"minSampleSeconds"`
	MaxSampleSeconds    float64 `json:"maxSampleSeconds"`
}

// ModelBindingsConfig points at the file-backed phase->model binding table,
// ground: LoadHTTPPersonas/GetHTTPPersonaByID pattern in http_persona.go.
type ModelBindingsConfig struct {
	ConfigDir string `json:"configDir"`
	Filename  string `json:"filename"`
}

// StorageConfig is the Postgres connection the sqlx-backed stores use.
type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
	MaxOpenConns int `json:"maxOpenConns"`
	MaxIdleConns int `json:"maxIdleConns"`
}

// HeartbeatConfig governs TaskRuntime worker liveness detection.
type HeartbeatConfig struct {
	IntervalSeconds       int `json:"intervalSeconds"`
	DeadWorkerMultiplier  int `json:"deadWorkerMultiplier"`
}

// AITimeoutsConfig bounds per-call timeouts to AI backends.
type AITimeoutsConfig struct {
	TextCallSeconds   int `json:"textCallSeconds"`
	VisionCallSeconds int `json:"visionCallSeconds"`
}

// LoggingConfig selects verbosity and output format.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// FeatureFlags carries toggles for the synthesis/embedding global-phase
// trigger and for concurrent-start enqueueing. No component reads them: the
// pipeline engine triggers synthesis from force flags and from items that
// created a KB entry this run, and cmd/agent does not set
// agentcontroller.Controller.EnqueueConcurrentStarts from here.
type FeatureFlags struct {
	TriggerSynthesisOnNewItems  bool `json:"triggerSynthesisOnNewItems"`
	SynthesisNewItemsThreshold  int  `json:"synthesisNewItemsThreshold"`
	TriggerEmbeddingOnNewItems  bool `json:"triggerEmbeddingOnNewItems"`
	EmbeddingNewItemsThreshold  int  `json:"embeddingNewItemsThreshold"`
	EnqueueConcurrentStarts     bool `json:"enqueueConcurrentStarts"`
}

// GetLoadedFromPath returns the file path the config was loaded from, or
// persisted to if it did not yet exist.
func (c *AppConfig) GetLoadedFromPath() string { return c.loadedFromPath }

// Default returns the compiled-in configuration used when no file is
// present on disk, or to backfill zero-valued fields after a partial load.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{ListenAddr: ":8080", ReadTimeoutSeconds: 15, WriteTimeoutSeconds: 15, GinMode: "release"},
		Worker: WorkerConfig{
			PollIntervalSeconds:         2,
			MaxJobRetries:               3,
			ErrorRetryDelaySeconds:      5,
			JobProcessingTimeoutMinutes: 30,
			PerItemFanout:               4,
			PoolSizes: map[string]int{
				"content_fetching": 8,
				"ai_processing":    4,
				"synthesis":        2,
				"monitoring":       1,
				"default":          4,
				"priority":         2,
			},
		},
		RateLimiter: RateLimiterConfig{PerQueue: map[string]QueueRateLimit{
			"content_fetching": {PerMinute: 30, Burst: 10},
			"ai_processing":    {PerMinute: 10, Burst: 3},
			"synthesis":        {PerMinute: 5, Burst: 2},
			"monitoring":       {PerMinute: 60, Burst: 10},
			"default":          {PerMinute: 60, Burst: 20},
			"priority":         {PerMinute: 60, Burst: 20},
		}},
		Retry: RetryConfig{
			MaxRetries:                  3,
			BaseDelaySeconds:            1,
			MaxDelaySeconds:             300,
			ExponentialFactor:           2,
			JitterEnabled:               true,
			Strategy:                    "exponential",
			CircuitBreakerCooloffMinutes: 60,
		},
		ETC: ETCConfig{RingCapacity: 50, MinSampleSeconds: 0.1, MaxSampleSeconds: 3600},
		ModelBindings: ModelBindingsConfig{ConfigDir: ".", Filename: "model_bindings.json"},
		Storage:       StorageConfig{Driver: "postgres", MaxOpenConns: 10, MaxIdleConns: 5},
		TaskRetentionDays: 7,
		Heartbeat:     HeartbeatConfig{IntervalSeconds: 30, DeadWorkerMultiplier: 3},
		AITimeouts:    AITimeoutsConfig{TextCallSeconds: 180, VisionCallSeconds: 300},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		Features:      FeatureFlags{},
	}
}

// Load reads mainConfigPath, falling back to compiled-in defaults for any
// missing section and persisting the merged result back to disk the first
// time the file does not exist, per the teacher's Load/SaveAppConfig idiom.
func Load(mainConfigPath string, logger *logging.Logger) (*AppConfig, error) {
	if mainConfigPath == "" {
		mainConfigPath = "config.json"
	}
	logf(logger, "Config: Attempting to load main config from: %s", mainConfigPath)

	cfg := Default()
	var originalLoadErr error

	data, err := os.ReadFile(mainConfigPath)
	switch {
	case err != nil && os.IsNotExist(err):
		logf(logger, "Config: Main config file '%s' not found. Using defaults and attempting to save.", mainConfigPath)
		cfg.loadedFromPath = mainConfigPath
		if saveErr := Save(cfg); saveErr != nil {
			logf(logger, "Config: Failed to save default config file '%s': %v", mainConfigPath, saveErr)
		} else {
			logf(logger, "Config: Saved default config to '%s'", mainConfigPath)
		}
	case err != nil:
		logf(logger, "Config: Error reading main config '%s': %v. Using defaults.", mainConfigPath, err)
		originalLoadErr = err
		cfg.loadedFromPath = mainConfigPath
	default:
		if uerr := json.Unmarshal(data, cfg); uerr != nil {
			logf(logger, "Config: Error unmarshalling main config '%s': %v. Using defaults for unparsed fields.", mainConfigPath, uerr)
			originalLoadErr = uerr
		}
		cfg.loadedFromPath = mainConfigPath
	}

	applyZeroValueDefaults(cfg)
	return cfg, originalLoadErr
}

// Save persists cfg to its loadedFromPath as indented JSON.
func Save(cfg *AppConfig) error {
	if cfg.loadedFromPath == "" {
		return fmt.Errorf("cannot save AppConfig, loadedFromPath is empty")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal app config to JSON: %w", err)
	}
	if err := os.WriteFile(cfg.loadedFromPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write app config to file '%s': %w", cfg.loadedFromPath, err)
	}
	return nil
}

func applyZeroValueDefaults(cfg *AppConfig) {
	d := Default()
	if cfg.Worker.PollIntervalSeconds <= 0 {
		cfg.Worker.PollIntervalSeconds = d.Worker.PollIntervalSeconds
	}
	if cfg.Worker.MaxJobRetries <= 0 {
		cfg.Worker.MaxJobRetries = d.Worker.MaxJobRetries
	}
	if cfg.Worker.PerItemFanout <= 0 {
		cfg.Worker.PerItemFanout = d.Worker.PerItemFanout
	}
	if len(cfg.Worker.PoolSizes) == 0 {
		cfg.Worker.PoolSizes = d.Worker.PoolSizes
	}
	if len(cfg.RateLimiter.PerQueue) == 0 {
		cfg.RateLimiter.PerQueue = d.RateLimiter.PerQueue
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if cfg.Retry.BaseDelaySeconds <= 0 {
		cfg.Retry.BaseDelaySeconds = d.Retry.BaseDelaySeconds
	}
	if cfg.Retry.MaxDelaySeconds <= 0 {
		cfg.Retry.MaxDelaySeconds = d.Retry.MaxDelaySeconds
	}
	if cfg.Retry.ExponentialFactor <= 0 {
		cfg.Retry.ExponentialFactor = d.Retry.ExponentialFactor
	}
	if cfg.Retry.Strategy == "" {
		cfg.Retry.Strategy = d.Retry.Strategy
	}
	if cfg.Retry.CircuitBreakerCooloffMinutes <= 0 {
		cfg.Retry.CircuitBreakerCooloffMinutes = d.Retry.CircuitBreakerCooloffMinutes
	}
	if cfg.ETC.RingCapacity <= 0 {
		cfg.ETC.RingCapacity = d.ETC.RingCapacity
	}
	if cfg.ETC.MaxSampleSeconds <= 0 {
		cfg.ETC.MinSampleSeconds = d.ETC.MinSampleSeconds
		cfg.ETC.MaxSampleSeconds = d.ETC.MaxSampleSeconds
	}
	if cfg.ModelBindings.Filename == "" {
		cfg.ModelBindings = d.ModelBindings
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = d.Storage.Driver
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = d.Server.GinMode
	}
	if cfg.Storage.MaxOpenConns <= 0 {
		cfg.Storage.MaxOpenConns = d.Storage.MaxOpenConns
		cfg.Storage.MaxIdleConns = d.Storage.MaxIdleConns
	}
	if cfg.TaskRetentionDays <= 0 {
		cfg.TaskRetentionDays = d.TaskRetentionDays
	}
	if cfg.Heartbeat.IntervalSeconds <= 0 {
		cfg.Heartbeat.IntervalSeconds = d.Heartbeat.IntervalSeconds
		cfg.Heartbeat.DeadWorkerMultiplier = d.Heartbeat.DeadWorkerMultiplier
	}
	if cfg.AITimeouts.TextCallSeconds <= 0 {
		cfg.AITimeouts = d.AITimeouts
	}
	if cfg.Logging.Level == "" {
		cfg.Logging = d.Logging
	}
}

func logf(logger *logging.Logger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logger != nil {
		logger.Info(msg, nil)
		return
	}
	log.Println(msg)
}
