package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-stress-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Run modes.
const (
	RunModeOnce  = "once"
	RunModeWatch = "watch"
)

// Config holds all service settings, populated from defaults, an optional
// YAML analysis profile, and environment variables, in that order.
type Config struct {
	SpaceDir       string
	SpacePattern   string
	GroundDir      string
	GroundPattern  string
	ArtifactPolicy string

	ReportPath string
	StateDir   string

	RunMode       string
	WatchDebounce time.Duration

	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// ProfilePath is the CONFIG_FILE that was applied, if any.
	ProfilePath string

	analysis domain.RunConfig
}

// Analysis returns the run configuration handed to the analysis components.
// Each call returns an independent copy.
func (c *Config) Analysis() domain.RunConfig {
	return c.analysis.WithThresholds(c.analysis.Thresholds)
}

// Profile is the YAML analysis profile named by CONFIG_FILE.
type Profile struct {
	Analysis AnalysisProfile `yaml:"analysis"`
}

// AnalysisProfile mirrors the analysis environment variables. Zero values
// leave the default in place.
type AnalysisProfile struct {
	Strategy   string             `yaml:"strategy"`
	Window     int                `yaml:"window"`
	Constant   float64            `yaml:"constant"`
	Threshold  *float64           `yaml:"threshold"`
	Thresholds map[string]float64 `yaml:"thresholds"`
	TopK       int                `yaml:"top_k"`
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	debounce, err := time.ParseDuration(sharedcfg.EnvOrDefault("WATCH_DEBOUNCE", "2s"))
	if err != nil || debounce <= 0 {
		return nil, errors.New("invalid WATCH_DEBOUNCE")
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SpaceDir:        sharedcfg.EnvOrDefault("SPACE_DIR", "data/raw/dscovr"),
		SpacePattern:    sharedcfg.EnvOrDefault("SPACE_PATTERN", "*.csv"),
		GroundDir:       sharedcfg.EnvOrDefault("GROUND_DIR", "data/raw/usgs"),
		GroundPattern:   sharedcfg.EnvOrDefault("GROUND_PATTERN", "*.csv"),
		ArtifactPolicy:  sharedcfg.EnvOrDefault("ARTIFACT_POLICY", "name"),
		ReportPath:      sharedcfg.EnvOrDefault("REPORT_PATH", "reports/GMVS_VERDICT.md"),
		StateDir:        sharedcfg.EnvOrDefault("STATE_DIR", "results"),
		RunMode:         sharedcfg.EnvOrDefault("RUN_MODE", RunModeOnce),
		WatchDebounce:   debounce,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      sharedcfg.EnvOrDefault("KAFKA_TOPIC", "gmvs-verdicts"),
		ProfilePath:     os.Getenv("CONFIG_FILE"),
		analysis:        domain.DefaultRunConfig(),
	}

	if cfg.ProfilePath != "" {
		profile, err := LoadProfile(cfg.ProfilePath)
		if err != nil {
			return nil, err
		}
		if err := profile.Analysis.apply(&cfg.analysis); err != nil {
			return nil, fmt.Errorf("config %s: %w", cfg.ProfilePath, err)
		}
	}

	if err := applyAnalysisEnv(&cfg.analysis); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SpaceDir == "" || c.GroundDir == "" {
		return errors.New("SPACE_DIR and GROUND_DIR are required")
	}
	switch c.ArtifactPolicy {
	case "name", "mtime":
	default:
		return fmt.Errorf("invalid ARTIFACT_POLICY %q (want name or mtime)", c.ArtifactPolicy)
	}
	switch c.RunMode {
	case RunModeOnce, RunModeWatch:
	default:
		return fmt.Errorf("invalid RUN_MODE %q (want once or watch)", c.RunMode)
	}
	if c.ReportPath == "" {
		return errors.New("REPORT_PATH is required")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if err := c.analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// LoadProfile reads and strictly decodes a YAML analysis profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return &p, nil
}

func (a AnalysisProfile) apply(rc *domain.RunConfig) error {
	if a.Strategy != "" {
		rc.Strategy = domain.StrategyKind(a.Strategy)
	}
	if a.Window != 0 {
		rc.Window = a.Window
	}
	if a.Constant != 0 {
		rc.Constant = a.Constant
	}
	if a.Threshold != nil {
		rc.Threshold = *a.Threshold
	}
	if a.TopK != 0 {
		rc.TopK = a.TopK
	}
	if len(a.Thresholds) > 0 {
		overrides := make(map[domain.StrategyKind]float64, len(a.Thresholds))
		for name, t := range a.Thresholds {
			kind := domain.StrategyKind(name)
			if !kind.Valid() {
				return fmt.Errorf("thresholds: unknown strategy %q", name)
			}
			overrides[kind] = t
		}
		*rc = rc.WithThresholds(overrides)
	}
	return nil
}

func applyAnalysisEnv(rc *domain.RunConfig) error {
	if v := os.Getenv("BASELINE_STRATEGY"); v != "" {
		rc.Strategy = domain.StrategyKind(strings.ToLower(v))
	}

	var err error
	if rc.Window, err = envInt("BASELINE_WINDOW", rc.Window); err != nil {
		return err
	}
	if rc.Constant, err = envFloat("BASELINE_CONSTANT", rc.Constant); err != nil {
		return err
	}
	if rc.Threshold, err = envFloat("SNAP_THRESHOLD", rc.Threshold); err != nil {
		return err
	}
	if rc.TopK, err = envInt("TOP_K", rc.TopK); err != nil {
		return err
	}

	overrides := rc.Thresholds
	for _, kind := range domain.StrategyKinds() {
		key := "SNAP_THRESHOLD_" + strings.ToUpper(string(kind))
		if os.Getenv(key) == "" {
			continue
		}
		t, err := envFloat(key, 0)
		if err != nil {
			return err
		}
		if overrides == nil {
			overrides = make(map[domain.StrategyKind]float64)
		}
		overrides[kind] = t
	}
	*rc = rc.WithThresholds(overrides)
	return nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
