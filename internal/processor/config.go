package processor

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Pipeline defaults
const (
	DefaultHighpassHz    = 0.5  // Conditioner lower band edge
	DefaultLowpassHz     = 40.0 // Conditioner upper band edge
	DefaultEpochSeconds  = 2.0
	DefaultWindowSeconds = 2.0 // Welch segment length
	DefaultOverlapSecs   = 1.0 // Welch segment overlap

	// AdaptiveMinEpochs is the epoch count from which the adaptive rejection
	// policy is used. Below it the global threshold is applied.
	AdaptiveMinEpochs = 10

	// DefaultMaxFolds caps the cross-validation folds; the actual fold count
	// is min(DefaultMaxFolds, epochs/2).
	DefaultMaxFolds = 5

	// DefaultKeepFraction is the quantile of the peak-to-peak distribution the
	// threshold never falls below.
	DefaultKeepFraction = 0.9

	// DefaultRobustK scales the MAD-based spread above the median.
	DefaultRobustK = 3.0

	DefaultSeed = 42

	// RatioEpsilon guards the band ratios against a zero alpha denominator.
	RatioEpsilon = 1e-10
)

// Config holds the tunable parameters of every pipeline stage
type Config struct {
	// Signal conditioner: linear-phase FIR bandpass
	HighpassFreq float64 `yaml:"highpass_hz"`
	LowpassFreq  float64 `yaml:"lowpass_hz"`

	// Mains notch (FIR band-stop at NotchFreq and its harmonics)
	NotchEnabled bool    `yaml:"notch"`
	NotchFreq    float64 `yaml:"notch_hz"`

	// Epoch segmenter
	EpochDuration float64 `yaml:"epoch_seconds"`

	// Artifact rejector
	AdaptiveMinEpochs int     `yaml:"adaptive_min_epochs"`
	InterpolateCounts []int   `yaml:"interpolate_counts"` // Candidate interpolation counts
	MaxFolds          int     `yaml:"max_folds"`
	KeepFraction      float64 `yaml:"keep_fraction"`
	RobustK           float64 `yaml:"robust_k"`
	Seed              int64   `yaml:"seed"`

	// Spectral estimator (Welch)
	FMin       float64 `yaml:"fmin_hz"`
	FMax       float64 `yaml:"fmax_hz"`
	WindowSec  float64 `yaml:"window_seconds"`
	OverlapSec float64 `yaml:"overlap_seconds"`

	// Ratio calculator
	RatioEpsilon float64 `yaml:"ratio_epsilon"`

	// Seconds limits processing to the first N seconds of the recording.
	// Nil processes everything.
	Seconds *float64 `yaml:"seconds,omitempty"`
}

// DefaultConfig returns the standard pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		HighpassFreq: DefaultHighpassHz,
		LowpassFreq:  DefaultLowpassHz,

		NotchEnabled: false,
		NotchFreq:    50.0,

		EpochDuration: DefaultEpochSeconds,

		AdaptiveMinEpochs: AdaptiveMinEpochs,
		InterpolateCounts: []int{1, 2, 3, 4},
		MaxFolds:          DefaultMaxFolds,
		KeepFraction:      DefaultKeepFraction,
		RobustK:           DefaultRobustK,
		Seed:              DefaultSeed,

		FMin:       DefaultHighpassHz,
		FMax:       DefaultLowpassHz,
		WindowSec:  DefaultWindowSeconds,
		OverlapSec: DefaultOverlapSecs,

		RatioEpsilon: RatioEpsilon,
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the non-spectral parameters. Welch parameters depend on the
// sample rate and epoch length, so EstimatePSD checks those.
func (c *Config) Validate() error {
	if !(c.HighpassFreq > 0) || !(c.LowpassFreq > c.HighpassFreq) {
		return invalidParameter("passband %.2f-%.2f Hz must satisfy 0 < low < high", c.HighpassFreq, c.LowpassFreq)
	}
	if c.NotchEnabled && !(c.NotchFreq > 0) {
		return invalidParameter("notch frequency must be positive, got %v Hz", c.NotchFreq)
	}
	if math.IsNaN(c.EpochDuration) || c.EpochDuration <= 0 {
		return invalidParameter("epoch duration must be positive, got %v s", c.EpochDuration)
	}
	if c.AdaptiveMinEpochs < 4 {
		return invalidParameter("adaptive_min_epochs must be at least 4 for two folds, got %d", c.AdaptiveMinEpochs)
	}
	if len(c.InterpolateCounts) == 0 {
		return invalidParameter("at least one interpolation count is required")
	}
	for _, k := range c.InterpolateCounts {
		if k < 1 {
			return invalidParameter("interpolation count must be at least 1, got %d", k)
		}
	}
	if c.MaxFolds < 2 {
		return invalidParameter("max_folds must be at least 2, got %d", c.MaxFolds)
	}
	if !(c.KeepFraction > 0 && c.KeepFraction <= 1) {
		return invalidParameter("keep_fraction must be in (0, 1], got %v", c.KeepFraction)
	}
	if math.IsNaN(c.RobustK) || c.RobustK < 0 {
		return invalidParameter("robust_k must be non-negative, got %v", c.RobustK)
	}
	if !(c.RatioEpsilon > 0) || math.IsInf(c.RatioEpsilon, 1) {
		return invalidParameter("ratio_epsilon must be positive and finite, got %v", c.RatioEpsilon)
	}
	if c.Seconds != nil && !(*c.Seconds > 0) {
		return invalidParameter("seconds must be positive, got %v", *c.Seconds)
	}
	return nil
}
