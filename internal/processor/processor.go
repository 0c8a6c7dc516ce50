package processor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Stage    Stage
	Duration time.Duration
}

// Result carries every intermediate and final product of one recording
type Result struct {
	RunID  string
	Config *Config

	Input       *SignalBuffer // After optional truncation
	Conditioned *SignalBuffer
	Epochs      *EpochSet
	Clean       *EpochSet
	Rejection   *RejectionLog
	Spectrum    *PowerSpectrum
	BandPowers  BandPowerTable
	Ratios      RatioTable

	Records []ResultRecord
	Report  PreprocessingReport
	Summary []ChannelSummary

	Timings []StageTiming
}

// ProcessRecording runs the full pipeline on buf:
// truncate → condition → segment → reject → Welch PSD → bands → ratios.
//
// Every stage reports start and end events through progress (which may be
// nil); each event carries the run ID. buf is never modified. Identical
// input and config produce identical records.
func ProcessRecording(buf *SignalBuffer, config *Config, progress ProgressFunc) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:  uuid.NewString(),
		Config: config,
	}
	progress = progress.withFields(map[string]interface{}{"run_id": result.RunID})

	timed := func(stage Stage, fn func() error) error {
		start := time.Now()
		err := fn()
		result.Timings = append(result.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
		return err
	}

	// Truncation
	err := timed(StageTruncate, func() error {
		if config.Seconds == nil {
			result.Input = buf
			return nil
		}
		progress.start(StageTruncate, "truncating recording")
		truncated, err := Truncate(buf, *config.Seconds)
		if err != nil {
			return err
		}
		result.Input = truncated
		progress.done(StageTruncate, "recording truncated", map[string]interface{}{
			"requested_seconds": *config.Seconds,
			"duration_seconds":  truncated.Duration(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("truncation failed: %w", err)
	}

	// Signal conditioning
	err = timed(StageCondition, func() error {
		progress.start(StageCondition, "bandpass filtering")
		conditioned, err := Condition(result.Input, config)
		if err != nil {
			return err
		}
		result.Conditioned = conditioned
		progress.done(StageCondition, "bandpass filtering complete", map[string]interface{}{
			"highpass_hz": config.HighpassFreq,
			"lowpass_hz":  config.LowpassFreq,
			"notch":       config.NotchEnabled,
			"channels":    conditioned.NumChannels(),
			"samples":     conditioned.NumSamples(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("conditioning failed: %w", err)
	}

	// Epoch segmentation
	err = timed(StageSegment, func() error {
		progress.start(StageSegment, "segmenting epochs")
		epochs, err := Segment(result.Conditioned, config.EpochDuration)
		if err != nil {
			return err
		}
		result.Epochs = epochs
		progress.done(StageSegment, "segmentation complete", map[string]interface{}{
			"epochs":            epochs.Len(),
			"samples_per_epoch": epochs.SamplesPerEpoch,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}

	// Artifact rejection
	err = timed(StageReject, func() error {
		progress.start(StageReject, "rejecting artifacts")
		clean, log, err := NewRejector(config, progress).Reject(result.Epochs)
		if err != nil {
			return err
		}
		result.Clean = clean
		result.Rejection = log
		progress.done(StageReject, "artifact rejection complete", map[string]interface{}{
			"policy":         string(log.Policy),
			"epochs_kept":    clean.Len(),
			"epochs_dropped": log.BadCount(),
			"rejection_rate": log.RejectionRate(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifact rejection failed: %w", err)
	}

	// Spectral estimation
	err = timed(StageSpectrum, func() error {
		progress.start(StageSpectrum, "estimating power spectra")
		spectrum, err := EstimatePSD(result.Clean, config.FMin, config.FMax, config.WindowSec, config.OverlapSec)
		if err != nil {
			return err
		}
		result.Spectrum = spectrum
		progress.done(StageSpectrum, "power spectra estimated", map[string]interface{}{
			"bins":   len(spectrum.Freqs),
			"epochs": len(spectrum.Power),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("spectral estimation failed: %w", err)
	}

	// Band integration
	_ = timed(StageBands, func() error {
		progress.start(StageBands, "integrating band power")
		result.BandPowers = IntegrateBands(result.Spectrum, CanonicalBands)
		progress.done(StageBands, "band power integrated", map[string]interface{}{
			"bands": len(CanonicalBands),
		})
		return nil
	})

	// Ratios
	err = timed(StageRatios, func() error {
		progress.start(StageRatios, "computing band ratios")
		ratios, err := ComputeRatios(result.BandPowers, config.RatioEpsilon)
		if err != nil {
			return err
		}
		result.Ratios = ratios
		progress.done(StageRatios, "band ratios computed", nil)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ratio computation failed: %w", err)
	}

	result.Records = BuildRecords(result.Clean, result.BandPowers, result.Ratios)
	result.Report = NewPreprocessingReport(result.Input, result.Clean, result.Rejection)
	result.Summary = SummarizeByChannel(result.Records, result.Clean.ChannelNames)
	return result, nil
}

// Duration returns the summed stage time
func (r *Result) Duration() time.Duration {
	var total time.Duration
	for _, t := range r.Timings {
		total += t.Duration
	}
	return total
}
