package processor

import (
	"math"
	"testing"
)

// TestSignalOptions configures the synthetic EEG to generate
type TestSignalOptions struct {
	Channels     []string // Channel names (default: AF7, AF8)
	SampleRate   float64  // Sample rate in Hz (default: 256)
	DurationSecs float64  // Total duration in seconds (default: 20)
	Tones        []Tone   // Sinusoids added to every channel
	NoiseLevel   float64  // Peak amplitude of uniform noise (0 = none)
	Offset       float64  // DC offset added to every channel
	Artifacts    []Artifact
	InVolts      bool // Store samples in volts instead of µV
}

// Tone is a sinusoid in the test signal
type Tone struct {
	Freq      float64
	Amplitude float64
}

// Artifact is a high-amplitude square burst on one channel (or all with Channel = -1)
type Artifact struct {
	Start     float64 // seconds
	Duration  float64 // seconds
	Channel   int
	Amplitude float64
}

// generateTestSignal creates a deterministic synthetic recording. Amplitudes
// are given in µV.
func generateTestSignal(t *testing.T, opts TestSignalOptions) *SignalBuffer {
	t.Helper()

	if len(opts.Channels) == 0 {
		opts.Channels = []string{"AF7", "AF8"}
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 256
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 20
	}
	unit, scale := UnitMicrovolts, 1.0
	if opts.InVolts {
		unit, scale = UnitVolts, 1e-6
	}

	total := int(math.Round(opts.DurationSecs * opts.SampleRate))
	buf := &SignalBuffer{
		ChannelNames: opts.Channels,
		SampleRate:   opts.SampleRate,
		Samples:      make([][]float64, len(opts.Channels)),
		Unit:         unit,
	}

	for ch := range opts.Channels {
		// Simple LCG random number generator for deterministic noise,
		// seeded per channel so channels are not identical
		rngState := uint32(12345 + 7919*ch)
		nextRandom := func() float64 {
			// LCG parameters from Numerical Recipes
			rngState = rngState*1664525 + 1013904223
			return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
		}

		row := make([]float64, total)
		for i := range row {
			tm := float64(i) / opts.SampleRate
			v := opts.Offset
			for _, tone := range opts.Tones {
				v += tone.Amplitude * math.Sin(2*math.Pi*tone.Freq*tm)
			}
			if opts.NoiseLevel > 0 {
				v += opts.NoiseLevel * nextRandom()
			}
			for _, a := range opts.Artifacts {
				if (a.Channel == -1 || a.Channel == ch) && tm >= a.Start && tm < a.Start+a.Duration {
					v += a.Amplitude
				}
			}
			row[i] = v * scale
		}
		buf.Samples[ch] = row
	}
	return buf
}

// makeEpochSet wraps raw [epoch][channel][time] data in an EpochSet
func makeEpochSet(data [][][]float64, channels []string, sampleRate float64) *EpochSet {
	set := &EpochSet{
		ChannelNames: channels,
		SampleRate:   sampleRate,
		Unit:         UnitMicrovolts,
	}
	for e, d := range data {
		set.Epochs = append(set.Epochs, Epoch{Index: e, Data: d})
		set.SamplesPerEpoch = len(d[0])
	}
	if len(data) > 0 {
		set.Duration = float64(set.SamplesPerEpoch) / sampleRate
	}
	return set
}

// newTestConfig returns the default pipeline configuration.
// Tests modify the copy rather than relying on package state.
func newTestConfig() *Config {
	return DefaultConfig()
}

// rmsRange returns the RMS of x[from:to]
func rmsRange(x []float64, from, to int) float64 {
	sum := 0.0
	for _, v := range x[from:to] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(to-from))
}

func floatPtr(v float64) *float64 {
	return &v
}
