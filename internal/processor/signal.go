// Package processor implements the EEG band-power pipeline: conditioning,
// epoching, artifact rejection, Welch spectral estimation, band integration
// and ratio computation.
package processor

import (
	"math"
)

// Unit identifies the physical unit of the samples in a SignalBuffer.
type Unit int

const (
	UnitVolts      Unit = iota // Loader default; spectra are rescaled to µV²/Hz
	UnitMicrovolts             // Spectra are already in µV²/Hz
)

// String returns the unit symbol
func (u Unit) String() string {
	switch u {
	case UnitMicrovolts:
		return "µV"
	default:
		return "V"
	}
}

// powerScale returns the factor converting power in unit² to µV².
func (u Unit) powerScale() float64 {
	if u == UnitMicrovolts {
		return 1.0
	}
	return 1e12
}

// SignalBuffer holds a multichannel recording as channel-major samples.
// All channels share SampleRate and length.
type SignalBuffer struct {
	ChannelNames []string
	SampleRate   float64     // Hz, may be fractional
	Samples      [][]float64 // [channel][time]
	Unit         Unit
}

// NumChannels returns the channel count
func (b *SignalBuffer) NumChannels() int {
	return len(b.ChannelNames)
}

// NumSamples returns the per-channel sample count
func (b *SignalBuffer) NumSamples() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Duration returns the recording length in seconds
func (b *SignalBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.NumSamples()) / b.SampleRate
}

// Validate checks the buffer invariants. Failures wrap ErrInvalidSignal.
func (b *SignalBuffer) Validate() error {
	if b == nil {
		return invalidSignal("nil buffer")
	}
	if len(b.ChannelNames) == 0 {
		return invalidSignal("no channels")
	}
	if len(b.Samples) != len(b.ChannelNames) {
		return invalidSignal("%d channel names for %d sample rows", len(b.ChannelNames), len(b.Samples))
	}
	if math.IsNaN(b.SampleRate) || math.IsInf(b.SampleRate, 0) || b.SampleRate <= 0 {
		return invalidSignal("sample rate must be positive, got %v", b.SampleRate)
	}

	seen := make(map[string]bool, len(b.ChannelNames))
	for _, name := range b.ChannelNames {
		if name == "" {
			return invalidSignal("empty channel name")
		}
		if seen[name] {
			return invalidSignal("duplicate channel name %q", name)
		}
		seen[name] = true
	}

	n := len(b.Samples[0])
	if n == 0 {
		return invalidSignal("buffer has no samples")
	}
	for ch, row := range b.Samples {
		if len(row) != n {
			return invalidSignal("channel %s has %d samples, expected %d", b.ChannelNames[ch], len(row), n)
		}
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalidSignal("channel %s sample %d is not finite", b.ChannelNames[ch], i)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the buffer
func (b *SignalBuffer) Clone() *SignalBuffer {
	out := &SignalBuffer{
		ChannelNames: append([]string(nil), b.ChannelNames...),
		SampleRate:   b.SampleRate,
		Samples:      make([][]float64, len(b.Samples)),
		Unit:         b.Unit,
	}
	for ch, row := range b.Samples {
		out.Samples[ch] = append([]float64(nil), row...)
	}
	return out
}

// Truncate returns a copy holding only the first seconds of the recording.
// A duration beyond the end of the recording is clamped to the full length;
// a non-positive duration fails with ErrInvalidParameter.
func Truncate(buf *SignalBuffer, seconds float64) (*SignalBuffer, error) {
	if math.IsNaN(seconds) || seconds <= 0 {
		return nil, invalidParameter("truncation length must be positive, got %v s", seconds)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	total := buf.NumSamples()
	n := total
	if want := math.Round(seconds * buf.SampleRate); want < float64(total) {
		n = int(want)
	}
	if n < 1 {
		n = 1
	}

	out := &SignalBuffer{
		ChannelNames: append([]string(nil), buf.ChannelNames...),
		SampleRate:   buf.SampleRate,
		Samples:      make([][]float64, len(buf.Samples)),
		Unit:         buf.Unit,
	}
	for ch, row := range buf.Samples {
		out.Samples[ch] = append([]float64(nil), row[:n]...)
	}
	return out, nil
}
