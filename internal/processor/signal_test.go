package processor

import (
	"errors"
	"math"
	"testing"
)

func TestSignalBufferValidate(t *testing.T) {
	tests := []struct {
		name string
		buf  *SignalBuffer
		ok   bool
	}{
		{
			name: "valid",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 256, Samples: [][]float64{{1, 2, 3}}},
			ok:   true,
		},
		{
			name: "nil",
			buf:  nil,
		},
		{
			name: "no_channels",
			buf:  &SignalBuffer{SampleRate: 256},
		},
		{
			name: "row_count_mismatch",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7", "AF8"}, SampleRate: 256, Samples: [][]float64{{1}}},
		},
		{
			name: "zero_rate",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 0, Samples: [][]float64{{1}}},
		},
		{
			name: "nan_rate",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: math.NaN(), Samples: [][]float64{{1}}},
		},
		{
			name: "duplicate_names",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7", "AF7"}, SampleRate: 256, Samples: [][]float64{{1}, {2}}},
		},
		{
			name: "ragged_rows",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7", "AF8"}, SampleRate: 256, Samples: [][]float64{{1, 2}, {3}}},
		},
		{
			name: "empty_rows",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 256, Samples: [][]float64{{}}},
		},
		{
			name: "nan_sample",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 256, Samples: [][]float64{{1, math.NaN()}}},
		},
		{
			name: "inf_sample",
			buf:  &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 256, Samples: [][]float64{{math.Inf(-1)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.buf.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSignal) {
				t.Fatalf("Validate() = %v, want ErrInvalidSignal", err)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 20, Tones: []Tone{{10, 20}}})

	tests := []struct {
		name        string
		seconds     float64
		wantSamples int
		wantErr     bool
	}{
		{"exact", 10, 2560, false},
		{"rounded", 1.0 / 512, 1, false},
		{"clamped_to_duration", 100, 5120, false},
		{"minimum_one_sample", 1e-6, 1, false},
		{"zero", 0, 0, true},
		{"negative", -3, 0, true},
		{"nan", math.NaN(), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Truncate(buf, tt.seconds)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("Truncate(%v) error = %v, want ErrInvalidParameter", tt.seconds, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Truncate(%v) failed: %v", tt.seconds, err)
			}
			if out.NumSamples() != tt.wantSamples {
				t.Errorf("Truncate(%v) kept %d samples, want %d", tt.seconds, out.NumSamples(), tt.wantSamples)
			}
			for ch := range out.Samples {
				for i, v := range out.Samples[ch] {
					if v != buf.Samples[ch][i] {
						t.Fatalf("sample %d of channel %d changed", i, ch)
					}
				}
			}
		})
	}
}

func TestTruncateDoesNotAlias(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 4, Tones: []Tone{{10, 20}}})
	original := buf.Samples[0][0]

	out, err := Truncate(buf, 2)
	if err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	out.Samples[0][0] = 1e9

	if buf.Samples[0][0] != original {
		t.Error("modifying the truncated buffer changed the input")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 1})
	c := buf.Clone()
	c.Samples[1][3] = 42
	c.ChannelNames[0] = "X"

	if buf.Samples[1][3] == 42 || buf.ChannelNames[0] == "X" {
		t.Error("Clone shares storage with the original")
	}
	if c.SampleRate != buf.SampleRate || c.Unit != buf.Unit {
		t.Error("Clone lost metadata")
	}
}

func TestDuration(t *testing.T) {
	buf := &SignalBuffer{ChannelNames: []string{"AF7"}, SampleRate: 255.5, Samples: [][]float64{make([]float64, 511)}}
	if got := buf.Duration(); math.Abs(got-2.0) > 1e-12 {
		t.Errorf("Duration() = %v, want 2.0", got)
	}
}
