package processor

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"
)

func TestProcessRecordingSineAlpha(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{
		DurationSecs: 20,
		Tones:        []Tone{{10, 20}},
	})

	result, err := ProcessRecording(buf, newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}

	if result.Epochs.Len() != 10 || result.Epochs.SamplesPerEpoch != 512 {
		t.Errorf("segmented %d epochs of %d samples, want 10 of 512", result.Epochs.Len(), result.Epochs.SamplesPerEpoch)
	}
	if result.Rejection.Policy != PolicyAdaptive {
		t.Errorf("policy = %s, want adaptive for 10 epochs", result.Rejection.Policy)
	}
	if len(result.Records) != 20 {
		t.Fatalf("got %d records, want 20", len(result.Records))
	}

	// Filter edge effects touch the final epoch, so per-record bounds are
	// loose and the median is held to 2%
	alphas := make([]float64, 0, len(result.Records))
	leakage := make([]float64, 0, len(result.Records))
	for _, r := range result.Records {
		alphas = append(alphas, r.Alpha)
		if r.Alpha < 180 || r.Alpha > 220 {
			t.Errorf("epoch %d %s alpha = %.2f µV², want ~200", r.Epoch, r.Channel, r.Alpha)
		}
		others := r.Delta + r.Theta + r.Beta + r.Gamma
		leakage = append(leakage, others/r.Alpha)
		if others > 0.05*r.Alpha {
			t.Errorf("epoch %d %s non-alpha power %.4f exceeds 5%% of alpha", r.Epoch, r.Channel, others)
		}
		if r.DAR > 0.05 || r.TAR > 0.05 {
			t.Errorf("epoch %d %s DAR=%v TAR=%v, want near 0", r.Epoch, r.Channel, r.DAR, r.TAR)
		}
	}

	sort.Float64s(alphas)
	sort.Float64s(leakage)
	if median := alphas[len(alphas)/2]; math.Abs(median-200) > 4 {
		t.Errorf("median alpha = %.2f µV², want 200 ±2%%", median)
	}
	if median := leakage[len(leakage)/2]; median > 0.01 {
		t.Errorf("median non-alpha fraction = %.4f, want < 1%%", median)
	}

	report := result.Report
	if report.EpochsTotal != 10 || report.EpochsFinal != 10 || report.EpochsRejected != 0 {
		t.Errorf("report counts = %d/%d/%d, want 10/10/0", report.EpochsTotal, report.EpochsFinal, report.EpochsRejected)
	}
	if report.TotalDurationSeconds != 20 || report.RecordingDurationSeconds != 20 {
		t.Errorf("report durations = %v clean, %v recording, want 20", report.TotalDurationSeconds, report.RecordingDurationSeconds)
	}
	if len(result.Summary) != 2 || result.Summary[0].Epochs != 10 {
		t.Errorf("channel summary = %+v", result.Summary)
	}
}

func TestProcessRecordingVoltsMatchesMicrovolts(t *testing.T) {
	opts := TestSignalOptions{DurationSecs: 12, Tones: []Tone{{6, 15}, {11, 10}}, NoiseLevel: 3}
	uv, err := ProcessRecording(generateTestSignal(t, opts), newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording (µV) failed: %v", err)
	}
	opts.InVolts = true
	v, err := ProcessRecording(generateTestSignal(t, opts), newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording (V) failed: %v", err)
	}

	if len(uv.Records) != len(v.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(uv.Records), len(v.Records))
	}
	for i := range uv.Records {
		a, b := uv.Records[i].Columns(), v.Records[i].Columns()
		for c := range a {
			if math.Abs(a[c]-b[c]) > 1e-6*math.Max(1, math.Abs(a[c])) {
				t.Errorf("record %d %s: µV %v vs V %v", i, ValueColumns[c], a[c], b[c])
			}
		}
	}
}

func TestProcessRecordingDeterministic(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{
		Channels:     []string{"TP9", "AF7", "AF8", "TP10"},
		DurationSecs: 30,
		Tones:        []Tone{{10, 20}, {4, 10}},
		NoiseLevel:   8,
		Artifacts:    []Artifact{{Start: 11, Duration: 0.4, Channel: 1, Amplitude: 250}},
	})

	first, err := ProcessRecording(buf, newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}
	second, err := ProcessRecording(buf, newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Error("records differ between identical runs")
	}
	if first.RunID == second.RunID {
		t.Error("run IDs should be unique per run")
	}
}

func TestProcessRecordingReportDurations(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{
		DurationSecs: 13,
		Tones:        []Tone{{10, 20}},
		NoiseLevel:   3,
		Artifacts:    []Artifact{{Start: 4.8, Duration: 0.5, Channel: -1, Amplitude: 500}},
	})

	result, err := ProcessRecording(buf, newTestConfig(), nil)
	if err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}

	report := result.Report
	if report.EpochsTotal != 6 || report.EpochsFinal != 5 || report.EpochsRejected != 1 {
		t.Fatalf("report counts = %d/%d/%d, want 6/5/1", report.EpochsTotal, report.EpochsFinal, report.EpochsRejected)
	}
	if !result.Rejection.BadEpochs[2] {
		t.Errorf("epoch 2 holds the burst but was kept: %v", result.Rejection.BadEpochs)
	}
	if math.Abs(report.TotalDurationSeconds-10) > 1e-9 {
		t.Errorf("clean duration = %v s, want 10 s", report.TotalDurationSeconds)
	}
	if math.Abs(report.RecordingDurationSeconds-13) > 1e-9 {
		t.Errorf("recording duration = %v s, want 13 s", report.RecordingDurationSeconds)
	}
}

func TestProcessRecordingDoesNotMutateInput(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 12, Tones: []Tone{{10, 20}}, NoiseLevel: 5})
	before := buf.Clone()

	config := newTestConfig()
	config.Seconds = floatPtr(8)
	if _, err := ProcessRecording(buf, config, nil); err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}

	if !reflect.DeepEqual(buf, before) {
		t.Error("ProcessRecording modified its input buffer")
	}
}

func TestProcessRecordingTruncation(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 30, Tones: []Tone{{10, 20}}})

	tests := []struct {
		name       string
		seconds    *float64
		wantEpochs int
		wantPolicy Policy
	}{
		{"no_limit", nil, 15, PolicyAdaptive},
		{"ten_seconds", floatPtr(10), 5, PolicyGlobal},
		{"beyond_duration", floatPtr(100), 15, PolicyAdaptive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := newTestConfig()
			config.Seconds = tt.seconds

			result, err := ProcessRecording(buf, config, nil)
			if err != nil {
				t.Fatalf("ProcessRecording failed: %v", err)
			}
			if result.Epochs.Len() != tt.wantEpochs {
				t.Errorf("got %d epochs, want %d", result.Epochs.Len(), tt.wantEpochs)
			}
			if result.Rejection.Policy != tt.wantPolicy {
				t.Errorf("policy = %s, want %s", result.Rejection.Policy, tt.wantPolicy)
			}
		})
	}
}

func TestProcessRecordingErrors(t *testing.T) {
	short := generateTestSignal(t, TestSignalOptions{DurationSecs: 1})

	tests := []struct {
		name   string
		buf    *SignalBuffer
		modify func(*Config)
		want   error
	}{
		{"shorter_than_epoch", short, nil, ErrInvalidParameter},
		{"zero_seconds", generateTestSignal(t, TestSignalOptions{DurationSecs: 4}), func(c *Config) { c.Seconds = floatPtr(0) }, ErrInvalidParameter},
		{"invalid_signal", &SignalBuffer{SampleRate: 256}, nil, ErrInvalidSignal},
		{"window_longer_than_epoch", generateTestSignal(t, TestSignalOptions{DurationSecs: 4}), func(c *Config) { c.WindowSec = 4 }, ErrInvalidSpectralParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := newTestConfig()
			if tt.modify != nil {
				tt.modify(config)
			}
			_, err := ProcessRecording(tt.buf, config, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("ProcessRecording error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProcessRecordingEvents(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 10, Tones: []Tone{{10, 20}}})
	config := newTestConfig()
	config.Seconds = floatPtr(8)

	var events []Event
	result, err := ProcessRecording(buf, config, func(e Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("ProcessRecording failed: %v", err)
	}

	last := -1
	done := make(map[Stage]bool)
	for _, e := range events {
		if e.Fields["run_id"] != result.RunID {
			t.Errorf("%s event %q missing run_id", e.Stage, e.Message)
		}
		idx := e.Stage.Index()
		if idx < last {
			t.Errorf("%s event after %s", e.Stage, Stages[last])
		}
		last = idx
		if e.Progress == 1.0 && !e.Warning {
			done[e.Stage] = true
		}
	}
	for _, s := range Stages {
		if !done[s] {
			t.Errorf("no completion event for stage %s", s)
		}
	}

	if len(result.Timings) != len(Stages) {
		t.Errorf("got %d stage timings, want %d", len(result.Timings), len(Stages))
	}
}
