package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/linuxmatters/eegbands/internal/processor"
	"github.com/linuxmatters/eegbands/internal/recording"
)

func TestDisplayResults(t *testing.T) {
	result := processedSine(t, 30)
	meta := &recording.Metadata{Resampled: true, Jitter: 0.08}

	var buf bytes.Buffer
	DisplayResults(&buf, "/data/eeg_recording_1.csv", meta, result, map[string]float64{"AF7": 150})
	out := buf.String()

	for _, want := range []string{
		"RESULTS: eeg_recording_1.csv",
		"Resampled:   yes (8.0% timestamp jitter)",
		"Original epochs:        15",
		"adaptive policy",
		"Alpha:",
		"DAR (Delta/Alpha):",
		"PER-ELECTRODE POWER RATIOS",
		"AF8:",
		"ALPHA HISTORY",
		"stored 150.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDisplayResultsWithoutRecords(t *testing.T) {
	result := &processor.Result{
		Report: processor.PreprocessingReport{
			EpochsTotal:    4,
			EpochsRejected: 4,
			RejectionRate:  1,
			Policy:         processor.PolicyGlobal,
			ChannelNames:   []string{"AF7", "AF8"},
			SampleRate:     256,

			RecordingDurationSeconds: 8,
		},
	}

	var buf bytes.Buffer
	DisplayResults(&buf, "short.csv", nil, result, nil)
	out := buf.String()

	if !strings.Contains(out, "Duration:    8.0s") || !strings.Contains(out, "Final duration:         0.0s") {
		t.Errorf("recording and clean durations not reported separately:\n%s", out)
	}
	if !strings.Contains(out, "No clean epochs remained") {
		t.Errorf("expected empty-result notice:\n%s", out)
	}
	if strings.Contains(out, "BAND POWERS") || strings.Contains(out, "ALPHA HISTORY") {
		t.Errorf("empty result should stop after statistics:\n%s", out)
	}
}

func TestFormatDurationHMS(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{12.34, "12.3s"},
		{75, "1m 15s"},
		{3725, "1h 2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDurationHMS(tt.seconds); got != tt.want {
			t.Errorf("formatDurationHMS(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
