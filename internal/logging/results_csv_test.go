package logging

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/eegbands/internal/processor"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		outputDir string
		suffix    string
		want      string
	}{
		{"next_to_input", "/data/eeg_recording_01.csv", "", BandPowersSuffix, "/data/eeg_recording_01_band_powers.csv"},
		{"output_dir", "/data/eeg_recording_01.csv", "/results", SummarySuffix, "/results/eeg_recording_01_summary.csv"},
		{"report", "session.csv", "", ReportSuffix, "session_report.log"},
		{"edf", "/data/a.b.csv", "/out", EDFSuffix, "/out/a.b.edf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath(tt.input, tt.outputDir, tt.suffix); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeBandPowers(t *testing.T) {
	records := []processor.ResultRecord{
		{Epoch: 0, Channel: "AF7", BandValues: processor.BandValues{Delta: 1.5, Theta: 2, Alpha: 200, Beta: 0.25, Gamma: 1e-7, DAR: 0.0075, TAR: 0.01}},
		{Epoch: 0, Channel: "AF8", BandValues: processor.BandValues{Delta: 3, Theta: 4, Alpha: 100, Beta: 5, Gamma: 6, DAR: 0.03, TAR: 0.04}},
		{Epoch: 2, Channel: "AF7", BandValues: processor.BandValues{}},
	}

	var buf bytes.Buffer
	if err := EncodeBandPowers(&buf, records); err != nil {
		t.Fatalf("EncodeBandPowers: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}

	wantHeader := "epoch,channel,delta_power,theta_power,alpha_power,beta_power,gamma_power,DAR,TAR"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("header = %q, want %q", got, wantHeader)
	}
	if got := strings.Join(rows[1], ","); got != "0,AF7,1.5,2,200,0.25,1e-07,0.0075,0.01" {
		t.Errorf("row 1 = %q", got)
	}
	if rows[3][0] != "2" || rows[3][1] != "AF7" {
		t.Errorf("epoch identity not preserved: %v", rows[3])
	}
}

func TestEncodeSummary(t *testing.T) {
	summary := []processor.ChannelSummary{
		{Channel: "AF7", Epochs: 3, Mean: processor.BandValues{Delta: 1.0 / 3.0, Theta: 2, Alpha: 123.4567894, Beta: 0, Gamma: 1, DAR: 0.5, TAR: 0.25}},
		{Channel: "AF8", Epochs: 0, Mean: processor.BandValues{Delta: math.NaN(), Theta: math.NaN(), Alpha: math.NaN(), Beta: math.NaN(), Gamma: math.NaN(), DAR: math.NaN(), TAR: math.NaN()}},
	}

	var buf bytes.Buffer
	if err := EncodeSummary(&buf, summary); err != nil {
		t.Fatalf("EncodeSummary: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if got := strings.Join(rows[0], ","); got != "channel,epochs,delta_power,theta_power,alpha_power,beta_power,gamma_power,DAR,TAR" {
		t.Errorf("header = %q", got)
	}
	if got := strings.Join(rows[1], ","); got != "AF7,3,0.333333,2,123.456789,0,1,0.5,0.25" {
		t.Errorf("AF7 row = %q", got)
	}
	if got := strings.Join(rows[2], ","); got != "AF8,0,,,,,,," {
		t.Errorf("AF8 row = %q", got)
	}
}

func TestWriteResultFiles(t *testing.T) {
	dir := t.TempDir()
	records := []processor.ResultRecord{{Epoch: 1, Channel: "AF7", BandValues: processor.BandValues{Alpha: 10}}}

	powers := filepath.Join(dir, "rec"+BandPowersSuffix)
	if err := WriteBandPowersCSV(powers, records); err != nil {
		t.Fatalf("WriteBandPowersCSV: %v", err)
	}
	data, err := os.ReadFile(powers)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "1,AF7,0,0,10,0,0,0,0\n") {
		t.Errorf("unexpected file content:\n%s", data)
	}

	summary := processor.SummarizeByChannel(records, []string{"AF7"})
	if err := WriteSummaryCSV(filepath.Join(dir, "rec"+SummarySuffix), summary); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}

	if err := WriteBandPowersCSV(filepath.Join(dir, "missing", "x.csv"), records); err == nil {
		t.Error("expected error for missing directory")
	}
}
