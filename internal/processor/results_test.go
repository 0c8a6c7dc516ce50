package processor

import (
	"math"
	"testing"
)

func TestBuildRecordsEpochMajor(t *testing.T) {
	set := &EpochSet{
		ChannelNames: []string{"AF7", "AF8"},
		Epochs:       []Epoch{{Index: 0}, {Index: 3}},
	}
	bands := BandPowerTable{}
	for i, band := range CanonicalBands {
		bands[band.Name] = [][]float64{{float64(i), float64(i) + 10}, {float64(i) + 20, float64(i) + 30}}
	}
	ratios := RatioTable{
		RatioDAR: {{1, 2}, {3, 4}},
		RatioTAR: {{5, 6}, {7, 8}},
	}

	records := BuildRecords(set, bands, ratios)
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}

	want := []struct {
		epoch   int
		channel string
		alpha   float64
		tar     float64
	}{
		{0, "AF7", 2, 5},
		{0, "AF8", 12, 6},
		{3, "AF7", 22, 7},
		{3, "AF8", 32, 8},
	}
	for i, w := range want {
		r := records[i]
		if r.Epoch != w.epoch || r.Channel != w.channel || r.Alpha != w.alpha || r.TAR != w.tar {
			t.Errorf("record %d = {%d %s alpha=%v TAR=%v}, want {%d %s alpha=%v TAR=%v}",
				i, r.Epoch, r.Channel, r.Alpha, r.TAR, w.epoch, w.channel, w.alpha, w.tar)
		}
	}
}

func TestBuildRecordsEmpty(t *testing.T) {
	set := &EpochSet{ChannelNames: []string{"AF7"}}
	records := BuildRecords(set, IntegrateBands(&PowerSpectrum{}, CanonicalBands), RatioTable{})
	if len(records) != 0 {
		t.Errorf("got %d records from an empty set", len(records))
	}
}

func TestSummarizeByChannel(t *testing.T) {
	records := []ResultRecord{
		{Epoch: 0, Channel: "AF7", BandValues: BandValues{Alpha: 10, DAR: 1}},
		{Epoch: 1, Channel: "AF7", BandValues: BandValues{Alpha: 20, DAR: 3}},
		{Epoch: 0, Channel: "AF8", BandValues: BandValues{Alpha: 7}},
	}

	summary := SummarizeByChannel(records, []string{"AF7", "AF8", "TP9"})
	if len(summary) != 3 {
		t.Fatalf("got %d summaries, want 3", len(summary))
	}

	af7 := summary[0]
	if af7.Channel != "AF7" || af7.Epochs != 2 {
		t.Errorf("AF7 summary = %+v", af7)
	}
	if af7.Mean.Alpha != 15 || af7.Mean.DAR != 2 {
		t.Errorf("AF7 means alpha=%v DAR=%v, want 15/2", af7.Mean.Alpha, af7.Mean.DAR)
	}
	if math.Abs(af7.StdDev.Alpha-math.Sqrt(50)) > 1e-12 {
		t.Errorf("AF7 alpha std = %v, want %v", af7.StdDev.Alpha, math.Sqrt(50))
	}

	af8 := summary[1]
	if af8.Mean.Alpha != 7 || !math.IsNaN(af8.StdDev.Alpha) {
		t.Errorf("AF8 alpha mean=%v std=%v, want 7/NaN", af8.Mean.Alpha, af8.StdDev.Alpha)
	}

	tp9 := summary[2]
	if tp9.Epochs != 0 || !math.IsNaN(tp9.Mean.Alpha) {
		t.Errorf("TP9 without rows = %+v, want NaN means", tp9)
	}
}

func TestNewPreprocessingReport(t *testing.T) {
	buf := generateTestSignal(t, TestSignalOptions{DurationSecs: 12})
	set, err := Segment(buf, 2)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	log := newRejectionLog(set)
	log.Policy = PolicyGlobal
	log.BadEpochs[1] = true
	log.BadEpochs[4] = true
	clean := set.withEpochs([]Epoch{set.Epochs[0], set.Epochs[2], set.Epochs[3], set.Epochs[5]})

	report := NewPreprocessingReport(buf, clean, log)

	if report.EpochsTotal != 6 || report.EpochsFinal != 4 || report.EpochsRejected != 2 {
		t.Errorf("counts = %d/%d/%d, want 6/4/2", report.EpochsTotal, report.EpochsFinal, report.EpochsRejected)
	}
	if math.Abs(report.RejectionRate-2.0/6.0) > 1e-12 {
		t.Errorf("rejection rate = %v, want 1/3", report.RejectionRate)
	}
	if report.TotalDurationSeconds != 8 {
		t.Errorf("clean duration = %v s, want 8 s (4 epochs of 2 s)", report.TotalDurationSeconds)
	}
	if report.RecordingDurationSeconds != 12 || report.SampleRate != 256 {
		t.Errorf("recording %v s at %v Hz, want 12 s at 256 Hz", report.RecordingDurationSeconds, report.SampleRate)
	}
	if report.Policy != PolicyGlobal {
		t.Errorf("policy = %s, want global", report.Policy)
	}
}
