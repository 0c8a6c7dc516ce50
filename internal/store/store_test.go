package store

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/linuxmatters/eegbands/internal/processor"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult(runID string, alphas ...float64) *processor.Result {
	result := &processor.Result{
		RunID:  runID,
		Config: processor.DefaultConfig(),
		Report: processor.PreprocessingReport{
			EpochsTotal:          12,
			EpochsFinal:          10,
			EpochsRejected:       2,
			RejectionRate:        2.0 / 12.0,
			Policy:               processor.PolicyAdaptive,
			ChannelNames:         []string{"AF7", "AF8"},
			SampleRate:           256.03,
			TotalDurationSeconds: 20,

			RecordingDurationSeconds: 24.5,
		},
	}
	for i, a := range alphas {
		result.Records = append(result.Records, processor.ResultRecord{
			Epoch:   i / 2,
			Channel: result.Report.ChannelNames[i%2],
			BandValues: processor.BandValues{
				Delta: 1.5, Theta: 2.5, Alpha: a, Beta: 3, Gamma: 0.25,
				DAR: 1.5 / a, TAR: 2.5 / a,
			},
		})
	}
	return result
}

func TestSaveRunAndRecords(t *testing.T) {
	s := tempDB(t)
	result := testResult("run-1", 10, 20, 30, 40)

	rec, err := s.SaveRun("eeg_recording_01.csv", result)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if rec.RunID != "run-1" || rec.EpochsFinal != 10 {
		t.Fatalf("unexpected run record: %+v", rec)
	}

	got, err := s.Records("run-1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if !reflect.DeepEqual(got, result.Records) {
		t.Errorf("stored records differ:\n got %+v\nwant %+v", got, result.Records)
	}

	var source, policy, channels, config string
	var rate, duration, clean, rejection float64
	err = s.db.QueryRow(
		`SELECT source, policy, channels_json, config_json, sample_rate, duration_seconds, clean_seconds, rejection_rate
		 FROM runs WHERE run_id = ?`, "run-1",
	).Scan(&source, &policy, &channels, &config, &rate, &duration, &clean, &rejection)
	if err != nil {
		t.Fatalf("query run: %v", err)
	}
	if source != "eeg_recording_01.csv" || policy != string(processor.PolicyAdaptive) {
		t.Errorf("source %q policy %q", source, policy)
	}
	if channels != `["AF7","AF8"]` {
		t.Errorf("channels_json = %s", channels)
	}
	if rate != 256.03 || rejection != 2.0/12.0 {
		t.Errorf("sample rate %v, rejection rate %v", rate, rejection)
	}
	if duration != 24.5 || clean != 20 {
		t.Errorf("durations = %v recording, %v clean, want 24.5 and 20", duration, clean)
	}
	if rec.DurationSeconds != 24.5 || rec.CleanSeconds != 20 {
		t.Errorf("returned record durations = %v/%v", rec.DurationSeconds, rec.CleanSeconds)
	}
	if !strings.Contains(config, `"Seed":42`) {
		t.Errorf("config snapshot missing seed: %s", config)
	}
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	s := tempDB(t)
	if _, err := s.SaveRun("a.csv", testResult("dup", 1, 2)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if _, err := s.SaveRun("a.csv", testResult("dup", 3, 4, 5, 6)); err == nil {
		t.Fatal("expected error for duplicate run ID")
	}

	got, err := s.Records("dup")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d rows after failed insert, want 2", len(got))
	}
}

func TestChannelAlphaMeans(t *testing.T) {
	s := tempDB(t)
	for _, r := range []*processor.Result{
		testResult("r1", 10, 20),
		testResult("r2", 30, 40),
	} {
		if _, err := s.SaveRun("subject.csv", r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	if _, err := s.SaveRun("other.csv", testResult("r3", 1000, 1000)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	means, err := s.ChannelAlphaMeans("subject.csv")
	if err != nil {
		t.Fatalf("ChannelAlphaMeans: %v", err)
	}
	if means["AF7"] != 20 || means["AF8"] != 30 {
		t.Errorf("alpha means = %v, want AF7=20 AF8=30", means)
	}
}

func TestEmptyRun(t *testing.T) {
	s := tempDB(t)
	if _, err := s.SaveRun("empty.csv", testResult("empty")); err != nil {
		t.Fatalf("SaveRun with no records: %v", err)
	}
	got, err := s.Records("empty")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}
