package recording

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/OpenPSG/edf"

	"github.com/linuxmatters/eegbands/internal/processor"
)

// EDF export layout
const (
	edfRecordDuration = time.Second
	edfDigitalMin     = -32768
	edfDigitalMax     = 32767
	edfMaxRecordBytes = 61440
)

// EDFOptions sets the identification fields of an exported file
type EDFOptions struct {
	PatientID   string
	RecordingID string
	StartTime   time.Time
}

// WriteEDF exports buf as an EDF file with one-second data records and
// physical values in µV. The per-record sample count is the sample rate
// rounded to an integer; the final record is padded with zeros.
func WriteEDF(path string, buf *processor.SignalBuffer, opts EDFOptions) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	perRecord := int(math.Round(buf.SampleRate))
	if perRecord < 1 {
		return fmt.Errorf("sample rate %.3f Hz is too low for one-second EDF records", buf.SampleRate)
	}
	if bytes := perRecord * buf.NumChannels() * 2; bytes > edfMaxRecordBytes {
		return fmt.Errorf("EDF data record of %d bytes exceeds %d bytes", bytes, edfMaxRecordBytes)
	}

	scale := 1.0
	if buf.Unit == processor.UnitVolts {
		scale = 1e6
	}

	startTime := opts.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}
	recordingID := opts.RecordingID
	if recordingID == "" {
		recordingID = "Muse EEG Recording"
	}

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          opts.PatientID,
		RecordingID:        recordingID,
		StartTime:          startTime,
		DataRecordDuration: edfRecordDuration,
		SignalCount:        buf.NumChannels(),
		Signals:            make([]edf.SignalHeader, buf.NumChannels()),
	}
	for ch, name := range buf.ChannelNames {
		lo, hi := physicalRange(buf.Samples[ch], scale)
		hdr.Signals[ch] = edf.SignalHeader{
			Label:             "EEG " + name,
			TransducerType:    "dry electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       lo,
			PhysicalMax:       hi,
			DigitalMin:        edfDigitalMin,
			DigitalMax:        edfDigitalMax,
			SamplesPerRecord:  perRecord,
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create EDF file: %w", err)
	}
	defer f.Close()

	w, err := edf.Create(f, hdr)
	if err != nil {
		return fmt.Errorf("failed to write EDF header: %w", err)
	}

	n := buf.NumSamples()
	record := make([][]float64, buf.NumChannels())
	for start := 0; start < n; start += perRecord {
		for ch, row := range buf.Samples {
			rec := make([]float64, perRecord)
			for i := 0; i < perRecord && start+i < n; i++ {
				rec[i] = row[start+i] * scale
			}
			record[ch] = rec
		}
		if err := w.WriteRecord(record); err != nil {
			return fmt.Errorf("failed to write EDF record at sample %d: %w", start, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalise EDF file: %w", err)
	}
	return f.Close()
}

// physicalRange returns whole-µV bounds covering the scaled samples and the
// zero padding, so the header's two-decimal fields hold them exactly.
func physicalRange(samples []float64, scale float64) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, v := range samples {
		v *= scale
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo, hi = math.Floor(lo), math.Ceil(hi)
	if hi-lo < 1 {
		hi = lo + 1
	}
	return lo, hi
}
