// Package recording provides EEG recording file I/O
package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linuxmatters/eegbands/internal/processor"
)

// Muse export layout
const (
	TimestampColumn = "Timestamp (ms)"

	// FallbackSampleRate is used when timestamps cannot give a rate
	FallbackSampleRate = 256.0

	// DefaultJitterTolerance is the largest relative deviation of a sample
	// interval from the mean before the recording is resampled.
	DefaultJitterTolerance = 0.05

	microvoltsToVolts = 1e-6
)

// MuseElectrodes lists the electrode columns of a Muse headset export
var MuseElectrodes = []string{"TP9", "AF7", "AF8", "TP10"}

// DefaultChannels are the frontal electrodes analysed unless told otherwise
var DefaultChannels = []string{"AF7", "AF8"}

// ErrUnsupportedFormat is returned for files the loader cannot read
var ErrUnsupportedFormat = errors.New("unsupported recording format")

// Options controls how a recording is loaded
type Options struct {
	Channels        []string // Electrode columns to load (default: DefaultChannels)
	JitterTolerance float64  // Relative interval jitter that triggers resampling (default: 5%)
}

// Metadata describes a loaded recording
type Metadata struct {
	Path          string
	Duration      float64 // seconds
	SampleRate    float64 // Hz, mean rate from timestamps
	Channels      []string
	Samples       int
	Rows          int // Data rows in the file
	DroppedRows   int // Rows skipped for missing or non-numeric values
	Jitter        float64
	Resampled     bool // Samples were interpolated onto a uniform grid
	FallbackRate  bool // Timestamps were unusable and FallbackSampleRate was assumed
	NonMonotonic  bool // Timestamps repeated or went backwards; samples were sorted and resampled
	TimestampSpan float64
}

// Open loads a recording and returns its samples in volts
func Open(path string, opts Options) (*processor.SignalBuffer, *Metadata, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open recording: %w", err)
		}
		defer f.Close()

		buf, meta, err := ReadMuseCSV(f, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		meta.Path = path
		return buf, meta, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadMuseCSV parses a Muse-style CSV export: a timestamp column in
// milliseconds followed by electrode columns in µV.
func ReadMuseCSV(r io.Reader, opts Options) (*processor.SignalBuffer, *Metadata, error) {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	tolerance := opts.JitterTolerance
	if tolerance <= 0 {
		tolerance = DefaultJitterTolerance
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	tsCol, ok := columns[TimestampColumn]
	if !ok {
		return nil, nil, fmt.Errorf("missing %q column", TimestampColumn)
	}
	chCols := make([]int, len(channels))
	for i, name := range channels {
		col, ok := columns[name]
		if !ok {
			return nil, nil, fmt.Errorf("missing electrode column %q", name)
		}
		chCols[i] = col
	}

	meta := &Metadata{Channels: append([]string(nil), channels...)}
	var timestamps []float64
	samples := make([][]float64, len(channels))

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", meta.Rows+2, err)
		}
		meta.Rows++

		ts, ok := parseField(row, tsCol)
		if !ok {
			meta.DroppedRows++
			continue
		}
		values := make([]float64, len(chCols))
		valid := true
		for i, col := range chCols {
			if values[i], ok = parseField(row, col); !ok {
				valid = false
				break
			}
		}
		if !valid {
			meta.DroppedRows++
			continue
		}

		timestamps = append(timestamps, ts/1000.0)
		for i, v := range values {
			samples[i] = append(samples[i], v*microvoltsToVolts)
		}
	}

	if len(timestamps) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 valid rows, got %d", len(timestamps))
	}

	if !strictlyIncreasing(timestamps) {
		meta.NonMonotonic = true
		timestamps, samples = sortByTimestamp(timestamps, samples)
	}

	meta.TimestampSpan = timestamps[len(timestamps)-1] - timestamps[0]
	interval := meta.TimestampSpan / float64(len(timestamps)-1)

	if interval > 0 {
		meta.Jitter = intervalJitter(timestamps, interval)
		if meta.NonMonotonic {
			timestamps = spreadDuplicates(timestamps, interval)
			interval = (timestamps[len(timestamps)-1] - timestamps[0]) / float64(len(timestamps)-1)
		}
		meta.SampleRate = 1.0 / interval
		// Reordered or spread samples always go onto a uniform grid
		if meta.NonMonotonic || meta.Jitter > tolerance {
			samples = resampleUniform(timestamps, samples, meta.SampleRate)
			meta.Resampled = true
		}
	} else {
		meta.SampleRate = FallbackSampleRate
		meta.FallbackRate = true
	}

	buf := &processor.SignalBuffer{
		ChannelNames: meta.Channels,
		SampleRate:   meta.SampleRate,
		Samples:      samples,
		Unit:         processor.UnitVolts,
	}
	meta.Samples = buf.NumSamples()
	meta.Duration = buf.Duration()
	return buf, meta, nil
}

// parseField returns the finite float in row[col]
func parseField(row []string, col int) (float64, bool) {
	if col >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[col])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// strictlyIncreasing reports whether every timestamp is later than the one before
func strictlyIncreasing(timestamps []float64) bool {
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return false
		}
	}
	return true
}

// intervalJitter returns the largest relative deviation of any sample
// interval from mean
func intervalJitter(timestamps []float64, mean float64) float64 {
	worst := 0.0
	for i := 1; i < len(timestamps); i++ {
		d := timestamps[i] - timestamps[i-1]
		if dev := math.Abs(d-mean) / mean; dev > worst {
			worst = dev
		}
	}
	return worst
}
