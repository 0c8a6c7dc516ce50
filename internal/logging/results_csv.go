package logging

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/linuxmatters/eegbands/internal/processor"
)

// Output file suffixes, appended to the recording's base name
const (
	BandPowersSuffix = "_band_powers.csv"
	SummarySuffix    = "_summary.csv"
	ReportSuffix     = "_report.log"
	EDFSuffix        = ".edf"
)

// summaryDecimals is the rounding applied to per-channel means
const summaryDecimals = 6

// OutputPath joins outputDir and the input's base name with suffix.
// An empty outputDir places the file next to the input.
func OutputPath(inputPath, outputDir, suffix string) string {
	base := filepath.Base(inputPath)
	base = base[:len(base)-len(filepath.Ext(base))]
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}
	return filepath.Join(outputDir, base+suffix)
}

// WriteBandPowersCSV writes one row per record: epoch, channel, then the
// band powers and ratios in processor.ValueColumns order.
func WriteBandPowersCSV(path string, records []processor.ResultRecord) error {
	return writeCSVFile(path, func(w io.Writer) error {
		return EncodeBandPowers(w, records)
	})
}

// EncodeBandPowers writes the band power table as CSV to w.
func EncodeBandPowers(w io.Writer, records []processor.ResultRecord) error {
	cw := csv.NewWriter(w)

	header := append([]string{"epoch", "channel"}, processor.ValueColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, r := range records {
		row[0] = strconv.Itoa(r.Epoch)
		row[1] = r.Channel
		for i, v := range r.Columns() {
			row[2+i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the per-channel mean of every value column,
// rounded to six decimals, with the number of epochs behind each mean.
func WriteSummaryCSV(path string, summary []processor.ChannelSummary) error {
	return writeCSVFile(path, func(w io.Writer) error {
		return EncodeSummary(w, summary)
	})
}

// EncodeSummary writes the per-channel summary table as CSV to w.
// Channels without surviving epochs have empty value cells.
func EncodeSummary(w io.Writer, summary []processor.ChannelSummary) error {
	cw := csv.NewWriter(w)

	header := append([]string{"channel", "epochs"}, processor.ValueColumns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, s := range summary {
		row[0] = s.Channel
		row[1] = strconv.Itoa(s.Epochs)
		for i, v := range s.Mean.Columns() {
			row[2+i] = formatRounded(v, summaryDecimals)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatRounded(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	scale := math.Pow(10, float64(decimals))
	return strconv.FormatFloat(math.Round(v*scale)/scale, 'f', -1, 64)
}

func writeCSVFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
