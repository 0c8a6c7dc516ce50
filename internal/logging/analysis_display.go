// This file provides the console summary printed after processing.

package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/linuxmatters/eegbands/internal/processor"
	"github.com/linuxmatters/eegbands/internal/recording"
)

var bandLabels = []string{"Delta", "Theta", "Alpha", "Beta", "Gamma"}

// DisplayResults prints the final summary of one processed recording:
// epoch statistics, band powers averaged across epochs and channels, and
// per-electrode ratios. meta and history may be nil; history holds the
// per-channel alpha mean of earlier stored runs of the same recording.
func DisplayResults(w io.Writer, inputPath string, meta *recording.Metadata, result *processor.Result, history map[string]float64) {
	report := result.Report

	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "RESULTS: %s\n", filepath.Base(inputPath))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	fmt.Fprintf(w, "Duration:    %s\n", formatDurationHMS(report.RecordingDurationSeconds))
	fmt.Fprintf(w, "Sample Rate: %.2f Hz\n", report.SampleRate)
	fmt.Fprintf(w, "Channels:    %s\n", strings.Join(report.ChannelNames, ", "))
	if meta != nil && meta.Resampled {
		fmt.Fprintf(w, "Resampled:   yes (%.1f%% timestamp jitter)\n", meta.Jitter*100)
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "PROCESSING STATISTICS")
	fmt.Fprintf(w, "  Original epochs:        %d\n", report.EpochsTotal)
	fmt.Fprintf(w, "  Epochs after cleaning:  %d\n", report.EpochsFinal)
	fmt.Fprintf(w, "  Rejection rate:         %s (%s policy)\n", formatPercent(report.RejectionRate), report.Policy)
	fmt.Fprintf(w, "  Final duration:         %.1fs\n", report.TotalDurationSeconds)
	fmt.Fprintln(w)

	if len(result.Records) == 0 {
		fmt.Fprintln(w, "  No clean epochs remained; no band powers were computed.")
		return
	}

	writeAnalysisSection(w, "BAND POWERS (averaged across epochs and channels, µV²)")
	columns := recordColumns(result.Records)
	for b, label := range bandLabels {
		mean, std := stat.MeanStdDev(columns[b], nil)
		fmt.Fprintf(w, "  %-8s %.2e ± %.2e\n", label+":", mean, std)
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "POWER RATIOS (averaged across epochs and channels)")
	darMean, darStd := stat.MeanStdDev(columns[5], nil)
	tarMean, tarStd := stat.MeanStdDev(columns[6], nil)
	fmt.Fprintf(w, "  DAR (Delta/Alpha): %s\n", formatMeanStd(darMean, darStd, 3))
	fmt.Fprintf(w, "  TAR (Theta/Alpha): %s\n", formatMeanStd(tarMean, tarStd, 3))
	fmt.Fprintln(w)

	writeAnalysisSection(w, "PER-ELECTRODE POWER RATIOS")
	for _, s := range result.Summary {
		if s.Epochs == 0 {
			fmt.Fprintf(w, "  %s: no clean epochs\n", s.Channel)
			continue
		}
		fmt.Fprintf(w, "  %s:\n", s.Channel)
		fmt.Fprintf(w, "    DAR: %s\n", formatMeanStd(s.Mean.DAR, s.StdDev.DAR, 3))
		fmt.Fprintf(w, "    TAR: %s\n", formatMeanStd(s.Mean.TAR, s.StdDev.TAR, 3))
	}

	if len(history) > 0 {
		fmt.Fprintln(w)
		writeAnalysisSection(w, "ALPHA HISTORY (mean of stored runs, µV²)")
		for _, s := range result.Summary {
			prev, ok := history[s.Channel]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-6s this run %s, stored %s\n", s.Channel, formatMetric(s.Mean.Alpha, 2), formatMetric(prev, 2))
		}
	}
}

// recordColumns transposes records into one slice per value column
func recordColumns(records []processor.ResultRecord) [][]float64 {
	columns := make([][]float64, len(processor.ValueColumns))
	for c := range columns {
		columns[c] = make([]float64, len(records))
	}
	for i, r := range records {
		for c, v := range r.Columns() {
			columns[c][i] = v
		}
	}
	return columns
}

// writeAnalysisSection writes a section header for console output.
func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}

// formatDurationHMS formats duration as "Xh Ym Zs" or "Ym Zs" or "Z.Xs".
func formatDurationHMS(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	totalSeconds := int(seconds)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	secs := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	}
	return fmt.Sprintf("%dm %ds", minutes, secs)
}
