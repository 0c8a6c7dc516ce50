package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/eegbands/internal/mains"
	"github.com/linuxmatters/eegbands/internal/processor"
	"github.com/linuxmatters/eegbands/internal/recording"
)

// ============================================================================
// Measurement Interpretation Functions
// ============================================================================
// These functions turn rejection statistics and band ratios into short
// human-readable descriptions for the report.

// interpretRejectionRate describes the artifact load of a recording.
// Resting-state recordings with consumer headbands typically lose 5-20% of
// epochs to blinks and movement.
func interpretRejectionRate(rate float64) string {
	switch {
	case rate == 0:
		return "no artifacts detected"
	case rate < 0.10:
		return "clean recording"
	case rate < 0.20:
		return "typical artifact load"
	case rate < 0.40:
		return "elevated artifact load"
	default:
		return "heavy artifact load, check electrode contact"
	}
}

// interpretDAR describes the delta/alpha balance.
// Relaxed, eyes-closed wakefulness is alpha dominant (DAR well below 1);
// drowsiness and slowing push delta above alpha.
func interpretDAR(dar float64) string {
	switch {
	case math.IsNaN(dar):
		return ""
	case dar < 0.5:
		return "alpha dominant"
	case dar < 1.0:
		return "balanced"
	case dar < 2.0:
		return "delta elevated"
	default:
		return "delta dominant, possible slowing or eye movement"
	}
}

// interpretTAR describes the theta/alpha balance.
// TAR rises with drowsiness and mind wandering.
func interpretTAR(tar float64) string {
	switch {
	case math.IsNaN(tar):
		return ""
	case tar < 0.5:
		return "alpha dominant"
	case tar < 1.0:
		return "balanced"
	default:
		return "theta dominant, possible drowsiness"
	}
}

// =============================================================================

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", displayWidth(title)))
}

// ReportData contains all the information needed to generate a report
type ReportData struct {
	InputPath  string
	ReportPath string
	StartTime  time.Time
	EndTime    time.Time
	Metadata   *recording.Metadata // May be nil
	Notch      *mains.Notch        // How the notch frequency was chosen; may be nil
	Result     *processor.Result
}

// GenerateReport writes a text report of one processed recording to
// data.ReportPath.
//
// Report structure:
// 1. Header - file info and timestamp
// 2. Processing Summary - stage timings
// 3. Recording - loader details
// 4. Signal Conditioning
// 5. Artifact Rejection - policy, thresholds, cross-validation, interpolation
// 6. Spectral Estimation
// 7. Band Powers - per-channel table
// 8. Recording Tips
func GenerateReport(data ReportData) error {
	if data.Result == nil {
		return fmt.Errorf("no processing result for %s", filepath.Base(data.InputPath))
	}

	f, err := os.Create(data.ReportPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	writeReport(f, data)

	return f.Close()
}

// writeReport renders every section to w
func writeReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	writeProcessingSummary(w, data)
	writeRecordingSection(w, data.Metadata)
	writeConditioningSection(w, data.Result.Config, data.Notch)
	writeRejectionSection(w, data.Result)
	writeSpectralSection(w, data.Result)
	writeBandPowerTable(w, data.Result.Summary)
	writeRecordingTips(w, GenerateRecordingTips(data.Result, data.Metadata))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// =============================================================================
// Report Section Writers
// =============================================================================

// writeReportHeader outputs the report header with file info and timestamp.
func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "EEG Band Power Report")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration: %s\n", formatDurationHMS(data.Result.Report.RecordingDurationSeconds))
	fmt.Fprintf(w, "Run ID: %s\n", data.Result.RunID)
	fmt.Fprintln(w, "")
}

// writeProcessingSummary outputs the time spent in each pipeline stage.
func writeProcessingSummary(w io.Writer, data ReportData) {
	writeSection(w, "Processing Summary")

	for _, t := range data.Result.Timings {
		fmt.Fprintf(w, "%-12s %s\n", stageTitle(t.Stage)+":", formatDuration(t.Duration))
	}

	totalTime := data.EndTime.Sub(data.StartTime)
	fmt.Fprintf(w, "%-12s %s", "Total:", formatDuration(totalTime))

	if secs := data.Result.Report.RecordingDurationSeconds; secs > 0 && totalTime > 0 {
		recordingDuration := time.Duration(secs * float64(time.Second))
		fmt.Fprintf(w, " (%.0fx real-time)", float64(recordingDuration)/float64(totalTime))
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "")
}

// stageTitle capitalises a stage name for display
func stageTitle(s processor.Stage) string {
	name := string(s)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// writeRecordingSection outputs how the file was loaded.
func writeRecordingSection(w io.Writer, meta *recording.Metadata) {
	if meta == nil {
		return
	}
	writeSection(w, "Recording")

	fmt.Fprintf(w, "Channels:     %s\n", strings.Join(meta.Channels, ", "))
	fmt.Fprintf(w, "Sample rate:  %.3f Hz", meta.SampleRate)
	switch {
	case meta.FallbackRate:
		fmt.Fprintf(w, " (assumed, timestamps unusable)")
	case meta.Resampled:
		fmt.Fprintf(w, " (resampled, %.1f%% interval jitter)", meta.Jitter*100)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Samples:      %d\n", meta.Samples)
	fmt.Fprintf(w, "Rows:         %d (%d dropped)\n", meta.Rows, meta.DroppedRows)
	if meta.NonMonotonic {
		fmt.Fprintln(w, "Timestamps:   repeated or out of order, samples sorted by time")
	}
	fmt.Fprintln(w, "")
}

// writeConditioningSection outputs the filter settings.
func writeConditioningSection(w io.Writer, cfg *processor.Config, notch *mains.Notch) {
	if cfg == nil {
		return
	}
	writeSection(w, "Signal Conditioning")

	fmt.Fprintf(w, "Bandpass:     %s-%s Hz (linear-phase FIR)\n", formatMetric(cfg.HighpassFreq, 1), formatMetric(cfg.LowpassFreq, 1))
	if cfg.NotchEnabled {
		source := ""
		if notch != nil {
			switch notch.Source {
			case "timezone":
				source = fmt.Sprintf(" (from timezone %s)", notch.Timezone)
			case "default":
				source = " (default, timezone not mapped)"
			case "flag":
				source = " (requested)"
			}
		}
		fmt.Fprintf(w, "Notch:        %s Hz%s\n", formatMetric(cfg.NotchFreq, 0), source)
	} else {
		fmt.Fprintln(w, "Notch:        disabled")
	}
	if cfg.Seconds != nil {
		fmt.Fprintf(w, "Time limit:   first %s s\n", formatMetric(*cfg.Seconds, 1))
	}
	fmt.Fprintf(w, "Epochs:       %s s, non-overlapping\n", formatMetric(cfg.EpochDuration, 1))
	fmt.Fprintln(w, "")
}

// writeRejectionSection outputs the artifact rejection decisions.
// Thresholds are shown in µV regardless of the input unit.
func writeRejectionSection(w io.Writer, result *processor.Result) {
	log := result.Rejection
	if log == nil {
		return
	}
	report := result.Report
	scale := amplitudeScale(result)

	writeSection(w, "Artifact Rejection")

	table := NewMetricTable("Value")
	table.AddRow("Policy", []string{string(log.Policy)}, "", "")
	table.AddRow("Epochs", []string{fmt.Sprintf("%d", report.EpochsTotal)}, "", "")
	table.AddRow("Kept", []string{fmt.Sprintf("%d", report.EpochsFinal)}, "", "")
	table.AddRow("Clean signal", []string{formatMetric(report.TotalDurationSeconds, 0)}, "s", "")
	table.AddRow("Rejected", []string{fmt.Sprintf("%d", report.EpochsRejected)}, "", "")
	table.AddRow("Rejection rate", []string{formatPercent(report.RejectionRate)}, "", interpretRejectionRate(report.RejectionRate))
	if log.Policy == processor.PolicyGlobal {
		table.AddRow("Threshold", []string{formatMetric(log.Threshold*scale, 1)}, "µV", "peak-to-peak")
	} else {
		table.AddRow("Interpolate", []string{fmt.Sprintf("%d", log.Interpolate)}, "ch", "")
		table.AddRow("Post-pass threshold", []string{formatMetric(log.PostPassThreshold*scale, 1)}, "µV", "peak-to-peak")
		table.AddRow("Primary rejected", []string{fmt.Sprintf("%d", log.PrimaryRejected)}, "", "")
		table.AddRow("Post-pass rejected", []string{fmt.Sprintf("%d", log.PostPassRejected)}, "", "")
	}
	fmt.Fprint(w, table.String())

	if log.Policy == processor.PolicyAdaptive {
		fmt.Fprintln(w, "")
		channels := NewMetricTable(log.ChannelNames...)
		thresholds := make([]float64, len(log.ChannelThresholds))
		for i, t := range log.ChannelThresholds {
			thresholds[i] = t * scale
		}
		channels.AddMetricRow("Threshold", thresholds, 1, "µV", "")
		interpolated := log.InterpolationsPerChannel()
		values := make([]string, len(interpolated))
		for i, n := range interpolated {
			values[i] = fmt.Sprintf("%d", n)
		}
		channels.AddRow("Interpolated", values, "epochs", "")
		fmt.Fprint(w, channels.String())

		if len(log.Scores) > 0 {
			fmt.Fprintln(w, "")
			fmt.Fprintf(w, "Cross-validation (%d folds, RMSE to median of held-out epochs):\n", log.Folds)
			for _, s := range log.Scores {
				mark := ""
				if s.Interpolate == log.Interpolate {
					mark = " [SELECTED]"
				}
				fmt.Fprintf(w, "  interpolate %d: %s µV%s\n", s.Interpolate, formatMetric(s.Score*scale, 3), mark)
			}
		}
	}

	if bad := rejectedEpochs(log); len(bad) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Rejected epochs: %s\n", wrapText(strings.Join(bad, ", "), 60, "                 "))
	}
	fmt.Fprintln(w, "")
}

// amplitudeScale converts the processed unit to µV
func amplitudeScale(result *processor.Result) float64 {
	if result.Input != nil && result.Input.Unit == processor.UnitMicrovolts {
		return 1
	}
	return 1e6
}

// rejectedEpochs lists the segmentation indices of excluded epochs
func rejectedEpochs(log *processor.RejectionLog) []string {
	var out []string
	for i, bad := range log.BadEpochs {
		if bad {
			out = append(out, fmt.Sprintf("%d", i))
		}
	}
	return out
}

// writeSpectralSection outputs the Welch parameters and frequency axis.
func writeSpectralSection(w io.Writer, result *processor.Result) {
	cfg := result.Config
	if cfg == nil {
		return
	}
	writeSection(w, "Spectral Estimation")

	fmt.Fprintf(w, "Method:       Welch, periodic Hamming window\n")
	fmt.Fprintf(w, "Segment:      %s s, %s s overlap\n", formatMetric(cfg.WindowSec, 2), formatMetric(cfg.OverlapSec, 2))
	fmt.Fprintf(w, "Range:        %s-%s Hz\n", formatMetric(cfg.FMin, 1), formatMetric(cfg.FMax, 1))
	if sp := result.Spectrum; sp != nil && len(sp.Freqs) > 1 {
		fmt.Fprintf(w, "Resolution:   %s Hz (%d bins)\n", formatMetric(sp.Freqs[1]-sp.Freqs[0], 3), len(sp.Freqs))
	}

	var bands []string
	for _, b := range processor.CanonicalBands {
		bands = append(bands, fmt.Sprintf("%s %g-%g", b.Name, b.Low, b.High))
	}
	fmt.Fprintf(w, "Bands (Hz):   %s\n", strings.Join(bands, ", "))
	fmt.Fprintln(w, "")
}

// writeBandPowerTable outputs mean ± standard deviation of every value
// column per channel. Ratio rows carry an interpretation of the mean across
// channels.
func writeBandPowerTable(w io.Writer, summary []processor.ChannelSummary) {
	if len(summary) == 0 {
		return
	}
	writeSection(w, "Band Powers (mean ± std per channel)")

	headers := make([]string, len(summary))
	for i, s := range summary {
		headers[i] = s.Channel
	}
	table := NewMetricTable(headers...)

	for c, name := range processor.ValueColumns {
		values := make([]string, len(summary))
		var sum float64
		var n int
		for i, s := range summary {
			mean := s.Mean.Columns()[c]
			values[i] = formatMeanStd(mean, s.StdDev.Columns()[c], 2)
			if !math.IsNaN(mean) {
				sum += mean
				n++
			}
		}
		unit, interpretation := "µV²", ""
		avg := math.NaN()
		if n > 0 {
			avg = sum / float64(n)
		}
		switch name {
		case processor.RatioDAR:
			unit, interpretation = "", interpretDAR(avg)
		case processor.RatioTAR:
			unit, interpretation = "", interpretTAR(avg)
		}
		table.AddRow(name, values, unit, interpretation)
	}

	epochs := make([]string, len(summary))
	for i, s := range summary {
		epochs[i] = fmt.Sprintf("%d", s.Epochs)
	}
	table.AddRow("epochs", epochs, "", "")

	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// writeRecordingTips outputs numbered advice for the next session.
func writeRecordingTips(w io.Writer, tips []RecordingTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(w, "Recording Tips")
	for i, tip := range tips {
		fmt.Fprintf(w, "%d. %s\n", i+1, wrapText(tip.Message, 72, "   "))
	}
	fmt.Fprintln(w, "")
}
