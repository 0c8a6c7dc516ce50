package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linuxmatters/eegbands/internal/processor"
	"github.com/linuxmatters/eegbands/internal/recording"
)

// RecordingTip represents a single piece of actionable recording advice
// derived from the processing outcome.
type RecordingTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "rejection_high")
}

// MaxRecordingTips is the maximum number of tips to return.
const MaxRecordingTips = 5

// Tip thresholds
const (
	rejectionHighRate      = 0.40
	rejectionModerateRate  = 0.20
	fewEpochsThreshold     = 10
	shortRecordingSeconds  = 60.0
	interpolationHighShare = 0.25
	droppedRowsShare       = 0.01
)

// GenerateRecordingTips inspects a processing result and returns prioritised
// suggestions for the next recording session. meta may be nil.
func GenerateRecordingTips(result *processor.Result, meta *recording.Metadata) []RecordingTip {
	if result == nil {
		return nil
	}

	var tips []RecordingTip
	firedRules := make(map[string]bool)

	rules := []func(*processor.Result, *recording.Metadata) *RecordingTip{
		tipNoCleanEpochs,
		tipRejectionRate,
		tipFewEpochs,
		tipShortRecording,
		tipElectrodeContact,
		tipMuscleArtifact,
		tipDroppedRows,
		tipTimestampJitter,
	}

	for _, rule := range rules {
		if tip := rule(result, meta); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, firedRules)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxRecordingTips {
		tips = tips[:MaxRecordingTips]
	}

	return tips
}

// applyExclusions removes tips that are redundant when a more specific tip
// has already fired. For example, "few_epochs" is suppressed when
// "no_clean_epochs" fires because the latter already implies the former.
func applyExclusions(tips []RecordingTip, fired map[string]bool) []RecordingTip {
	var result []RecordingTip
	for _, tip := range tips {
		switch tip.RuleID {
		case "few_epochs", "rejection_high", "rejection_moderate", "muscle_artifact":
			if fired["no_clean_epochs"] {
				continue
			}
		case "short_recording":
			if fired["no_clean_epochs"] || fired["few_epochs"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// tipNoCleanEpochs fires when artifact rejection left nothing to analyse.
func tipNoCleanEpochs(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	if r.Report.EpochsTotal == 0 || r.Report.EpochsFinal > 0 {
		return nil
	}
	return &RecordingTip{
		Priority: 10,
		RuleID:   "no_clean_epochs",
		Message:  "Every epoch was rejected as an artifact. Check that the headband sits flat on the forehead and behind the ears, then record again while sitting still.",
	}
}

// tipRejectionRate fires when a large share of epochs was rejected.
// Above 40% points at poor contact or constant movement; above 20% at
// intermittent blinks, jaw clenching or head movement.
func tipRejectionRate(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	rate := r.Report.RejectionRate
	switch {
	case rate > rejectionHighRate:
		return &RecordingTip{
			Priority: 9,
			RuleID:   "rejection_high",
			Message:  fmt.Sprintf("%.0f%% of epochs were rejected as artifacts - moisten the electrodes, adjust the headband fit, and keep your head and jaw relaxed.", rate*100),
		}
	case rate > rejectionModerateRate:
		return &RecordingTip{
			Priority: 6,
			RuleID:   "rejection_moderate",
			Message:  fmt.Sprintf("%.0f%% of epochs were rejected - try to blink less often and avoid talking or clenching your jaw while recording.", rate*100),
		}
	}
	return nil
}

// tipFewEpochs fires when too few epochs survive for stable averages.
func tipFewEpochs(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	if r.Report.EpochsFinal == 0 || r.Report.EpochsFinal >= fewEpochsThreshold {
		return nil
	}
	return &RecordingTip{
		Priority: 8,
		RuleID:   "few_epochs",
		Message:  fmt.Sprintf("Only %d clean epochs were analysed, so band averages will be noisy. Aim for at least %d.", r.Report.EpochsFinal, fewEpochsThreshold),
	}
}

// tipShortRecording fires for recordings under a minute.
func tipShortRecording(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	if r.Report.RecordingDurationSeconds >= shortRecordingSeconds {
		return nil
	}
	return &RecordingTip{
		Priority: 5,
		RuleID:   "short_recording",
		Message:  fmt.Sprintf("The analysed recording is only %.0f seconds long. Recording for at least 2-3 minutes gives more reliable band powers.", r.Report.RecordingDurationSeconds),
	}
}

// tipElectrodeContact fires when one electrode needed interpolation in more
// than a quarter of the surviving epochs.
func tipElectrodeContact(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	if r.Rejection == nil || r.Report.EpochsFinal == 0 {
		return nil
	}
	counts := r.Rejection.InterpolationsPerChannel()
	worst, worstShare := -1, 0.0
	for ch, n := range counts {
		share := float64(n) / float64(r.Report.EpochsFinal)
		if share > worstShare {
			worst, worstShare = ch, share
		}
	}
	if worst < 0 || worstShare <= interpolationHighShare {
		return nil
	}
	return &RecordingTip{
		Priority: 7,
		RuleID:   "electrode_contact",
		Message:  fmt.Sprintf("Electrode %s was reconstructed in %.0f%% of epochs - check its skin contact and clear any hair from under the sensor.", r.Rejection.ChannelNames[worst], worstShare*100),
	}
}

// tipMuscleArtifact fires when mean gamma power exceeds mean alpha power on
// any channel, a typical sign of forehead or jaw muscle tension (EMG).
func tipMuscleArtifact(r *processor.Result, _ *recording.Metadata) *RecordingTip {
	for _, s := range r.Summary {
		if s.Epochs == 0 || s.Mean.Alpha <= 0 {
			continue
		}
		if s.Mean.Gamma > s.Mean.Alpha {
			return &RecordingTip{
				Priority: 6,
				RuleID:   "muscle_artifact",
				Message:  fmt.Sprintf("Gamma power on %s is higher than alpha, which usually means muscle tension. Relax your forehead and jaw, and keep your eyes closed and still.", s.Channel),
			}
		}
	}
	return nil
}

// tipDroppedRows fires when more than 1% of the CSV rows were unusable.
func tipDroppedRows(_ *processor.Result, meta *recording.Metadata) *RecordingTip {
	if meta == nil || meta.Rows == 0 {
		return nil
	}
	share := float64(meta.DroppedRows) / float64(meta.Rows)
	if share <= droppedRowsShare {
		return nil
	}
	return &RecordingTip{
		Priority: 4,
		RuleID:   "dropped_rows",
		Message:  fmt.Sprintf("%.1f%% of the samples in the file were empty or unreadable. Keep the phone close to the headband to avoid Bluetooth dropouts.", share*100),
	}
}

// tipTimestampJitter fires when irregular timestamps forced resampling.
func tipTimestampJitter(_ *processor.Result, meta *recording.Metadata) *RecordingTip {
	if meta == nil || !meta.Resampled {
		return nil
	}
	return &RecordingTip{
		Priority: 3,
		RuleID:   "timestamp_jitter",
		Message:  fmt.Sprintf("Sample timestamps were irregular (%.0f%% jitter) and the signal was resampled. Close other Bluetooth apps while recording.", meta.Jitter*100),
	}
}
