package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/eegbands/internal/processor"
)

// Colours shared with the CLI palette
var (
	primaryColor = lipgloss.Color("#7B2FBE")
	successColor = lipgloss.Color("#00AA00")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#D7263D")
	mutedColor   = lipgloss.Color("#888888")
)

// Spinner frames for the active stage
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stageLabels names each pipeline stage for display
var stageLabels = map[processor.Stage]string{
	processor.StageTruncate:  "Truncating recording",
	processor.StageCondition: "Bandpass filtering",
	processor.StageSegment:   "Segmenting epochs",
	processor.StageReject:    "Rejecting artifacts",
	processor.StageSpectrum:  "Estimating power spectra",
	processor.StageBands:     "Integrating band power",
	processor.StageRatios:    "Computing ratios",
}

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		Render("eegbands 🧠 - EEG Band Power Analysis")

	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(fmt.Sprintf("Processing %d recording(s)", m.TotalFiles))

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file, m.spinnerIndex))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress, spinnerIndex int) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(successColor).Render("✓")
		return fmt.Sprintf(" %s %s → %s\n   %s", icon, fileName, filepath.Base(file.OutputPath), completionLine(file))

	case StatusLoading, StatusProcessing:
		icon := lipgloss.NewStyle().Foreground(warningColor).Render(spinnerFrames[spinnerIndex%len(spinnerFrames)])
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(errorColor).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// completionLine summarises a processed recording in one line
func completionLine(file FileProgress) string {
	return fmt.Sprintf("Epochs: %d/%d kept | Rejected: %.1f%% (%s) | Alpha: %.2f µV²",
		file.EpochsFinal, file.EpochsTotal, file.RejectionRate*100, file.Policy, file.AlphaMean)
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	if file.Status == StatusLoading {
		content.WriteString("Loading recording\n")
	} else {
		label := stageLabels[file.Stage]
		if label == "" {
			label = string(file.Stage)
		}
		content.WriteString(fmt.Sprintf("Stage %d/%d: %s\n", file.StageIndex+1, len(processor.Stages), label))
	}

	content.WriteString(renderProgressBar(file.OverallProgress(), 40, file.ElapsedTime))

	for _, w := range file.Warnings {
		content.WriteString("\n")
		content.WriteString(lipgloss.NewStyle().Foreground(warningColor).Render("⚠ " + w))
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar with percentage and elapsed time
func renderProgressBar(progress float64, width int, elapsed time.Duration) string {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(primaryColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	return fmt.Sprintf("%s %3d%% [%s]", bar, int(progress*100), formatElapsed(elapsed))
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(60)

	var content string
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
		content = fmt.Sprintf("Processing recording %d of %d (%d complete, %d failed)",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles, m.FailedFiles)
	} else {
		content = fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor).
		Render("✨ Processing Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete, StatusError:
			b.WriteString(renderFileEntry(file, 0))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d of %d recording(s) analysed in %s\n",
		m.CompletedFiles, m.TotalFiles, formatElapsed(time.Since(m.StartTime))))

	return b.String()
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
