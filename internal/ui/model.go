// Package ui provides the Bubbletea terminal user interface for eegbands
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/eegbands/internal/processor"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusLoading
	StatusProcessing
	StatusComplete
	StatusError
)

// FileProgress tracks progress for a single recording
type FileProgress struct {
	InputPath  string
	OutputPath string
	Status     FileStatus

	// Stage tracking
	Stage      processor.Stage
	StageIndex int
	Message    string
	Warnings   []string

	// Progress tracking (percentage-based)
	Progress    float64 // Stage progress, 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration

	// Completion results
	Policy        processor.Policy
	EpochsTotal   int
	EpochsFinal   int
	RejectionRate float64
	AlphaMean     float64

	// Error tracking
	Error error
}

// OverallProgress returns the file's progress across all pipeline stages
func (fp FileProgress) OverallProgress() float64 {
	switch fp.Status {
	case StatusComplete:
		return 1
	case StatusProcessing:
		return (float64(fp.StageIndex) + fp.Progress) / float64(len(processor.Stages))
	default:
		return 0
	}
}

// Model is the Bubbletea model for the processing UI
type Model struct {
	// File queue
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int

	// Global state
	StartTime time.Time
	Done      bool

	// Log receives debug entries; nil disables them
	Log *logrus.Entry

	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1, // No file processing yet
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
	}
}

func (m Model) debugf(format string, args ...interface{}) {
	if m.Log != nil {
		m.Log.Debugf(format, args...)
	}
}

// Init starts the spinner. Pipeline messages arrive through Program.Send.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.debugf("window size: %dx%d", m.Width, m.Height)

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			fp := &m.Files[m.CurrentIndex]
			if fp.Status == StatusLoading || fp.Status == StatusProcessing {
				fp.ElapsedTime = time.Since(fp.StartTime)
			}
		}
		return m, tickCmd()

	case ProgressMsg:
		m.debugf("progress: %s %.0f%%", msg.Event.Stage, msg.Event.Progress*100)
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], msg.Event)
		}
		return m, nil

	case FileStartMsg:
		m.debugf("file start: index=%d, file=%s", msg.FileIndex, msg.FileName)
		if msg.FileIndex < 0 || msg.FileIndex >= len(m.Files) {
			return m, nil
		}
		m.CurrentIndex = msg.FileIndex
		m.Files[m.CurrentIndex].Status = StatusLoading
		m.Files[m.CurrentIndex].StartTime = time.Now()
		return m, nil

	case FileCompleteMsg:
		m.debugf("file complete: index=%d", msg.FileIndex)
		if msg.FileIndex >= 0 && msg.FileIndex < len(m.Files) {
			fp := &m.Files[msg.FileIndex]
			fp.ElapsedTime = time.Since(fp.StartTime)
			fp.Error = msg.Error
			if msg.Error != nil {
				fp.Status = StatusError
				m.FailedFiles++
			} else {
				fp.Status = StatusComplete
				fp.Policy = msg.Policy
				fp.EpochsTotal = msg.EpochsTotal
				fp.EpochsFinal = msg.EpochsFinal
				fp.RejectionRate = msg.RejectionRate
				fp.AlphaMean = msg.AlphaMean
				fp.OutputPath = msg.OutputPath
				m.CompletedFiles++
			}
		}
		return m, nil

	case AllCompleteMsg:
		m.debugf("all files complete")
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

// updateFileProgress applies a pipeline event to a FileProgress
func updateFileProgress(fp FileProgress, e processor.Event) FileProgress {
	if e.Warning {
		fp.Warnings = append(fp.Warnings, e.Message)
		return fp
	}

	fp.Status = StatusProcessing
	fp.Stage = e.Stage
	if idx := e.Stage.Index(); idx >= 0 {
		fp.StageIndex = idx
	}
	fp.Progress = e.Progress
	fp.Message = e.Message
	fp.ElapsedTime = time.Since(fp.StartTime)

	return fp
}
