package ui

import (
	"github.com/linuxmatters/eegbands/internal/processor"
)

// ProgressMsg carries one pipeline event for the current file
type ProgressMsg struct {
	Event processor.Event
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	FileIndex     int
	Policy        processor.Policy
	EpochsTotal   int
	EpochsFinal   int
	RejectionRate float64
	AlphaMean     float64 // Mean alpha power across records, µV²
	OutputPath    string  // Band powers CSV
	Error         error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct{}

// tickMsg is sent for spinner/timer animation
type tickMsg struct{}
