package processor

import (
	"github.com/sirupsen/logrus"
)

// Stage identifies a pipeline step in progress events
type Stage string

const (
	StageTruncate  Stage = "truncate"
	StageCondition Stage = "condition"
	StageSegment   Stage = "segment"
	StageReject    Stage = "reject"
	StageSpectrum  Stage = "spectrum"
	StageBands     Stage = "bands"
	StageRatios    Stage = "ratios"
)

// Stages lists the pipeline steps in execution order
var Stages = []Stage{
	StageTruncate,
	StageCondition,
	StageSegment,
	StageReject,
	StageSpectrum,
	StageBands,
	StageRatios,
}

// Index returns the position of s in Stages, or -1
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Event is a structured progress notification emitted at stage boundaries
type Event struct {
	Stage    Stage
	Progress float64 // 0.0 at stage start, 1.0 at stage end
	Message  string
	Warning  bool
	Fields   map[string]interface{}
}

// ProgressFunc receives pipeline events. A nil ProgressFunc discards them.
type ProgressFunc func(Event)

func (p ProgressFunc) emit(e Event) {
	if p != nil {
		p(e)
	}
}

func (p ProgressFunc) start(stage Stage, message string) {
	p.emit(Event{Stage: stage, Progress: 0.0, Message: message})
}

func (p ProgressFunc) done(stage Stage, message string, fields map[string]interface{}) {
	p.emit(Event{Stage: stage, Progress: 1.0, Message: message, Fields: fields})
}

func (p ProgressFunc) warn(stage Stage, message string, fields map[string]interface{}) {
	p.emit(Event{Stage: stage, Progress: 1.0, Message: message, Warning: true, Fields: fields})
}

// withFields returns a ProgressFunc that adds fields to every event
func (p ProgressFunc) withFields(fields map[string]interface{}) ProgressFunc {
	if p == nil {
		return nil
	}
	return func(e Event) {
		merged := make(map[string]interface{}, len(fields)+len(e.Fields))
		for k, v := range fields {
			merged[k] = v
		}
		for k, v := range e.Fields {
			merged[k] = v
		}
		e.Fields = merged
		p(e)
	}
}

// Tee fans events out to every non-nil observer
func Tee(observers ...ProgressFunc) ProgressFunc {
	return func(e Event) {
		for _, o := range observers {
			if o != nil {
				o(e)
			}
		}
	}
}

// NewLogObserver writes each event as a structured logrus entry
func NewLogObserver(entry *logrus.Entry) ProgressFunc {
	return func(e Event) {
		fields := logrus.Fields{
			"stage":    string(e.Stage),
			"progress": e.Progress,
		}
		for k, v := range e.Fields {
			fields[k] = v
		}
		le := entry.WithFields(fields)
		if e.Warning {
			le.Warn(e.Message)
			return
		}
		le.Info(e.Message)
	}
}
