package processor

import (
	"math"
	"sort"
)

// Policy names the rejection strategy applied to a recording
type Policy string

const (
	PolicyGlobal   Policy = "global"   // Single peak-to-peak threshold, no interpolation
	PolicyAdaptive Policy = "adaptive" // Per-channel thresholds with cross-validated interpolation
)

// Per-epoch, per-channel labels in RejectionLog.Labels
const (
	LabelGood         = 0
	LabelBad          = 1 // Flagged channel in a dropped epoch
	LabelInterpolated = 2 // Flagged channel reconstructed from the others
)

// Threshold calibration constants
const (
	// madScale converts a median absolute deviation to a normal-consistent
	// standard deviation.
	madScale = 1.4826

	// minThresholdRatio keeps the threshold at least this multiple of the
	// median peak-to-peak so near-identical epochs are never dropped.
	minThresholdRatio = 1.5
)

// CandidateScore is the cross-validated error of one interpolation count
type CandidateScore struct {
	Interpolate int
	Score       float64
}

// RejectionLog records what the rejector decided for every input epoch.
// Positions in BadEpochs and Labels follow the input EpochSet order.
type RejectionLog struct {
	Policy       Policy
	ChannelNames []string
	BadEpochs    []bool
	Labels       [][]int // [epoch][channel]

	// Global policy threshold (also the adaptive post-pass threshold source)
	Threshold float64

	// Adaptive policy details
	ChannelThresholds []float64
	Interpolate       int
	Folds             int
	Scores            []CandidateScore

	PostPassThreshold float64
	PrimaryRejected   int
	PostPassRejected  int
}

func newRejectionLog(set *EpochSet) *RejectionLog {
	labels := make([][]int, set.Len())
	for i := range labels {
		labels[i] = make([]int, len(set.ChannelNames))
	}
	return &RejectionLog{
		ChannelNames: set.ChannelNames,
		BadEpochs:    make([]bool, set.Len()),
		Labels:       labels,
	}
}

// BadCount returns the number of excluded epochs
func (l *RejectionLog) BadCount() int {
	n := 0
	for _, bad := range l.BadEpochs {
		if bad {
			n++
		}
	}
	return n
}

// RejectionRate returns the excluded fraction of input epochs
func (l *RejectionLog) RejectionRate() float64 {
	if len(l.BadEpochs) == 0 {
		return 0
	}
	return float64(l.BadCount()) / float64(len(l.BadEpochs))
}

// InterpolationsPerChannel counts reconstructed channels among surviving epochs
func (l *RejectionLog) InterpolationsPerChannel() []int {
	counts := make([]int, len(l.ChannelNames))
	for e, row := range l.Labels {
		if l.BadEpochs[e] {
			continue
		}
		for ch, label := range row {
			if label == LabelInterpolated {
				counts[ch]++
			}
		}
	}
	return counts
}

// Rejector removes artifact-contaminated epochs
type Rejector struct {
	cfg      *Config
	progress ProgressFunc
}

// NewRejector creates a rejector. progress may be nil.
func NewRejector(cfg *Config, progress ProgressFunc) *Rejector {
	return &Rejector{cfg: cfg, progress: progress}
}

// Reject returns the surviving epochs in their original order together with
// the decision log. Short recordings use a single global threshold; longer
// ones use the adaptive policy followed by a global post-pass. An empty
// result is not an error: it is reported with a warning event.
func (r *Rejector) Reject(set *EpochSet) (*EpochSet, *RejectionLog, error) {
	log := newRejectionLog(set)

	var kept []int
	var epochs []Epoch

	if set.Len() < r.cfg.AdaptiveMinEpochs {
		log.Policy = PolicyGlobal
		peaks := maxPerEpoch(peakToPeak(set.Epochs))
		log.Threshold = calibrateThreshold(peaks, r.cfg.KeepFraction, r.cfg.RobustK)
		for i, p := range peaks {
			if p > log.Threshold {
				log.BadEpochs[i] = true
				log.PrimaryRejected++
				continue
			}
			kept = append(kept, i)
			epochs = append(epochs, set.Epochs[i])
		}
		r.progress.emit(Event{Stage: StageReject, Progress: 0.9, Message: "global threshold applied", Fields: map[string]interface{}{
			"policy":    string(log.Policy),
			"threshold": log.Threshold,
			"rejected":  log.PrimaryRejected,
		}})
	} else {
		log.Policy = PolicyAdaptive
		var err error
		kept, epochs, err = r.rejectAdaptive(set, log)
		if err != nil {
			return nil, nil, err
		}
		kept, epochs = r.postPass(kept, epochs, log)
	}

	if len(epochs) == 0 {
		r.progress.warn(StageReject, "all epochs rejected", map[string]interface{}{
			"epochs": set.Len(),
			"policy": string(log.Policy),
		})
	}
	return set.withEpochs(epochs), log, nil
}

// postPass drops surviving epochs that exceed a global threshold
// recalibrated on the survivors themselves.
func (r *Rejector) postPass(kept []int, epochs []Epoch, log *RejectionLog) ([]int, []Epoch) {
	if len(epochs) == 0 {
		return kept, epochs
	}

	peaks := maxPerEpoch(peakToPeak(epochs))
	log.PostPassThreshold = calibrateThreshold(peaks, r.cfg.KeepFraction, r.cfg.RobustK)

	var outKept []int
	var outEpochs []Epoch
	for i, p := range peaks {
		if p > log.PostPassThreshold {
			log.BadEpochs[kept[i]] = true
			log.PostPassRejected++
			continue
		}
		outKept = append(outKept, kept[i])
		outEpochs = append(outEpochs, epochs[i])
	}

	r.progress.emit(Event{Stage: StageReject, Progress: 0.9, Message: "post-pass threshold applied", Fields: map[string]interface{}{
		"threshold": log.PostPassThreshold,
		"rejected":  log.PostPassRejected,
	}})
	return outKept, outEpochs
}

// peakToPeak returns max-min for every epoch and channel
func peakToPeak(epochs []Epoch) [][]float64 {
	out := make([][]float64, len(epochs))
	for e, ep := range epochs {
		out[e] = make([]float64, len(ep.Data))
		for ch, row := range ep.Data {
			if len(row) == 0 {
				continue
			}
			lo, hi := row[0], row[0]
			for _, v := range row[1:] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			out[e][ch] = hi - lo
		}
	}
	return out
}

func maxPerEpoch(ptp [][]float64) []float64 {
	out := make([]float64, len(ptp))
	for e, row := range ptp {
		for _, v := range row {
			if v > out[e] {
				out[e] = v
			}
		}
	}
	return out
}

// calibrateThreshold derives a rejection threshold from a peak-to-peak
// sample: the largest of the keepFraction quantile, median + k robust
// standard deviations, and minThresholdRatio times the median.
func calibrateThreshold(values []float64, keepFraction, k float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	med := quantile(sorted, 0.5)
	deviations := make([]float64, len(sorted))
	for i, v := range sorted {
		deviations[i] = math.Abs(v - med)
	}
	sort.Float64s(deviations)
	mad := quantile(deviations, 0.5)

	threshold := quantile(sorted, keepFraction)
	threshold = math.Max(threshold, med+k*madScale*mad)
	threshold = math.Max(threshold, minThresholdRatio*med)
	return threshold
}

// quantile returns the p-quantile of sorted data, interpolating linearly
// between the order statistics around rank (n-1)p. The median of an even
// sample is the midpoint of the two middle values.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo < 0 {
		return sorted[0]
	}
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
