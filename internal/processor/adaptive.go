package processor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
)

// rejectAdaptive applies per-channel thresholds and picks the interpolation
// count by k-fold cross-validation. It returns the positions (in set order)
// of surviving epochs and their repaired copies.
//
// Each fold calibrates thresholds on the training epochs, repairs them with
// every candidate count, and scores the candidate by the RMSE between the
// mean of the repaired training epochs and the median of the held-out fold.
// The lowest mean score wins; ties go to the smaller count.
func (r *Rejector) rejectAdaptive(set *EpochSet, log *RejectionLog) ([]int, []Epoch, error) {
	n := set.Len()
	nCh := len(set.ChannelNames)
	ptp := peakToPeak(set.Epochs)

	candidates := interpolationCandidates(r.cfg.InterpolateCounts, nCh)
	folds := r.cfg.MaxFolds
	if half := n / 2; half < folds {
		folds = half
	}
	if folds < 2 {
		return nil, nil, invalidParameter("adaptive rejection needs at least 2 folds, %d epochs give %d", n, folds)
	}
	log.Folds = folds

	r.progress.emit(Event{Stage: StageReject, Progress: 0.1, Message: "adaptive rejection started", Fields: map[string]interface{}{
		"epochs":     n,
		"folds":      folds,
		"candidates": candidates,
		"seed":       r.cfg.Seed,
	}})

	assignments := foldAssignments(n, folds, r.cfg.Seed)
	scores := make([][]float64, folds)

	var g errgroup.Group
	for f := range assignments {
		f := f
		g.Go(func() error {
			s, err := scoreFold(set, ptp, assignments[f], candidates, r.cfg)
			if err != nil {
				return fmt.Errorf("fold %d: %w", f, err)
			}
			scores[f] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	log.Scores = make([]CandidateScore, len(candidates))
	best := 0
	for c, rho := range candidates {
		total := 0.0
		for f := range scores {
			total += scores[f][c]
		}
		log.Scores[c] = CandidateScore{Interpolate: rho, Score: total / float64(folds)}
		if log.Scores[c].Score < log.Scores[best].Score {
			best = c
		}
	}
	log.Interpolate = candidates[best]

	r.progress.emit(Event{Stage: StageReject, Progress: 0.5, Message: "interpolation count selected", Fields: map[string]interface{}{
		"interpolate": log.Interpolate,
		"score":       log.Scores[best].Score,
	}})

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	log.ChannelThresholds = channelThresholds(ptp, all, r.cfg)
	labels, bad := flagEpochs(ptp, all, log.ChannelThresholds, log.Interpolate)
	interp := newInterpolator(cleanEpochs(set.Epochs, all, labels, bad))

	var kept []int
	var epochs []Epoch
	for i := range all {
		log.Labels[i] = labels[i]
		if bad[i] {
			log.BadEpochs[i] = true
			log.PrimaryRejected++
			continue
		}
		kept = append(kept, i)
		epochs = append(epochs, interp.repair(set.Epochs[i], labels[i]))
	}

	r.progress.emit(Event{Stage: StageReject, Progress: 0.7, Message: "adaptive thresholds applied", Fields: map[string]interface{}{
		"rejected":    log.PrimaryRejected,
		"interpolate": log.Interpolate,
	}})
	return kept, epochs, nil
}

// interpolationCandidates keeps the configured counts between 1 and nCh,
// sorted and deduplicated, falling back to {1}. A count may equal nCh;
// flagEpochs still drops any epoch with no unflagged donor channel.
func interpolationCandidates(counts []int, nCh int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, k := range counts {
		if k >= 1 && k <= nCh && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		out = []int{1}
	}
	sort.Ints(out)
	return out
}

// foldAssignments shuffles epoch positions with a seeded source and splits
// them into contiguous folds; the first n%folds folds hold one extra epoch.
func foldAssignments(n, folds int, seed int64) [][]int {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	out := make([][]int, folds)
	start := 0
	for f := 0; f < folds; f++ {
		size := n / folds
		if f < n%folds {
			size++
		}
		fold := append([]int(nil), perm[start:start+size]...)
		sort.Ints(fold)
		out[f] = fold
		start += size
	}
	return out
}

// channelThresholds calibrates one threshold per channel on the given epochs
func channelThresholds(ptp [][]float64, positions []int, cfg *Config) []float64 {
	if len(positions) == 0 {
		return nil
	}
	nCh := len(ptp[positions[0]])
	out := make([]float64, nCh)
	column := make([]float64, len(positions))
	for ch := 0; ch < nCh; ch++ {
		for i, p := range positions {
			column[i] = ptp[p][ch]
		}
		out[ch] = calibrateThreshold(column, cfg.KeepFraction, cfg.RobustK)
	}
	return out
}

// flagEpochs labels each epoch at positions against per-channel thresholds.
// An epoch with no flagged channel is good. One with at most rho flagged
// channels, and at least one unflagged donor, has those channels
// interpolated. Anything else is dropped.
func flagEpochs(ptp [][]float64, positions []int, thresholds []float64, rho int) ([][]int, []bool) {
	labels := make([][]int, len(positions))
	bad := make([]bool, len(positions))
	for i, p := range positions {
		row := make([]int, len(thresholds))
		var flagged []int
		for ch, thr := range thresholds {
			if ptp[p][ch] > thr {
				flagged = append(flagged, ch)
			}
		}
		switch {
		case len(flagged) == 0:
		case len(flagged) <= rho && len(flagged) < len(thresholds):
			for _, ch := range flagged {
				row[ch] = LabelInterpolated
			}
		default:
			bad[i] = true
			for _, ch := range flagged {
				row[ch] = LabelBad
			}
		}
		labels[i] = row
	}
	return labels, bad
}

// cleanEpochs returns the epochs at positions that have no flagged channel
func cleanEpochs(epochs []Epoch, positions []int, labels [][]int, bad []bool) []Epoch {
	var out []Epoch
	for i, p := range positions {
		if bad[i] {
			continue
		}
		clean := true
		for _, l := range labels[i] {
			if l != LabelGood {
				clean = false
				break
			}
		}
		if clean {
			out = append(out, epochs[p])
		}
	}
	return out
}

// scoreFold evaluates every candidate on one train/validation split
func scoreFold(set *EpochSet, ptp [][]float64, validation []int, candidates []int, cfg *Config) ([]float64, error) {
	inValidation := make(map[int]bool, len(validation))
	for _, p := range validation {
		inValidation[p] = true
	}
	var train []int
	for i := 0; i < set.Len(); i++ {
		if !inValidation[i] {
			train = append(train, i)
		}
	}
	if len(train) == 0 || len(validation) == 0 {
		return nil, invalidParameter("empty fold: %d training and %d validation epochs", len(train), len(validation))
	}

	thresholds := channelThresholds(ptp, train, cfg)
	target := medianEpoch(set.Epochs, validation)

	scores := make([]float64, len(candidates))
	for c, rho := range candidates {
		labels, bad := flagEpochs(ptp, train, thresholds, rho)
		interp := newInterpolator(cleanEpochs(set.Epochs, train, labels, bad))

		var repaired []Epoch
		for i, p := range train {
			if !bad[i] {
				repaired = append(repaired, interp.repair(set.Epochs[p], labels[i]))
			}
		}
		if len(repaired) == 0 {
			scores[c] = math.Inf(1)
			continue
		}
		scores[c] = rmse(meanEpoch(repaired), target)
	}
	return scores, nil
}

// meanEpoch averages epochs sample by sample
func meanEpoch(epochs []Epoch) [][]float64 {
	nCh := len(epochs[0].Data)
	out := make([][]float64, nCh)
	for ch := 0; ch < nCh; ch++ {
		out[ch] = make([]float64, len(epochs[0].Data[ch]))
		for _, ep := range epochs {
			for t, v := range ep.Data[ch] {
				out[ch][t] += v
			}
		}
		for t := range out[ch] {
			out[ch][t] /= float64(len(epochs))
		}
	}
	return out
}

// medianEpoch returns the sample-wise median of the epochs at positions
func medianEpoch(epochs []Epoch, positions []int) [][]float64 {
	first := epochs[positions[0]].Data
	out := make([][]float64, len(first))
	column := make([]float64, len(positions))
	for ch := range first {
		out[ch] = make([]float64, len(first[ch]))
		for t := range out[ch] {
			for i, p := range positions {
				column[i] = epochs[p].Data[ch][t]
			}
			sort.Float64s(column)
			out[ch][t] = quantile(column, 0.5)
		}
	}
	return out
}

func rmse(a, b [][]float64) float64 {
	sum := 0.0
	n := 0
	for ch := range a {
		for t := range a[ch] {
			d := a[ch][t] - b[ch][t]
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
