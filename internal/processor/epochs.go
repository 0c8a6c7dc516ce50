package processor

import (
	"math"
)

// Epoch is a fixed-length segment of every channel.
// Index is the position in the original segmentation and identifies the
// epoch through rejection and reporting.
type Epoch struct {
	Index int
	Data  [][]float64 // [channel][time]
}

// EpochSet is an ordered collection of equal-length epochs
type EpochSet struct {
	Epochs          []Epoch
	ChannelNames    []string
	SampleRate      float64
	SamplesPerEpoch int
	Duration        float64 // Nominal epoch length in seconds
	Unit            Unit
}

// Len returns the number of epochs
func (s *EpochSet) Len() int {
	return len(s.Epochs)
}

// Indices returns the identity of each epoch in order
func (s *EpochSet) Indices() []int {
	idx := make([]int, len(s.Epochs))
	for i, e := range s.Epochs {
		idx[i] = e.Index
	}
	return idx
}

// withEpochs returns a set sharing s's metadata with the given epochs
func (s *EpochSet) withEpochs(epochs []Epoch) *EpochSet {
	return &EpochSet{
		Epochs:          epochs,
		ChannelNames:    s.ChannelNames,
		SampleRate:      s.SampleRate,
		SamplesPerEpoch: s.SamplesPerEpoch,
		Duration:        s.Duration,
		Unit:            s.Unit,
	}
}

// Segment splits buf into consecutive non-overlapping epochs of duration
// seconds, starting at sample 0. Trailing samples that do not fill an epoch
// are discarded.
func Segment(buf *SignalBuffer, duration float64) (*EpochSet, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(duration) || duration <= 0 {
		return nil, invalidParameter("epoch duration must be positive, got %v s", duration)
	}

	perEpoch := int(math.Round(duration * buf.SampleRate))
	if perEpoch < 1 {
		return nil, invalidParameter("epoch of %v s is shorter than one sample at %.3f Hz", duration, buf.SampleRate)
	}

	total := buf.NumSamples()
	count := total / perEpoch
	if count == 0 {
		return nil, invalidParameter("recording of %d samples is shorter than one %.2f s epoch (%d samples)",
			total, duration, perEpoch)
	}

	set := &EpochSet{
		Epochs:          make([]Epoch, count),
		ChannelNames:    append([]string(nil), buf.ChannelNames...),
		SampleRate:      buf.SampleRate,
		SamplesPerEpoch: perEpoch,
		Duration:        duration,
		Unit:            buf.Unit,
	}
	for e := 0; e < count; e++ {
		start := e * perEpoch
		data := make([][]float64, len(buf.Samples))
		for ch, row := range buf.Samples {
			data[ch] = append([]float64(nil), row[start:start+perEpoch]...)
		}
		set.Epochs[e] = Epoch{Index: e, Data: data}
	}
	return set, nil
}
