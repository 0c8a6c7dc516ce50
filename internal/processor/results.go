package processor

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BandValues holds the five band powers (µV²) and the two ratios
type BandValues struct {
	Delta float64 `json:"delta_power"`
	Theta float64 `json:"theta_power"`
	Alpha float64 `json:"alpha_power"`
	Beta  float64 `json:"beta_power"`
	Gamma float64 `json:"gamma_power"`
	DAR   float64 `json:"DAR"`
	TAR   float64 `json:"TAR"`
}

// ValueColumns lists the BandValues columns in output order
var ValueColumns = []string{"delta_power", "theta_power", "alpha_power", "beta_power", "gamma_power", "DAR", "TAR"}

// Columns returns the values in ValueColumns order
func (v BandValues) Columns() []float64 {
	return []float64{v.Delta, v.Theta, v.Alpha, v.Beta, v.Gamma, v.DAR, v.TAR}
}

func bandValuesFromColumns(c []float64) BandValues {
	return BandValues{Delta: c[0], Theta: c[1], Alpha: c[2], Beta: c[3], Gamma: c[4], DAR: c[5], TAR: c[6]}
}

// ResultRecord is one row of the output table: a surviving epoch on one channel
type ResultRecord struct {
	Epoch   int    `json:"epoch"` // Epoch identity from segmentation
	Channel string `json:"channel"`
	BandValues
}

// BuildRecords flattens band powers and ratios into epoch-major rows
func BuildRecords(set *EpochSet, bands BandPowerTable, ratios RatioTable) []ResultRecord {
	records := make([]ResultRecord, 0, set.Len()*len(set.ChannelNames))
	for e, ep := range set.Epochs {
		for ch, name := range set.ChannelNames {
			records = append(records, ResultRecord{
				Epoch:   ep.Index,
				Channel: name,
				BandValues: BandValues{
					Delta: bands[BandDelta][e][ch],
					Theta: bands[BandTheta][e][ch],
					Alpha: bands[BandAlpha][e][ch],
					Beta:  bands[BandBeta][e][ch],
					Gamma: bands[BandGamma][e][ch],
					DAR:   ratios[RatioDAR][e][ch],
					TAR:   ratios[RatioTAR][e][ch],
				},
			})
		}
	}
	return records
}

// PreprocessingReport summarises what survived preprocessing
type PreprocessingReport struct {
	EpochsTotal          int
	EpochsFinal          int
	EpochsRejected       int
	RejectionRate        float64 // Fraction of epochs rejected
	Policy               Policy
	ChannelNames         []string
	SampleRate           float64
	TotalDurationSeconds float64 // Signal kept after rejection: final epochs × epoch length

	// RecordingDurationSeconds is the length of the analysed input, after
	// any truncation and before segmentation.
	RecordingDurationSeconds float64
}

// NewPreprocessingReport builds the report for a processed recording
func NewPreprocessingReport(buf *SignalBuffer, clean *EpochSet, log *RejectionLog) PreprocessingReport {
	return PreprocessingReport{
		EpochsTotal:          len(log.BadEpochs),
		EpochsFinal:          clean.Len(),
		EpochsRejected:       log.BadCount(),
		RejectionRate:        log.RejectionRate(),
		Policy:               log.Policy,
		ChannelNames:         append([]string(nil), buf.ChannelNames...),
		SampleRate:           buf.SampleRate,
		TotalDurationSeconds: float64(clean.Len()) * clean.Duration,

		RecordingDurationSeconds: buf.Duration(),
	}
}

// ChannelSummary aggregates the result rows of one channel
type ChannelSummary struct {
	Channel string
	Epochs  int
	Mean    BandValues
	StdDev  BandValues // Sample standard deviation; NaN with fewer than two epochs
}

// SummarizeByChannel computes per-channel means in channel order.
// Channels without rows have NaN statistics.
func SummarizeByChannel(records []ResultRecord, channels []string) []ChannelSummary {
	columns := make(map[string][][]float64, len(channels))
	counts := make(map[string]int, len(channels))
	for _, name := range channels {
		columns[name] = make([][]float64, len(ValueColumns))
	}
	for _, r := range records {
		cols, ok := columns[r.Channel]
		if !ok {
			continue
		}
		for i, v := range r.Columns() {
			cols[i] = append(cols[i], v)
		}
		counts[r.Channel]++
	}

	out := make([]ChannelSummary, len(channels))
	for i, name := range channels {
		means := make([]float64, len(ValueColumns))
		stds := make([]float64, len(ValueColumns))
		for c, values := range columns[name] {
			switch len(values) {
			case 0:
				means[c], stds[c] = math.NaN(), math.NaN()
			case 1:
				means[c], stds[c] = values[0], math.NaN()
			default:
				means[c], stds[c] = stat.MeanStdDev(values, nil)
			}
		}
		out[i] = ChannelSummary{
			Channel: name,
			Epochs:  counts[name],
			Mean:    bandValuesFromColumns(means),
			StdDev:  bandValuesFromColumns(stds),
		}
	}
	return out
}
