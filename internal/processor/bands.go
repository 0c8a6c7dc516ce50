package processor

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

// Band is a named closed frequency interval in Hz
type Band struct {
	Name string
	Low  float64
	High float64
}

// Canonical EEG band names
const (
	BandDelta = "delta"
	BandTheta = "theta"
	BandAlpha = "alpha"
	BandBeta  = "beta"
	BandGamma = "gamma"
)

// CanonicalBands lists the bands in reporting order
var CanonicalBands = []Band{
	{BandDelta, 0.5, 4},
	{BandTheta, 4, 8},
	{BandAlpha, 8, 13},
	{BandBeta, 13, 30},
	{BandGamma, 30, 40},
}

// Ratio names
const (
	RatioDAR = "DAR" // delta / alpha
	RatioTAR = "TAR" // theta / alpha
)

// BandPowerTable maps a band name to power per [epoch][channel] in µV²
type BandPowerTable map[string][][]float64

// RatioTable maps a ratio name to values per [epoch][channel]
type RatioTable map[string][][]float64

// IntegrateBands integrates the spectrum over each band with the trapezoidal
// rule. Bins on a shared edge count towards both neighbouring bands. A band
// covering fewer than two bins has zero power.
func IntegrateBands(spectrum *PowerSpectrum, bands []Band) BandPowerTable {
	table := make(BandPowerTable, len(bands))
	for _, band := range bands {
		lo, hi := binRange(spectrum.Freqs, band)
		values := make([][]float64, len(spectrum.Power))
		for e, channels := range spectrum.Power {
			values[e] = make([]float64, len(channels))
			for ch, psd := range channels {
				values[e][ch] = bandIntegral(spectrum.Freqs[lo:hi], psd[lo:hi])
			}
		}
		table[band.Name] = values
	}
	return table
}

// binRange returns the half-open index range of freqs inside band
func binRange(freqs []float64, band Band) (int, int) {
	lo := len(freqs)
	hi := 0
	for i, f := range freqs {
		if f >= band.Low-freqTolerance && f <= band.High+freqTolerance {
			if i < lo {
				lo = i
			}
			hi = i + 1
		}
	}
	if hi <= lo {
		return 0, 0
	}
	return lo, hi
}

// bandIntegral integrates psd over freqs, or returns 0 below two bins
func bandIntegral(freqs, psd []float64) float64 {
	if len(freqs) < 2 {
		return 0
	}
	return integrate.Trapezoidal(freqs, psd)
}

// ComputeRatios derives DAR and TAR from the band table.
// eps is added to alpha so a zero denominator never divides by zero.
func ComputeRatios(bands BandPowerTable, eps float64) (RatioTable, error) {
	delta, okD := bands[BandDelta]
	theta, okT := bands[BandTheta]
	alpha, okA := bands[BandAlpha]
	if !okD || !okT || !okA {
		return nil, invalidParameter("band table needs delta, theta and alpha")
	}
	if !(eps > 0) || math.IsInf(eps, 1) {
		return nil, invalidParameter("ratio epsilon must be positive and finite, got %v", eps)
	}

	dar := make([][]float64, len(alpha))
	tar := make([][]float64, len(alpha))
	for e := range alpha {
		dar[e] = make([]float64, len(alpha[e]))
		tar[e] = make([]float64, len(alpha[e]))
		for ch, a := range alpha[e] {
			dar[e][ch] = delta[e][ch] / (a + eps)
			tar[e][ch] = theta[e][ch] / (a + eps)
		}
	}
	return RatioTable{RatioDAR: dar, RatioTAR: tar}, nil
}
