package processor

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// freqTolerance absorbs rounding in k*fs/nperseg when selecting bins
const freqTolerance = 1e-9

// PowerSpectrum holds one-sided power spectral density estimates in µV²/Hz
type PowerSpectrum struct {
	Freqs []float64     // Ascending, uniformly spaced
	Power [][][]float64 // [epoch][channel][freq]
}

// EstimatePSD computes Welch power spectral densities for every epoch and
// channel. Segments are windowSec long and overlap by overlapSec, tapered
// with a periodic Hamming window, and averaged. Frequencies k*fs/nperseg
// inside [fmin, fmax] are kept. An empty set yields the frequency axis and
// no epochs.
func EstimatePSD(set *EpochSet, fmin, fmax, windowSec, overlapSec float64) (*PowerSpectrum, error) {
	if set == nil {
		return nil, invalidSpectral("nil epoch set")
	}
	fs := set.SampleRate
	if !(fs > 0) {
		return nil, invalidSpectral("sample rate must be positive, got %v", fs)
	}
	if math.IsNaN(fmin) || math.IsNaN(fmax) || fmin < 0 || fmin > fmax {
		return nil, invalidSpectral("frequency range %.2f-%.2f Hz is invalid", fmin, fmax)
	}
	if set.SamplesPerEpoch <= 1 {
		return nil, invalidSpectral("epochs of %d samples are too short for spectral estimation", set.SamplesPerEpoch)
	}

	nperseg := int(windowSec * fs)
	if math.IsNaN(windowSec) || nperseg < 1 {
		return nil, invalidSpectral("window of %v s is shorter than one sample", windowSec)
	}
	if nperseg > set.SamplesPerEpoch {
		return nil, invalidSpectral("window of %d samples exceeds epoch length of %d samples", nperseg, set.SamplesPerEpoch)
	}
	noverlap := int(overlapSec * fs)
	if math.IsNaN(overlapSec) || overlapSec < 0 || noverlap >= nperseg {
		return nil, invalidSpectral("overlap of %d samples must be in [0, %d)", noverlap, nperseg)
	}

	// Bins inside [fmin, fmax]
	var bins []int
	var freqs []float64
	for k := 0; k <= nperseg/2; k++ {
		f := float64(k) * fs / float64(nperseg)
		if f >= fmin-freqTolerance && f <= fmax+freqTolerance {
			bins = append(bins, k)
			freqs = append(freqs, f)
		}
	}

	w := &welch{
		nperseg: nperseg,
		step:    nperseg - noverlap,
		window:  periodicHamming(nperseg),
	}
	sumSquares := 0.0
	for _, v := range w.window {
		sumSquares += v * v
	}
	w.scale = set.Unit.powerScale() / (fs * sumSquares)

	spectrum := &PowerSpectrum{
		Freqs: freqs,
		Power: make([][][]float64, set.Len()),
	}
	for e, ep := range set.Epochs {
		spectrum.Power[e] = make([][]float64, len(ep.Data))
		for ch, row := range ep.Data {
			full := w.density(row)
			selected := make([]float64, len(bins))
			for i, k := range bins {
				selected[i] = full[k]
			}
			spectrum.Power[e][ch] = selected
		}
	}
	return spectrum, nil
}

type welch struct {
	nperseg int
	step    int
	window  []float64
	scale   float64 // unit² → µV², divided by fs*Σw²
}

// density returns the averaged one-sided periodogram of x for bins 0..nperseg/2
func (w *welch) density(x []float64) []float64 {
	nbins := w.nperseg/2 + 1
	psd := make([]float64, nbins)
	seg := make([]float64, w.nperseg)

	segments := 0
	for start := 0; start+w.nperseg <= len(x); start += w.step {
		for i := range seg {
			seg[i] = x[start+i] * w.window[i]
		}
		coeffs := fft.FFTReal(seg)
		for k := 0; k < nbins; k++ {
			mag := cmplx.Abs(coeffs[k])
			p := mag * mag * w.scale
			// Fold negative frequencies, except DC and Nyquist
			if k != 0 && !(w.nperseg%2 == 0 && k == w.nperseg/2) {
				p *= 2
			}
			psd[k] += p
		}
		segments++
	}

	if segments > 0 {
		for k := range psd {
			psd[k] /= float64(segments)
		}
	}
	return psd
}

// periodicHamming returns the DFT-even Hamming window of length n
func periodicHamming(n int) []float64 {
	return window.Hamming(n + 1)[:n]
}
