package processor

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FIR design constants for the conditioner.
// Transition widths follow the common EEG defaults: 25% of the band edge,
// at least 2 Hz, and never past 0 Hz or the Nyquist frequency.
const (
	// filterLengthFactor sets taps = factor * fs / transition for a Hamming window
	// (about 53 dB stop-band attenuation).
	filterLengthFactor = 3.3

	transitionFraction = 0.25
	minTransitionHz    = 2.0

	// Mains notch: stop band of f/200 around each harmonic with 1 Hz transitions
	notchWidthDivisor = 200.0
	notchTransitionHz = 1.0
)

// Condition returns a new buffer with every channel bandpass filtered to
// cfg.HighpassFreq–cfg.LowpassFreq, plus the optional mains notch. The
// filter is linear phase with its delay removed, so filtered samples stay
// aligned with the input. buf is never modified.
func Condition(buf *SignalBuffer, cfg *Config) (*SignalBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	nyquist := buf.SampleRate / 2
	if cfg.LowpassFreq >= nyquist {
		return nil, invalidSignal("sample rate %.3f Hz too low for a %.1f Hz lowpass (Nyquist %.3f Hz)",
			buf.SampleRate, cfg.LowpassFreq, nyquist)
	}

	kernels := [][]float64{designBandpass(buf.SampleRate, cfg.HighpassFreq, cfg.LowpassFreq)}
	if cfg.NotchEnabled {
		kernels = append(kernels, notchKernels(buf.SampleRate, cfg.NotchFreq)...)
	}

	out := &SignalBuffer{
		ChannelNames: append([]string(nil), buf.ChannelNames...),
		SampleRate:   buf.SampleRate,
		Samples:      make([][]float64, len(buf.Samples)),
		Unit:         buf.Unit,
	}
	for ch, row := range buf.Samples {
		x := row
		for _, h := range kernels {
			x = applyFIR(x, h)
		}
		out.Samples[ch] = x
	}
	return out, nil
}

// designBandpass builds a Hamming windowed-sinc bandpass with unity gain at
// the passband centre. Cutoffs sit in the middle of each transition band.
func designBandpass(fs, low, high float64) []float64 {
	nyquist := fs / 2
	lowTrans := math.Min(math.Max(transitionFraction*low, minTransitionHz), low)
	highTrans := math.Min(math.Max(transitionFraction*high, minTransitionHz), nyquist-high)

	taps := filterLength(fs, math.Min(lowTrans, highTrans))
	f1 := low - lowTrans/2
	f2 := high + highTrans/2

	win := window.Hamming(taps)
	h := make([]float64, taps)
	lp2 := lowpassKernel(taps, fs, f2, win)
	lp1 := lowpassKernel(taps, fs, f1, win)
	for i := range h {
		h[i] = lp2[i] - lp1[i]
	}

	// Normalise to unity gain at the passband centre
	centre := (f1 + f2) / 2
	mid := float64(taps-1) / 2
	gain := 0.0
	for i, v := range h {
		gain += v * math.Cos(2*math.Pi*centre*(float64(i)-mid)/fs)
	}
	if gain != 0 {
		for i := range h {
			h[i] /= gain
		}
	}
	return h
}

// designBandstop builds a band-stop kernel by spectral inversion of a
// windowed-sinc bandpass covering [low, high] plus half the transition on
// either side.
func designBandstop(fs, low, high, trans float64) []float64 {
	taps := filterLength(fs, trans)
	win := window.Hamming(taps)
	lp2 := lowpassKernel(taps, fs, math.Min(high+trans/2, fs/2), win)
	lp1 := lowpassKernel(taps, fs, math.Max(low-trans/2, 0), win)

	h := make([]float64, taps)
	for i := range h {
		h[i] = -(lp2[i] - lp1[i])
	}
	h[(taps-1)/2] += 1.0
	return h
}

// notchKernels returns one band-stop kernel per mains harmonic below Nyquist
func notchKernels(fs, mains float64) [][]float64 {
	if !(mains > 0) {
		return nil
	}
	var kernels [][]float64
	nyquist := fs / 2
	for f := mains; f+f/notchWidthDivisor+notchTransitionHz < nyquist; f += mains {
		half := f / notchWidthDivisor / 2
		kernels = append(kernels, designBandstop(fs, f-half, f+half, notchTransitionHz))
	}
	return kernels
}

// lowpassKernel returns the windowed ideal lowpass with cutoff fc (Hz)
func lowpassKernel(taps int, fs, fc float64, win []float64) []float64 {
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	norm := 2 * fc / fs
	for i := range h {
		h[i] = norm * sinc(norm*(float64(i)-mid)) * win[i]
	}
	return h
}

// filterLength returns an odd tap count for the given transition width
func filterLength(fs, transition float64) int {
	n := int(math.Round(filterLengthFactor * fs / transition))
	if n%2 == 0 {
		n++
	}
	if n < 3 {
		n = 3
	}
	return n
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// applyFIR filters x with the odd-length, linear-phase kernel h and removes
// the group delay. Edges are extended by odd reflection about the end
// samples to limit transients.
func applyFIR(x, h []float64) []float64 {
	n := len(x)
	delay := (len(h) - 1) / 2

	pad := len(h) - 1
	if pad > n-1 {
		pad = n - 1
	}

	padded := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		padded[i] = 2*x[0] - x[pad-i]
		padded[pad+n+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(padded[pad:], x)

	full := fftConvolve(padded, h)
	out := make([]float64, n)
	copy(out, full[pad+delay:pad+delay+n])
	return out
}

// fftConvolve returns the full linear convolution of a and b
func fftConvolve(a, b []float64) []float64 {
	size := len(a) + len(b) - 1
	nfft := nextPowerOfTwo(size)

	ap := make([]float64, nfft)
	bp := make([]float64, nfft)
	copy(ap, a)
	copy(bp, b)

	A := fft.FFTReal(ap)
	B := fft.FFTReal(bp)
	for i := range A {
		A[i] *= B[i]
	}
	r := fft.IFFT(A)

	out := make([]float64, size)
	for i := range out {
		out[i] = real(r[i])
	}
	return out
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
