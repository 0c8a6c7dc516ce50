package processor

import (
	"errors"
	"fmt"
)

// Error kinds returned by the pipeline stages. Stage errors wrap one of these,
// so callers match with errors.Is.
var (
	// ErrInvalidSignal marks a malformed or unusable input buffer: no
	// channels, mismatched lengths, non-finite samples, or a sample rate too
	// low for the conditioning filter.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrInvalidParameter marks a bad epoching, rejection or truncation parameter.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidSpectralParameter marks Welch parameters that are
	// inconsistent with the epoch length or frequency range.
	ErrInvalidSpectralParameter = errors.New("invalid spectral parameter")
)

func invalidSignal(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSignal, fmt.Sprintf(format, args...))
}

func invalidParameter(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func invalidSpectral(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSpectralParameter, fmt.Sprintf(format, args...))
}
