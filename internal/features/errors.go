package features

import "errors"

// Feature errors
var (
	// ErrConfiguration is returned when a feature specification cannot be built
	// from configuration or from an artifact's column list. It is never masked:
	// a skipped or misread slot shifts every later value into the wrong input.
	ErrConfiguration = errors.New("feature configuration error")

	// ErrShortBuffer is returned when a lag reaches past the start of the rolling buffer.
	ErrShortBuffer = errors.New("rolling buffer shorter than lag")
)
