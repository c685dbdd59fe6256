package features

import "fmt"

// Buffer is the rolling sequence of observed-then-synthetic target values,
// ordered oldest to newest. It is owned by a single forecast call.
type Buffer struct {
	values []float64
}

// NewBuffer copies values and left-pads them to at least minLen.
func NewBuffer(values []float64, minLen int) *Buffer {
	return &Buffer{values: PadLeft(values, minLen)}
}

// PadLeft returns a copy of values extended at the front with its earliest value
// until it is at least minLen long. Empty input stays empty.
//
// Padding biases the earliest synthetic lags toward the first observation.
func PadLeft(values []float64, minLen int) []float64 {
	if len(values) == 0 || len(values) >= minLen {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, minLen)
	pad := minLen - len(values)
	for i := 0; i < pad; i++ {
		out[i] = values[0]
	}
	copy(out[pad:], values)
	return out
}

// Append adds a value at the newest end.
func (b *Buffer) Append(v float64) {
	b.values = append(b.values, v)
}

// Len returns the number of values.
func (b *Buffer) Len() int {
	return len(b.values)
}

// Lag returns the value k positions from the end (k=1 is the newest).
func (b *Buffer) Lag(k int) (float64, error) {
	if k < 1 || k > len(b.values) {
		return 0, fmt.Errorf("%w: lag %d, length %d", ErrShortBuffer, k, len(b.values))
	}
	return b.values[len(b.values)-k], nil
}

// RollingMean is the arithmetic mean of the last w values,
// or of the whole buffer when it holds fewer than w. Empty buffer yields 0.
func (b *Buffer) RollingMean(w int) float64 {
	n := len(b.values)
	if n == 0 {
		return 0
	}
	start := n - w
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range b.values[start:] {
		sum += v
	}
	return sum / float64(n-start)
}

// Tail returns up to n newest values, oldest first. The slice aliases the buffer
// and must not be modified.
func (b *Buffer) Tail(n int) []float64 {
	if n > len(b.values) {
		n = len(b.values)
	}
	return b.values[len(b.values)-n:]
}
