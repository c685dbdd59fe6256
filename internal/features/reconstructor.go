package features

import (
	"fmt"
	"time"
)

// Reconstructor builds predictor inputs for one step in Spec order.
type Reconstructor struct {
	spec *Spec
}

// NewReconstructor creates a Reconstructor for spec.
func NewReconstructor(spec *Spec) *Reconstructor {
	return &Reconstructor{spec: spec}
}

// Spec returns the underlying feature spec.
func (r *Reconstructor) Spec() *Spec {
	return r.spec
}

// Vector computes the feature vector for target date from the current buffer.
//
// Calendar slots come from date, never from history. Contextual slots missing from
// context are filled with 0 so thinner live feeds still run.
func (r *Reconstructor) Vector(buf *Buffer, encodedProduct int, date time.Time, context map[string]float64) ([]float64, error) {
	vec := make([]float64, len(r.spec.slots))
	for i, slot := range r.spec.slots {
		switch slot.Kind {
		case KindDayOfWeek:
			vec[i] = float64(DayOfWeek(date))
		case KindMonth:
			vec[i] = float64(date.Month())
		case KindLag:
			v, err := buf.Lag(slot.Window)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", slot.Column, err)
			}
			vec[i] = v
		case KindRollingMean:
			vec[i] = buf.RollingMean(slot.Window)
		case KindContextual:
			vec[i] = context[slot.Name]
		case KindProduct:
			vec[i] = float64(encodedProduct)
		default:
			return nil, fmt.Errorf("%w: column %q: unknown kind %d", ErrConfiguration, slot.Column, slot.Kind)
		}
	}
	return vec, nil
}

// DayOfWeek returns 0 for Monday through 6 for Sunday.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
