package features

import (
	"fmt"
	"strconv"
	"strings"

	"demand-forecast/internal/domain"
)

// Kind tags a feature slot.
type Kind int

// Slot kinds.
const (
	KindDayOfWeek Kind = iota + 1
	KindMonth
	KindLag
	KindRollingMean
	KindContextual
	KindProduct
)

func (k Kind) String() string {
	switch k {
	case KindDayOfWeek:
		return "day_of_week"
	case KindMonth:
		return "month"
	case KindLag:
		return "lag"
	case KindRollingMean:
		return "rolling_mean"
	case KindContextual:
		return "contextual"
	case KindProduct:
		return "product_encoding"
	default:
		return "unknown"
	}
}

// Canonical column names.
const (
	ColumnDayOfWeek  = "day_of_week"
	ColumnMonth      = "month"
	ColumnProduct    = "sku_encoded"
	lagPrefix        = "lag_"
	rollingPrefix    = "rolling_mean_"
	defaultTargetCol = "total_quantity"
)

// productColumns are the names trained artifacts use for the encoded product id.
var productColumns = map[string]bool{
	"sku_encoded":     true,
	"sku":             true,
	"product_encoded": true,
	"product_id":      true,
}

// DefaultContextual lists the contextual columns recognised without extra configuration.
var DefaultContextual = []string{
	domain.ContextEventCount,
	domain.ContextActiveUsers,
	domain.ContextPrice,
	domain.ContextCategoryCode,
}

// Slot is one named predictor input.
type Slot struct {
	Column string // column name as the predictor was fit against
	Kind   Kind
	Window int    // k for lag, w for rolling mean
	Name   string // contextual column name
}

// Spec is the ordered list of slots a predictor consumes.
// The order must match the predictor's fit column order exactly.
type Spec struct {
	slots       []Slot
	maxLookback int
}

// Config describes a spec by feature family.
type Config struct {
	Lags              []int
	RollingWindows    []int
	ContextualColumns []string
}

// New validates slots and builds a Spec. Duplicate columns and non-positive windows are rejected.
func New(slots []Slot) (*Spec, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w: empty feature list", ErrConfiguration)
	}

	seen := make(map[string]struct{}, len(slots))
	spec := &Spec{slots: make([]Slot, len(slots))}
	for i, s := range slots {
		if s.Column == "" {
			return nil, fmt.Errorf("%w: slot %d has no column name", ErrConfiguration, i)
		}
		if _, dup := seen[s.Column]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrConfiguration, s.Column)
		}
		seen[s.Column] = struct{}{}

		switch s.Kind {
		case KindLag, KindRollingMean:
			if s.Window < 1 {
				return nil, fmt.Errorf("%w: column %q: window must be positive, got %d", ErrConfiguration, s.Column, s.Window)
			}
			if s.Window > spec.maxLookback {
				spec.maxLookback = s.Window
			}
		case KindContextual:
			if s.Name == "" {
				return nil, fmt.Errorf("%w: column %q: contextual slot without name", ErrConfiguration, s.Column)
			}
		case KindDayOfWeek, KindMonth, KindProduct:
		default:
			return nil, fmt.Errorf("%w: column %q: unknown kind %d", ErrConfiguration, s.Column, s.Kind)
		}
		spec.slots[i] = s
	}
	return spec, nil
}

// FromConfig builds a spec in training column order:
// product, day_of_week, month, contextual columns, lags, rolling means.
func FromConfig(cfg Config) (*Spec, error) {
	slots := []Slot{
		{Column: ColumnProduct, Kind: KindProduct},
		{Column: ColumnDayOfWeek, Kind: KindDayOfWeek},
		{Column: ColumnMonth, Kind: KindMonth},
	}
	for _, name := range cfg.ContextualColumns {
		slots = append(slots, Slot{Column: name, Kind: KindContextual, Name: name})
	}
	for _, k := range cfg.Lags {
		slots = append(slots, Slot{Column: lagPrefix + strconv.Itoa(k), Kind: KindLag, Window: k})
	}
	for _, w := range cfg.RollingWindows {
		slots = append(slots, Slot{Column: rollingPrefix + strconv.Itoa(w), Kind: KindRollingMean, Window: w})
	}
	return New(slots)
}

// ParseOptions controls column-name parsing.
type ParseOptions struct {
	// TargetColumn is stripped when it prefixes lag/rolling names
	// (e.g. "total_quantity_lag_7"). Defaults to "total_quantity".
	TargetColumn string
	// ExtraContextual adds recognised contextual names beyond DefaultContextual.
	ExtraContextual []string
}

// ParseColumns derives a Spec from an artifact's ordered column names.
// Order is preserved; any unrecognised or malformed name is a fatal ErrConfiguration.
func ParseColumns(columns []string, opts ParseOptions) (*Spec, error) {
	target := opts.TargetColumn
	if target == "" {
		target = defaultTargetCol
	}
	contextual := make(map[string]bool, len(DefaultContextual)+len(opts.ExtraContextual))
	for _, name := range DefaultContextual {
		contextual[name] = true
	}
	for _, name := range opts.ExtraContextual {
		contextual[name] = true
	}

	slots := make([]Slot, 0, len(columns))
	for _, col := range columns {
		slot, err := parseColumn(col, target, contextual)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return New(slots)
}

func parseColumn(col, target string, contextual map[string]bool) (Slot, error) {
	name := strings.TrimPrefix(col, target+"_")

	switch {
	case col == ColumnDayOfWeek:
		return Slot{Column: col, Kind: KindDayOfWeek}, nil
	case col == ColumnMonth:
		return Slot{Column: col, Kind: KindMonth}, nil
	case productColumns[col]:
		return Slot{Column: col, Kind: KindProduct}, nil
	case contextual[col]:
		return Slot{Column: col, Kind: KindContextual, Name: col}, nil
	case strings.HasPrefix(name, lagPrefix):
		k, err := parseWindow(col, strings.TrimPrefix(name, lagPrefix))
		if err != nil {
			return Slot{}, err
		}
		return Slot{Column: col, Kind: KindLag, Window: k}, nil
	case strings.HasPrefix(name, rollingPrefix):
		w, err := parseWindow(col, strings.TrimPrefix(name, rollingPrefix))
		if err != nil {
			return Slot{}, err
		}
		return Slot{Column: col, Kind: KindRollingMean, Window: w}, nil
	default:
		return Slot{}, fmt.Errorf("%w: unrecognised column %q", ErrConfiguration, col)
	}
}

func parseWindow(col, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed column %q: %v", ErrConfiguration, col, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: malformed column %q: window must be positive", ErrConfiguration, col)
	}
	return n, nil
}

// Slots returns a copy of the ordered slots.
func (s *Spec) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Len returns the number of slots.
func (s *Spec) Len() int {
	return len(s.slots)
}

// Columns returns the ordered column names.
func (s *Spec) Columns() []string {
	cols := make([]string, len(s.slots))
	for i, slot := range s.slots {
		cols[i] = slot.Column
	}
	return cols
}

// MaxLookback is the largest lag or rolling window, 0 if none.
func (s *Spec) MaxLookback() int {
	return s.maxLookback
}

// ContextualNames returns contextual names in slot order.
func (s *Spec) ContextualNames() []string {
	var names []string
	for _, slot := range s.slots {
		if slot.Kind == KindContextual {
			names = append(names, slot.Name)
		}
	}
	return names
}
