// Package encoding maps product identifiers to the integer codes a predictor was fit on.
package encoding

import (
	"fmt"
	"sort"
)

// DefaultCode is returned for products the encoder was not fit on.
const DefaultCode = 0

// ProductEncoder is an immutable label encoder. It is fit once at training
// time and reused unchanged at inference.
type ProductEncoder struct {
	classes []string
	codes   map[string]int
}

// FromClasses builds an encoder where classes[i] encodes to i.
// This is the layout stored in artifact bundles.
func FromClasses(classes []string) (*ProductEncoder, error) {
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := codes[c]; dup {
			return nil, fmt.Errorf("duplicate product class %q", c)
		}
		codes[c] = i
	}
	out := make([]string, len(classes))
	copy(out, classes)
	return &ProductEncoder{classes: out, codes: codes}, nil
}

// FitSorted fits an encoder over the distinct ids in lexical order,
// matching a label encoder fit at training time.
func FitSorted(ids []string) *ProductEncoder {
	uniq := distinct(ids)
	sort.Strings(uniq)
	enc, _ := FromClasses(uniq)
	return enc
}

// FitFirstSeen fits an encoder over the distinct ids in order of first appearance.
func FitFirstSeen(ids []string) *ProductEncoder {
	enc, _ := FromClasses(distinct(ids))
	return enc
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Encode returns the code for id. Unknown ids map to DefaultCode with ok=false.
func (e *ProductEncoder) Encode(id string) (code int, ok bool) {
	code, ok = e.codes[id]
	if !ok {
		return DefaultCode, false
	}
	return code, true
}

// Classes returns a copy of the fitted classes in code order.
func (e *ProductEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Len returns the number of fitted classes.
func (e *ProductEncoder) Len() int {
	return len(e.classes)
}
