package impact

import (
	"fmt"
	"math"
	"strings"
)

// Unbanded is the bucket of values that fall in no declared band
const Unbanded = "Out of Range"

// Band is one named interval [Lower, Upper)
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Name  string  `json:"name"`
}

// BandScheme is an ordered set of bands. The declared order is the reporting
// order and is never re-sorted.
type BandScheme struct {
	bands []Band
	rank  map[string]int
}

// NewBandScheme validates the bands. Names must be unique and non-empty and
// every band must have Lower < Upper; bounds may be infinite.
func NewBandScheme(bands []Band) (*BandScheme, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands declared", ErrInvalidBands)
	}
	s := &BandScheme{
		bands: make([]Band, len(bands)),
		rank:  make(map[string]int, len(bands)),
	}
	for i, b := range bands {
		name := strings.TrimSpace(b.Name)
		switch {
		case name == "":
			return nil, fmt.Errorf("%w: band %d has no name", ErrInvalidBands, i+1)
		case name == Unbanded:
			return nil, fmt.Errorf("%w: band name %q is reserved", ErrInvalidBands, Unbanded)
		case math.IsNaN(b.Lower) || math.IsNaN(b.Upper):
			return nil, fmt.Errorf("%w: band %q has a NaN bound", ErrInvalidBands, name)
		case !(b.Lower < b.Upper):
			return nil, fmt.Errorf("%w: band %q has lower bound %v not below upper bound %v", ErrInvalidBands, name, b.Lower, b.Upper)
		}
		if _, dup := s.rank[name]; dup {
			return nil, fmt.Errorf("%w: band %q declared twice", ErrInvalidBands, name)
		}
		s.rank[name] = i
		s.bands[i] = Band{Lower: b.Lower, Upper: b.Upper, Name: name}
	}
	return s, nil
}

// Classify returns the first band in declared order containing v. The last
// declared band also contains its upper bound. Values in no band, and NaN,
// are Unbanded.
func (s *BandScheme) Classify(v float64) string {
	if math.IsNaN(v) {
		return Unbanded
	}
	last := len(s.bands) - 1
	for i, b := range s.bands {
		if b.Lower <= v && v < b.Upper {
			return b.Name
		}
		if i == last && v == b.Upper {
			return b.Name
		}
	}
	return Unbanded
}

// ClassifySeries classifies each value, preserving length and order
func (s *BandScheme) ClassifySeries(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = s.Classify(v)
	}
	return out
}

// Bands returns a copy of the declared bands
func (s *BandScheme) Bands() []Band {
	out := make([]Band, len(s.bands))
	copy(out, s.bands)
	return out
}

// Len returns the number of declared bands
func (s *BandScheme) Len() int {
	return len(s.bands)
}

// Order returns the band names in declared order followed by Unbanded
func (s *BandScheme) Order() []string {
	out := make([]string, 0, len(s.bands)+1)
	for _, b := range s.bands {
		out = append(out, b.Name)
	}
	return append(out, Unbanded)
}

// Rank returns the reporting position of a band name, or -1 if unknown
func (s *BandScheme) Rank(name string) int {
	if name == Unbanded {
		return len(s.bands)
	}
	if r, ok := s.rank[name]; ok {
		return r
	}
	return -1
}
