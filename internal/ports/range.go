// SPDX-License-Identifier: MPL-2.0

// Package ports allocates non-overlapping port ranges to projects and
// persists the assignments in a shared user-scoped registry.
package ports

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRangeInvalid is the sentinel for malformed or out-of-bounds port
// ranges.
var ErrRangeInvalid = errors.New("invalid port range")

const maxPort = 65535

// Range is an inclusive span of ports. Start is always strictly less
// than End and both sit in [1, 65535].
type Range struct {
	Start int
	End   int
}

// ParseRange parses "START-END" (e.g. "3000-3009").
func ParseRange(s string) (Range, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q (expected START-END, e.g. 3000-3009)", ErrRangeInvalid, s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad start port %q", ErrRangeInvalid, start)
	}
	b, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad end port %q", ErrRangeInvalid, end)
	}
	return NewRange(a, b)
}

// NewRange validates the bounds and returns the range.
func NewRange(start, end int) (Range, error) {
	if start < 1 || end > maxPort {
		return Range{}, fmt.Errorf("%w: %d-%d outside [1, %d]", ErrRangeInvalid, start, end, maxPort)
	}
	if start >= end {
		return Range{}, fmt.Errorf("%w: start %d must be less than end %d", ErrRangeInvalid, start, end)
	}
	return Range{Start: start, End: end}, nil
}

func (r Range) String() string {
	return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
}

// Size is the number of ports in the range.
func (r Range) Size() int { return r.End - r.Start + 1 }

// Overlaps reports whether the two ranges share any port.
func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}
