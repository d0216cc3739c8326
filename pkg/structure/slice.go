package structure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSlice is returned when a slice or block expression cannot be parsed
var ErrInvalidSlice = errors.New("invalid slice expression")

// Slice is one parsed component of a slice expression. An index component
// ("3") selects a single position and drops the dimension; a range component
// ("1:9:2") keeps it. Stop is meaningful only when HasStop is set.
type Slice struct {
	Start   int
	Stop    int
	Step    int
	HasStop bool
	IsIndex bool
}

// ParseSlices parses a comma-separated slice expression such as "0:5,3,::2"
// into one component per dimension. Recognized forms per component are a bare
// non-negative integer, "start:stop", and "start:stop:step", where each part
// may be omitted. Empty components are skipped. This is a closed grammar:
// only digits, ':' and ',' ever reach an interpreter, and only via strconv.
func ParseSlices(expr string) ([]Slice, error) {
	var out []Slice
	for _, component := range strings.Split(expr, ",") {
		if component == "" {
			continue
		}
		parsed, err := parseComponent(component)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func parseComponent(component string) (Slice, error) {
	parts := strings.Split(component, ":")
	if len(parts) > 3 {
		return Slice{}, fmt.Errorf("%w: %q has more than three parts", ErrInvalidSlice, component)
	}
	if len(parts) == 1 {
		index, err := parsePart(parts[0], -1)
		if err != nil || index < 0 {
			return Slice{}, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidSlice, component)
		}
		return Slice{Start: index, IsIndex: true, Step: 1}, nil
	}

	start, err := parsePart(parts[0], 0)
	if err != nil {
		return Slice{}, fmt.Errorf("%w: bad start in %q", ErrInvalidSlice, component)
	}
	stop, err := parsePart(parts[1], -1)
	if err != nil {
		return Slice{}, fmt.Errorf("%w: bad stop in %q", ErrInvalidSlice, component)
	}
	step := 1
	if len(parts) == 3 {
		step, err = parsePart(parts[2], 1)
		if err != nil {
			return Slice{}, fmt.Errorf("%w: bad step in %q", ErrInvalidSlice, component)
		}
		if step < 1 {
			return Slice{}, fmt.Errorf("%w: step must be positive in %q", ErrInvalidSlice, component)
		}
	}
	return Slice{
		Start:   start,
		Stop:    stop,
		Step:    step,
		HasStop: stop >= 0,
	}, nil
}

// parsePart parses one part of a component, returning fallback when the part
// is empty. Parts are restricted to non-negative decimal integers.
func parsePart(part string, fallback int) (int, error) {
	if part == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(part)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlice, part)
	}
	return n, nil
}

// ParseBlock parses a comma-separated block coordinate such as "0,2" into
// one grid index per dimension.
func ParseBlock(expr string) ([]int, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty block coordinate", ErrInvalidSlice)
	}
	parts := strings.Split(expr, ",")
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidSlice, part)
		}
		out[i] = n
	}
	return out, nil
}
