// Package ordering allocates integer sort positions for lists and cards.
//
// Positions are spaced by Gap so that an append never has to renumber the
// container. When the full order of a container is known (after a drag) the
// whole container is relabeled to 1*Gap, 2*Gap, ... in that order.
package ordering

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	// Gap is the distance between adjacent siblings.
	Gap int64 = 1000
	// DefaultPosition is used when no usable position is supplied.
	DefaultPosition int64 = 1000
)

// Assignment is a new position for one entity.
type Assignment struct {
	ID       string `json:"id"`
	Position int64  `json:"position"`
}

// NextAppendPosition returns a position strictly after every existing one.
// An empty container yields Gap.
func NextAppendPosition(existing []int64) int64 {
	var max int64
	for _, p := range existing {
		if p > max {
			max = p
		}
	}
	return max + Gap
}

// Relabel assigns (index+1)*Gap to each entity in the given order.
func Relabel[T any](ordered []T, id func(T) string) []Assignment {
	out := make([]Assignment, len(ordered))
	for i, e := range ordered {
		out[i] = Assignment{ID: id(e), Position: PositionAt(i)}
	}
	return out
}

// PositionAt is the relabeled position of the entity at index i.
func PositionAt(i int) int64 {
	return int64(i+1) * Gap
}

// Move returns a copy of seq with the element at src moved to dst.
// Out-of-range indexes return an unchanged copy and false.
func Move[T any](seq []T, src, dst int) ([]T, bool) {
	out := make([]T, len(seq))
	copy(out, seq)
	if src < 0 || src >= len(seq) || dst < 0 || dst >= len(seq) {
		return out, false
	}
	moved := out[src]
	out = append(out[:src], out[src+1:]...)
	return Insert(out, dst, moved), true
}

// Insert returns a copy of seq with v inserted at index i (clamped to the
// sequence bounds).
func Insert[T any](seq []T, i int, v T) []T {
	if i < 0 {
		i = 0
	}
	if i > len(seq) {
		i = len(seq)
	}
	out := make([]T, 0, len(seq)+1)
	out = append(out, seq[:i]...)
	out = append(out, v)
	return append(out, seq[i:]...)
}

// Normalize coerces a loosely typed position into an integer. Numbers and
// numeric strings are accepted and rounded; anything else, including NaN and
// infinities, falls back to DefaultPosition.
func Normalize(v any) int64 {
	var f float64
	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return DefaultPosition
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return DefaultPosition
		}
		f = parsed
	default:
		return DefaultPosition
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return DefaultPosition
	}
	return int64(math.Round(f))
}

// Position is a JSON position that never fails to decode; see Normalize.
type Position int64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		*p = Position(DefaultPosition)
		return nil
	}
	*p = Position(Normalize(raw))
	return nil
}

// Int64 returns the position value.
func (p Position) Int64() int64 {
	return int64(p)
}
