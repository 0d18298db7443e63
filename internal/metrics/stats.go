// Package metrics aggregates and exports monitoring metrics.
package metrics

import (
	"slices"
)

// NativeLabel is the group name of the workers listed on the status page.
const NativeLabel = "native"

// StatsList is a list of measurements with summary statistics.
type StatsList []uint64

// Count returns the number of measurements.
func (s StatsList) Count() int {
	return len(s)
}

// Min returns the smallest measurement, or 0 for an empty list.
func (s StatsList) Min() uint64 {
	if len(s) == 0 {
		return 0
	}

	return slices.Min(s)
}

// Max returns the largest measurement, or 0 for an empty list.
func (s StatsList) Max() uint64 {
	if len(s) == 0 {
		return 0
	}

	return slices.Max(s)
}

// Average returns the arithmetic mean, or 0 for an empty list.
func (s StatsList) Average() float64 {
	if len(s) == 0 {
		return 0
	}

	var total float64
	for _, v := range s {
		total += float64(v)
	}

	return total / float64(len(s))
}

// Median returns the middle measurement. For an even count it is the mean of the
// two middle measurements.
func (s StatsList) Median() float64 {
	if len(s) == 0 {
		return 0
	}

	sorted := slices.Clone(s)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}

	return (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
}

// MemoryUsage is the resident memory of the worker processes, split per group.
type MemoryUsage struct {
	Native StatsList
	Groups map[string]StatsList // WSGI process groups
}

// GroupNames returns the native label followed by the sorted WSGI group names.
func (m MemoryUsage) GroupNames() []string {
	names := make([]string, 0, len(m.Groups)+1)
	for name := range m.Groups {
		names = append(names, name)
	}
	slices.Sort(names)

	return append([]string{NativeLabel}, names...)
}

// Group returns the measurements of a group by name.
func (m MemoryUsage) Group(name string) StatsList {
	if name == NativeLabel {
		return m.Native
	}

	return m.Groups[name]
}
