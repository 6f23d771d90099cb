package availability

import (
	"sort"
	"time"
)

// TimeRange is an open window within a single day. Only the wall-clock
// component of Start/End is meaningful; ranges never span midnight.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func (r TimeRange) startMinute() int { return minuteOfDay(r.Start) }
func (r TimeRange) endMinute() int   { return minuteOfDay(r.End) }

// Subtract removes [blockStart, blockEnd) from every range it overlaps.
// A range fully covered by the block is dropped, a block strictly inside
// a range splits it in two, a partial overlap trims the range. The
// result is sorted by start time.
func Subtract(ranges []TimeRange, blockStart, blockEnd time.Time) []TimeRange {
	bs := minuteOfDay(blockStart)
	be := minuteOfDay(blockEnd)

	result := make([]TimeRange, 0, len(ranges))

	for _, r := range ranges {
		rs := r.startMinute()
		re := r.endMinute()

		switch {
		case be <= rs || bs >= re:
			// no overlap
			result = append(result, r)
		case bs <= rs && be >= re:
			// block covers the whole range
		case bs > rs && be < re:
			// block strictly inside: split
			result = append(result,
				TimeRange{Start: r.Start, End: blockStart},
				TimeRange{Start: blockEnd, End: r.End},
			)
		case bs <= rs:
			// block trims the head
			result = append(result, TimeRange{Start: blockEnd, End: r.End})
		default:
			// block trims the tail
			result = append(result, TimeRange{Start: r.Start, End: blockStart})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].startMinute() < result[j].startMinute()
	})

	return result
}

// Merge sorts ranges by start time and folds overlapping or touching
// ones together. Touching endpoints (next.Start == current.End) merge.
func Merge(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].startMinute() < sorted[j].startMinute()
	})

	merged := []TimeRange{sorted[0]}

	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.startMinute() <= last.endMinute() {
			if r.endMinute() > last.endMinute() {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged
}
