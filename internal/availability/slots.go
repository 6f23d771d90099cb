package availability

import "time"

// GenerateStarts enumerates candidate lesson start times inside one
// open range on the given date, stepping by incrementMinutes. A start
// is emitted only while start+duration still fits within the range.
func GenerateStarts(date time.Time, rng TimeRange, durationMinutes, incrementMinutes int, loc *time.Location) []time.Time {
	duration := time.Duration(durationMinutes) * time.Minute
	increment := time.Duration(incrementMinutes) * time.Minute

	if duration <= 0 || increment <= 0 {
		return nil
	}

	start := time.Date(date.Year(), date.Month(), date.Day(),
		rng.Start.Hour(), rng.Start.Minute(), 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(),
		rng.End.Hour(), rng.End.Minute(), 0, 0, loc)

	var starts []time.Time
	for cur := start; !cur.Add(duration).After(end); cur = cur.Add(increment) {
		starts = append(starts, cur)
	}

	return starts
}
