package availability

import "time"

// Clock supplies the current time to the engine. Notice and horizon
// policy checks go through it so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
