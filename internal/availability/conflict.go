package availability

import (
	"context"
	"fmt"
	"time"

	"tempo-service/internal/models"
)

// Checker is the authoritative single-slot validator: policy windows,
// resolved availability, and existing lessons with buffer padding, in
// that order. The first failing check wins.
type Checker struct {
	resolver *Resolver
	lessons  LessonRepo
	clock    Clock
}

func NewChecker(resolver *Resolver, lessons LessonRepo, clock Clock) *Checker {
	return &Checker{resolver: resolver, lessons: lessons, clock: clock}
}

// Check validates one candidate slot. A nil settings row or a disabled
// availability calendar means the teacher takes booking requests
// manually, so the slot passes without calendar checks.
func (c *Checker) Check(ctx context.Context, teacherID string, settings *models.TeacherSettings, start time.Time, durationMinutes int) (bool, string, error) {
	const op = "availability.Checker.Check"

	if settings == nil || !settings.UseAvailabilityCalendar {
		return true, "", nil
	}

	loc := settings.Location()
	start = start.In(loc)
	now := c.clock.Now().In(loc)
	duration := time.Duration(durationMinutes) * time.Minute

	earliest := now.Add(time.Duration(settings.MinNoticeHours) * time.Hour)
	if start.Before(earliest) {
		return false, fmt.Sprintf("must book at least %d hours in advance", settings.MinNoticeHours), nil
	}

	latest := now.AddDate(0, 0, settings.MaxAdvanceDays)
	if start.After(latest) {
		return false, fmt.Sprintf("cannot book more than %d days ahead", settings.MaxAdvanceDays), nil
	}

	ranges, err := c.resolver.ResolveDay(ctx, teacherID, start)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	slotStartMin := minuteOfDay(start)
	slotEndMin := slotStartMin + durationMinutes

	contained := false
	for _, r := range ranges {
		if r.startMinute() <= slotStartMin && slotEndMin <= r.endMinute() {
			contained = true
			break
		}
	}
	if !contained {
		return false, "outside teacher's available hours", nil
	}

	lessons, err := c.lessons.ActiveLessonsByDate(ctx, teacherID, start)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	slotEnd := start.Add(duration)
	buffer := time.Duration(settings.BufferMinutes) * time.Minute

	for _, lesson := range lessons {
		lessonStart := lesson.Start.In(loc)
		lessonEnd := lesson.End().In(loc).Add(buffer)
		if start.Before(lessonEnd) && lessonStart.Before(slotEnd) {
			return false, "conflicts with an existing lesson", nil
		}
	}

	return true, "", nil
}
