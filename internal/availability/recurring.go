package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

// RecurringPlan is the full preview grid for a weekly lesson series.
// Every requested week gets an entry, conflicted or not, so the caller
// can render the whole series. MaxAllowed is the teacher's cap on
// recurring lessons; it is reported here and enforced at booking
// submission.
type RecurringPlan struct {
	Slots          []models.Slot
	AvailableCount int
	ConflictCount  int
	MaxAllowed     int
}

// GenerateRecurringSlots projects base forward by one week numWeeks
// times and checks each occurrence. The preview is side-effect-free.
func (s *Service) GenerateRecurringSlots(ctx context.Context, teacherID string, base time.Time, durationMinutes, numWeeks int, subjectID string) (*RecurringPlan, error) {
	const op = "availability.Service.GenerateRecurringSlots"

	plan := &RecurringPlan{
		Slots: make([]models.Slot, 0, numWeeks),
	}

	settings, err := s.settings.SettingsByTeacher(ctx, teacherID)
	if err != nil && !errors.Is(err, response.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if settings != nil {
		plan.MaxAllowed = settings.MaxRecurringLessons
	}

	duration := time.Duration(durationMinutes) * time.Minute

	for week := 0; week < numWeeks; week++ {
		start := base.AddDate(0, 0, 7*week)

		ok, reason, err := s.checker.Check(ctx, teacherID, settings, start, durationMinutes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if ok {
			plan.AvailableCount++
		} else {
			plan.ConflictCount++
		}

		plan.Slots = append(plan.Slots, models.Slot{
			Start:           start,
			End:             start.Add(duration),
			DurationMinutes: durationMinutes,
			Available:       ok,
			ConflictReason:  reason,
			SubjectID:       subjectID,
		})
	}

	return plan, nil
}
