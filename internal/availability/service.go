package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

const DefaultIncrementMinutes = 30

// Service is the engine façade: the bulk slot listing students browse
// and the single-slot check the booking path re-runs at submission.
type Service struct {
	settings SettingsRepo
	resolver *Resolver
	checker  *Checker
}

func NewService(rules WeeklyRuleRepo, exceptions ExceptionRepo, lessons LessonRepo, settings SettingsRepo, clock Clock) *Service {
	resolver := NewResolver(rules, exceptions)

	return &Service{
		settings: settings,
		resolver: resolver,
		checker:  NewChecker(resolver, lessons, clock),
	}
}

// CalculateAvailableSlots walks [startDate, endDate] and returns every
// bookable slot in chronological order. Without a settings row, or with
// the calendar feature off, there is nothing to list and the result is
// empty. Rejected candidates are not emitted.
func (s *Service) CalculateAvailableSlots(ctx context.Context, teacherID string, startDate, endDate time.Time, durationMinutes, incrementMinutes int) ([]models.Slot, error) {
	const op = "availability.Service.CalculateAvailableSlots"

	settings, err := s.settings.SettingsByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return []models.Slot{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !settings.UseAvailabilityCalendar {
		return []models.Slot{}, nil
	}

	if incrementMinutes <= 0 {
		incrementMinutes = DefaultIncrementMinutes
	}

	loc := settings.Location()
	duration := time.Duration(durationMinutes) * time.Minute

	first := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	last := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)

	var slots []models.Slot

	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		ranges, err := s.resolver.ResolveDay(ctx, teacherID, date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		for _, rng := range ranges {
			for _, start := range GenerateStarts(date, rng, durationMinutes, incrementMinutes, loc) {
				ok, _, err := s.checker.Check(ctx, teacherID, settings, start, durationMinutes)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", op, err)
				}
				if !ok {
					continue
				}

				slots = append(slots, models.Slot{
					Start:           start,
					End:             start.Add(duration),
					DurationMinutes: durationMinutes,
					Available:       true,
				})
			}
		}
	}

	return slots, nil
}

// CheckSlotAvailability validates one requested slot. Unlike the bulk
// listing, a teacher without a calendar passes here: a specific request
// can still be honored by the manual approval flow upstream.
func (s *Service) CheckSlotAvailability(ctx context.Context, teacherID string, start time.Time, durationMinutes int) (bool, string, error) {
	const op = "availability.Service.CheckSlotAvailability"

	settings, err := s.settings.SettingsByTeacher(ctx, teacherID)
	if err != nil && !errors.Is(err, response.ErrNotFound) {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	ok, reason, err := s.checker.Check(ctx, teacherID, settings, start, durationMinutes)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	return ok, reason, nil
}

// Settings exposes the teacher's policy row to callers that report it
// alongside engine results (e.g. the recurring preview).
func (s *Service) Settings(ctx context.Context, teacherID string) (*models.TeacherSettings, error) {
	return s.settings.SettingsByTeacher(ctx, teacherID)
}
