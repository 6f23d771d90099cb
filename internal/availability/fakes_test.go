package availability

import (
	"context"
	"fmt"
	"time"

	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// fakeStore implements the engine's read ports in memory.
type fakeStore struct {
	rules      []*models.WeeklyRule
	exceptions []*models.AvailabilityException
	lessons    []*models.Lesson
	settings   *models.TeacherSettings
}

func (f *fakeStore) ActiveRulesByWeekday(_ context.Context, teacherID string, weekday time.Weekday) ([]*models.WeeklyRule, error) {
	var out []*models.WeeklyRule
	for _, r := range f.rules {
		if r.TeacherID == teacherID && r.DayOfWeek == int(weekday) && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveExceptionsByDate(_ context.Context, teacherID string, date time.Time) ([]*models.AvailabilityException, error) {
	var out []*models.AvailabilityException
	for _, ex := range f.exceptions {
		if ex.TeacherID == teacherID && ex.IsActive && sameDate(ex.Date, date) {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveLessonsByDate(_ context.Context, teacherID string, date time.Time) ([]*models.Lesson, error) {
	var out []*models.Lesson
	for _, l := range f.lessons {
		if l.TeacherID == teacherID && !l.Status.Terminal() && sameDate(l.Start, date) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) SettingsByTeacher(_ context.Context, teacherID string) (*models.TeacherSettings, error) {
	if f.settings == nil || f.settings.TeacherID != teacherID {
		return nil, fmt.Errorf("fakeStore.SettingsByTeacher: %w", response.ErrNotFound)
	}
	return f.settings, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// clockTime builds a wall-clock-only value, the shape rule and
// exception times have after being parsed from TIME columns.
func clockTime(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

func clockTimePtr(hour, minute int) *time.Time {
	t := clockTime(hour, minute)
	return &t
}

func span(startHour, startMin, endHour, endMin int) TimeRange {
	return TimeRange{Start: clockTime(startHour, startMin), End: clockTime(endHour, endMin)}
}
