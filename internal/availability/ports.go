package availability

import (
	"context"
	"time"

	"tempo-service/internal/models"
)

// Read-only ports the engine needs from storage. The engine never
// writes; it recomputes availability from current data on every call.

type WeeklyRuleRepo interface {
	ActiveRulesByWeekday(ctx context.Context, teacherID string, weekday time.Weekday) ([]*models.WeeklyRule, error)
}

type ExceptionRepo interface {
	ActiveExceptionsByDate(ctx context.Context, teacherID string, date time.Time) ([]*models.AvailabilityException, error)
}

// LessonRepo returns only lessons in non-terminal statuses.
type LessonRepo interface {
	ActiveLessonsByDate(ctx context.Context, teacherID string, date time.Time) ([]*models.Lesson, error)
}

// SettingsRepo returns response.ErrNotFound (wrapped) when the teacher
// has no settings row.
type SettingsRepo interface {
	SettingsByTeacher(ctx context.Context, teacherID string) (*models.TeacherSettings, error)
}
