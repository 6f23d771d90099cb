package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

func (s *Storage) TeacherExists(ctx context.Context, teacherID string) (bool, error) {
	const op = "storage.postgres.TeacherExists"

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM teachers WHERE teacher_id=$1)`, teacherID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

// #### weekly rules ####

func (s *Storage) CreateWeeklyRule(ctx context.Context, rule *models.WeeklyRule) (string, error) {
	const op = "storage.postgres.CreateWeeklyRule"

	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weekly_availability_rules
		(rule_id, teacher_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id,
		rule.TeacherID,
		rule.DayOfWeek,
		rule.StartTime.Format("15:04:05"),
		rule.EndTime.Format("15:04:05"),
		rule.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetWeeklyRule(ctx context.Context, id string) (*models.WeeklyRule, error) {
	const op = "storage.postgres.GetWeeklyRule"

	var rule models.WeeklyRule
	var startTime, endTime string

	err := s.db.QueryRowContext(ctx, `
		SELECT rule_id, teacher_id, day_of_week, start_time, end_time, is_active
		FROM weekly_availability_rules WHERE rule_id=$1`, id).
		Scan(&rule.ID, &rule.TeacherID, &rule.DayOfWeek, &startTime, &endTime, &rule.IsActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if rule.StartTime, err = parseClock(startTime); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rule.EndTime, err = parseClock(endTime); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &rule, nil
}

func (s *Storage) UpdateWeeklyRule(ctx context.Context, rule *models.WeeklyRule) error {
	const op = "storage.postgres.UpdateWeeklyRule"

	res, err := s.db.ExecContext(ctx, `
		UPDATE weekly_availability_rules
		SET teacher_id=$1, day_of_week=$2, start_time=$3, end_time=$4, is_active=$5
		WHERE rule_id=$6`,
		rule.TeacherID,
		rule.DayOfWeek,
		rule.StartTime.Format("15:04:05"),
		rule.EndTime.Format("15:04:05"),
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireRow(res, op)
}

func (s *Storage) DeactivateWeeklyRule(ctx context.Context, id string) error {
	const op = "storage.postgres.DeactivateWeeklyRule"

	res, err := s.db.ExecContext(ctx,
		`UPDATE weekly_availability_rules SET is_active=FALSE WHERE rule_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireRow(res, op)
}

func (s *Storage) ActiveRulesByWeekday(ctx context.Context, teacherID string, weekday time.Weekday) ([]*models.WeeklyRule, error) {
	const op = "storage.postgres.ActiveRulesByWeekday"

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, teacher_id, day_of_week, start_time, end_time, is_active
		FROM weekly_availability_rules
		WHERE teacher_id=$1 AND day_of_week=$2 AND is_active=TRUE
		ORDER BY start_time`, teacherID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var rules []*models.WeeklyRule

	for rows.Next() {
		var rule models.WeeklyRule
		var startTime, endTime string

		if err := rows.Scan(&rule.ID, &rule.TeacherID, &rule.DayOfWeek, &startTime, &endTime, &rule.IsActive); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if rule.StartTime, err = parseClock(startTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if rule.EndTime, err = parseClock(endTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// #### exceptions ####

func (s *Storage) CreateException(ctx context.Context, ex *models.AvailabilityException) (string, error) {
	const op = "storage.postgres.CreateException"

	id := uuid.NewString()

	var startTime, endTime any
	if ex.StartTime != nil {
		startTime = ex.StartTime.Format("15:04:05")
	}
	if ex.EndTime != nil {
		endTime = ex.EndTime.Format("15:04:05")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_exceptions
		(exception_id, teacher_id, exception_date, exception_type, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		ex.TeacherID,
		ex.Date.Format("2006-01-02"),
		string(ex.Type),
		startTime,
		endTime,
		ex.IsActive,
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetException(ctx context.Context, id string) (*models.AvailabilityException, error) {
	const op = "storage.postgres.GetException"

	row := s.db.QueryRowContext(ctx, `
		SELECT exception_id, teacher_id, exception_date, exception_type, start_time, end_time, is_active
		FROM availability_exceptions WHERE exception_id=$1`, id)

	ex, err := scanException(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ex, nil
}

func (s *Storage) DeactivateException(ctx context.Context, id string) error {
	const op = "storage.postgres.DeactivateException"

	res, err := s.db.ExecContext(ctx,
		`UPDATE availability_exceptions SET is_active=FALSE WHERE exception_id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireRow(res, op)
}

func (s *Storage) ActiveExceptionsByDate(ctx context.Context, teacherID string, date time.Time) ([]*models.AvailabilityException, error) {
	const op = "storage.postgres.ActiveExceptionsByDate"

	rows, err := s.db.QueryContext(ctx, `
		SELECT exception_id, teacher_id, exception_date, exception_type, start_time, end_time, is_active
		FROM availability_exceptions
		WHERE teacher_id=$1 AND exception_date=$2 AND is_active=TRUE`,
		teacherID, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var exceptions []*models.AvailabilityException

	for rows.Next() {
		ex, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		exceptions = append(exceptions, ex)
	}

	return exceptions, rows.Err()
}

// #### settings ####

func (s *Storage) SettingsByTeacher(ctx context.Context, teacherID string) (*models.TeacherSettings, error) {
	const op = "storage.postgres.SettingsByTeacher"

	var settings models.TeacherSettings

	err := s.db.QueryRowContext(ctx, `
		SELECT teacher_id, buffer_minutes, min_booking_notice_hours, max_booking_days_ahead,
		       use_availability_calendar, auto_approve_bookings, timezone, max_recurring_lessons
		FROM teacher_availability_settings WHERE teacher_id=$1`, teacherID).
		Scan(
			&settings.TeacherID,
			&settings.BufferMinutes,
			&settings.MinNoticeHours,
			&settings.MaxAdvanceDays,
			&settings.UseAvailabilityCalendar,
			&settings.AutoApproveBookings,
			&settings.Timezone,
			&settings.MaxRecurringLessons,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &settings, nil
}

func (s *Storage) UpsertSettings(ctx context.Context, settings *models.TeacherSettings) error {
	const op = "storage.postgres.UpsertSettings"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teacher_availability_settings
		(teacher_id, buffer_minutes, min_booking_notice_hours, max_booking_days_ahead,
		 use_availability_calendar, auto_approve_bookings, timezone, max_recurring_lessons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (teacher_id)
		DO UPDATE
		SET buffer_minutes = EXCLUDED.buffer_minutes,
			min_booking_notice_hours = EXCLUDED.min_booking_notice_hours,
			max_booking_days_ahead = EXCLUDED.max_booking_days_ahead,
			use_availability_calendar = EXCLUDED.use_availability_calendar,
			auto_approve_bookings = EXCLUDED.auto_approve_bookings,
			timezone = EXCLUDED.timezone,
			max_recurring_lessons = EXCLUDED.max_recurring_lessons`,
		settings.TeacherID,
		settings.BufferMinutes,
		settings.MinNoticeHours,
		settings.MaxAdvanceDays,
		settings.UseAvailabilityCalendar,
		settings.AutoApproveBookings,
		settings.Timezone,
		settings.MaxRecurringLessons,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### lessons ####

func (s *Storage) CreateLessonTx(ctx context.Context, tx *sql.Tx, lesson *models.Lesson) (string, error) {
	const op = "storage.postgres.CreateLessonTx"

	id := uuid.NewString()

	_, err := tx.ExecContext(ctx, `
		INSERT INTO lessons
		(lesson_id, teacher_id, student_id, subject_id, start_at, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		lesson.TeacherID,
		lesson.StudentID,
		lesson.SubjectID,
		lesson.Start,
		lesson.DurationMinutes,
		string(lesson.Status),
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	const op = "storage.postgres.GetLesson"

	var lesson models.Lesson

	err := s.db.QueryRowContext(ctx, `
		SELECT lesson_id, teacher_id, student_id, subject_id, start_at, duration_minutes, status
		FROM lessons WHERE lesson_id=$1`, id).
		Scan(
			&lesson.ID,
			&lesson.TeacherID,
			&lesson.StudentID,
			&lesson.SubjectID,
			&lesson.Start,
			&lesson.DurationMinutes,
			&lesson.Status,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &lesson, nil
}

func (s *Storage) UpdateLessonStatus(ctx context.Context, id string, status models.LessonStatus) error {
	const op = "storage.postgres.UpdateLessonStatus"

	res, err := s.db.ExecContext(ctx,
		`UPDATE lessons SET status=$1 WHERE lesson_id=$2`, string(status), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return requireRow(res, op)
}

func (s *Storage) ActiveLessonsByDate(ctx context.Context, teacherID string, date time.Time) ([]*models.Lesson, error) {
	const op = "storage.postgres.ActiveLessonsByDate"

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx, `
		SELECT lesson_id, teacher_id, student_id, subject_id, start_at, duration_minutes, status
		FROM lessons
		WHERE teacher_id=$1 AND start_at >= $2 AND start_at < $3
		AND status NOT IN ('CANCELLED', 'REJECTED')
		ORDER BY start_at`, teacherID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	defer rows.Close()

	var lessons []*models.Lesson

	for rows.Next() {
		var lesson models.Lesson

		err := rows.Scan(
			&lesson.ID,
			&lesson.TeacherID,
			&lesson.StudentID,
			&lesson.SubjectID,
			&lesson.Start,
			&lesson.DurationMinutes,
			&lesson.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lessons = append(lessons, &lesson)
	}

	return lessons, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanException(row rowScanner) (*models.AvailabilityException, error) {
	var ex models.AvailabilityException
	var exType string
	var dateStr string
	var startTime, endTime sql.NullString

	err := row.Scan(&ex.ID, &ex.TeacherID, &dateStr, &exType, &startTime, &endTime, &ex.IsActive)
	if err != nil {
		return nil, err
	}

	ex.Type = models.ExceptionType(exType)

	if ex.Date, err = time.Parse("2006-01-02", dateStr[:10]); err != nil {
		return nil, err
	}

	if startTime.Valid {
		t, err := parseClock(startTime.String)
		if err != nil {
			return nil, err
		}
		ex.StartTime = &t
	}
	if endTime.Valid {
		t, err := parseClock(endTime.String)
		if err != nil {
			return nil, err
		}
		ex.EndTime = &t
	}

	return &ex, nil
}

// parseClock reads a TIME column value. Postgres returns "15:04:05";
// fractional seconds are ignored.
func parseClock(value string) (time.Time, error) {
	if len(value) > 8 {
		value = value[:8]
	}

	t, err := time.Parse("15:04:05", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time value %q: %w", value, err)
	}

	return t, nil
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
