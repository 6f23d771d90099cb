package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tempo-service/api"
	"tempo-service/internal/availability"
	"tempo-service/internal/lock"
	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

const bookingLockTTL = 10 * time.Second

type Service struct {
	store  Store
	engine *availability.Service
	locker lock.Locker
}

func NewService(store Store, engine *availability.Service, locker lock.Locker) *Service {
	return &Service{store: store, engine: engine, locker: locker}
}

type Store interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)

	TeacherExists(ctx context.Context, teacherID string) (bool, error)

	// Weekly rules
	CreateWeeklyRule(ctx context.Context, rule *models.WeeklyRule) (string, error)
	GetWeeklyRule(ctx context.Context, id string) (*models.WeeklyRule, error)
	UpdateWeeklyRule(ctx context.Context, rule *models.WeeklyRule) error
	DeactivateWeeklyRule(ctx context.Context, id string) error

	// Exceptions
	CreateException(ctx context.Context, ex *models.AvailabilityException) (string, error)
	GetException(ctx context.Context, id string) (*models.AvailabilityException, error)
	DeactivateException(ctx context.Context, id string) error

	// Settings
	SettingsByTeacher(ctx context.Context, teacherID string) (*models.TeacherSettings, error)
	UpsertSettings(ctx context.Context, settings *models.TeacherSettings) error

	// Lessons
	CreateLessonTx(ctx context.Context, tx *sql.Tx, lesson *models.Lesson) (string, error)
	GetLesson(ctx context.Context, id string) (*models.Lesson, error)
	UpdateLessonStatus(ctx context.Context, id string, status models.LessonStatus) error
}

// Available slots

func (s *Service) ListAvailableSlots(ctx context.Context, teacherID, startDate, endDate string, durationMinutes int) ([]*api.SlotResponse, error) {
	const op = "service.ListAvailableSlots"

	from, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid start_date: %w", op, response.ErrBadRequest)
	}

	to, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid end_date: %w", op, response.ErrBadRequest)
	}

	if to.Before(from) {
		return nil, fmt.Errorf("%s: end_date is before start_date: %w", op, response.ErrBadRequest)
	}

	if err := s.requireTeacher(ctx, teacherID, op); err != nil {
		return nil, err
	}

	slots, err := s.engine.CalculateAvailableSlots(ctx, teacherID, from, to, durationMinutes, availability.DefaultIncrementMinutes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, &api.SlotResponse{
			Datetime:    slot.Start,
			Duration:    slot.DurationMinutes,
			Available:   slot.Available,
			EndDatetime: slot.End,
		})
	}

	return result, nil
}

func (s *Service) CheckSlotAvailability(ctx context.Context, teacherID string, start time.Time, durationMinutes int) (bool, string, error) {
	return s.engine.CheckSlotAvailability(ctx, teacherID, start, durationMinutes)
}

// Recurring preview

func (s *Service) PreviewRecurring(ctx context.Context, req *api.RecurringPreviewRequest) (*api.RecurringPreviewResponse, error) {
	const op = "service.PreviewRecurring"

	base, err := time.Parse(time.RFC3339, req.BaseDatetime)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base_datetime: %w", op, response.ErrBadRequest)
	}

	if err := s.requireTeacher(ctx, req.TeacherID, op); err != nil {
		return nil, err
	}

	plan, err := s.engine.GenerateRecurringSlots(ctx, req.TeacherID, base, req.DurationMinutes, req.NumWeeks, req.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slots := make([]api.SlotResponse, 0, len(plan.Slots))
	for _, slot := range plan.Slots {
		slots = append(slots, api.SlotResponse{
			Datetime:       slot.Start,
			Duration:       slot.DurationMinutes,
			Available:      slot.Available,
			EndDatetime:    slot.End,
			ConflictReason: slot.ConflictReason,
			SubjectID:      slot.SubjectID,
		})
	}

	return &api.RecurringPreviewResponse{
		Slots:             slots,
		AvailableCount:    plan.AvailableCount,
		ConflictCount:     plan.ConflictCount,
		TeacherMaxAllowed: plan.MaxAllowed,
	}, nil
}

// Booking submission

// SubmitBooking re-validates every requested lesson through the engine
// inside a per-slot advisory lock and a single transaction. Either all
// lessons are created or none are.
func (s *Service) SubmitBooking(ctx context.Context, req *api.BookingSubmitRequest) (*api.BookingSubmitResponse, error) {
	const op = "service.SubmitBooking"

	if err := s.requireTeacher(ctx, req.TeacherID, op); err != nil {
		return nil, err
	}

	starts := make([]time.Time, 0, len(req.Lessons))
	keys := make([]string, 0, len(req.Lessons))
	for _, lesson := range req.Lessons {
		start, err := time.Parse(time.RFC3339, lesson.Datetime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid datetime %q: %w", op, lesson.Datetime, response.ErrBadRequest)
		}
		starts = append(starts, start)
		keys = append(keys, lock.SlotKey(req.TeacherID, start))
	}

	status := models.LessonPending
	settings, err := s.store.SettingsByTeacher(ctx, req.TeacherID)
	if err != nil && !errors.Is(err, response.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if settings != nil && settings.AutoApproveBookings {
		status = models.LessonConfirmed
	}

	locked, err := lock.LockAll(ctx, s.locker, keys, bookingLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer lock.UnlockAll(ctx, s.locker, keys)

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	created := make([]api.LessonResponse, 0, len(req.Lessons))

	for i, lessonReq := range req.Lessons {
		ok, reason, err := s.engine.CheckSlotAvailability(ctx, req.TeacherID, starts[i], lessonReq.DurationMinutes)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, &response.SlotConflictError{
				Datetime: lessonReq.Datetime,
				Reason:   reason,
			})
		}

		lesson := &models.Lesson{
			TeacherID:       req.TeacherID,
			StudentID:       req.StudentID,
			SubjectID:       lessonReq.SubjectID,
			Start:           starts[i],
			DurationMinutes: lessonReq.DurationMinutes,
			Status:          status,
		}

		id, err := s.store.CreateLessonTx(ctx, tx, lesson)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: create lesson: %w", op, err)
		}

		created = append(created, api.LessonResponse{
			ID:              id,
			TeacherID:       lesson.TeacherID,
			StudentID:       lesson.StudentID,
			SubjectID:       lesson.SubjectID,
			Datetime:        lesson.Start,
			DurationMinutes: lesson.DurationMinutes,
			Status:          string(lesson.Status),
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	return &api.BookingSubmitResponse{Lessons: created}, nil
}

func (s *Service) GetLesson(ctx context.Context, id string) (*api.LessonResponse, error) {
	const op = "service.GetLesson"

	lesson, err := s.store.GetLesson(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessonResponse(lesson), nil
}

func (s *Service) CancelLesson(ctx context.Context, id string) (*api.LessonResponse, error) {
	const op = "service.CancelLesson"

	if err := s.store.UpdateLessonStatus(ctx, id, models.LessonCancelled); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetLesson(ctx, id)
}

func (s *Service) ConfirmLesson(ctx context.Context, id string) (*api.LessonResponse, error) {
	const op = "service.ConfirmLesson"

	if err := s.store.UpdateLessonStatus(ctx, id, models.LessonConfirmed); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetLesson(ctx, id)
}

// Weekly rules

func (s *Service) CreateWeeklyRule(ctx context.Context, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error) {
	const op = "service.CreateWeeklyRule"

	rule, err := weeklyRuleFromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.store.CreateWeeklyRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetWeeklyRule(ctx, id)
}

func (s *Service) GetWeeklyRule(ctx context.Context, id string) (*api.WeeklyRuleResponse, error) {
	const op = "service.GetWeeklyRule"

	rule, err := s.store.GetWeeklyRule(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &api.WeeklyRuleResponse{
		ID:        rule.ID,
		TeacherID: rule.TeacherID,
		DayOfWeek: rule.DayOfWeek,
		StartTime: rule.StartTime.Format("15:04"),
		EndTime:   rule.EndTime.Format("15:04"),
		IsActive:  rule.IsActive,
	}, nil
}

func (s *Service) UpdateWeeklyRule(ctx context.Context, id string, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error) {
	const op = "service.UpdateWeeklyRule"

	existing, err := s.store.GetWeeklyRule(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rule, err := weeklyRuleFromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rule.ID = existing.ID

	if err := s.store.UpdateWeeklyRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetWeeklyRule(ctx, id)
}

// DeleteWeeklyRule deactivates the rule; rows are kept for history.
func (s *Service) DeleteWeeklyRule(ctx context.Context, id string) error {
	const op = "service.DeleteWeeklyRule"

	if err := s.store.DeactivateWeeklyRule(ctx, id); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Exceptions

func (s *Service) CreateException(ctx context.Context, req *api.ExceptionRequest) (*api.ExceptionResponse, error) {
	const op = "service.CreateException"

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid date: %w", op, response.ErrBadRequest)
	}

	exType := models.ExceptionType(req.Type)
	if exType != models.ExceptionBlock && exType != models.ExceptionExtra {
		return nil, fmt.Errorf("%s: invalid type %q: %w", op, req.Type, response.ErrBadRequest)
	}

	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, fmt.Errorf("%s: start_time and end_time must be given together: %w", op, response.ErrBadRequest)
	}
	if exType == models.ExceptionExtra && req.StartTime == nil {
		return nil, fmt.Errorf("%s: extra availability requires start_time and end_time: %w", op, response.ErrBadRequest)
	}

	ex := &models.AvailabilityException{
		TeacherID: req.TeacherID,
		Date:      date,
		Type:      exType,
		IsActive:  true,
	}

	if req.StartTime != nil {
		start, err := time.Parse("15:04", *req.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid start_time: %w", op, response.ErrBadRequest)
		}
		end, err := time.Parse("15:04", *req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid end_time: %w", op, response.ErrBadRequest)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("%s: start_time must be before end_time: %w", op, response.ErrBadRequest)
		}
		ex.StartTime = &start
		ex.EndTime = &end
	}

	id, err := s.store.CreateException(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetException(ctx, id)
}

func (s *Service) GetException(ctx context.Context, id string) (*api.ExceptionResponse, error) {
	const op = "service.GetException"

	ex, err := s.store.GetException(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := &api.ExceptionResponse{
		ID:        ex.ID,
		TeacherID: ex.TeacherID,
		Date:      ex.Date.Format("2006-01-02"),
		Type:      string(ex.Type),
		IsActive:  ex.IsActive,
	}

	if ex.StartTime != nil {
		start := ex.StartTime.Format("15:04")
		resp.StartTime = &start
	}
	if ex.EndTime != nil {
		end := ex.EndTime.Format("15:04")
		resp.EndTime = &end
	}

	return resp, nil
}

func (s *Service) DeleteException(ctx context.Context, id string) error {
	const op = "service.DeleteException"

	if err := s.store.DeactivateException(ctx, id); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Settings

func (s *Service) GetSettings(ctx context.Context, teacherID string) (*api.SettingsResponse, error) {
	const op = "service.GetSettings"

	settings, err := s.store.SettingsByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return settingsResponse(settings), nil
}

func (s *Service) UpdateSettings(ctx context.Context, teacherID string, req *api.SettingsRequest) (*api.SettingsResponse, error) {
	const op = "service.UpdateSettings"

	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, fmt.Errorf("%s: invalid timezone %q: %w", op, req.Timezone, response.ErrBadRequest)
		}
	}

	settings := &models.TeacherSettings{
		TeacherID:               teacherID,
		BufferMinutes:           req.BufferMinutes,
		MinNoticeHours:          req.MinNoticeHours,
		MaxAdvanceDays:          req.MaxAdvanceDays,
		UseAvailabilityCalendar: req.UseAvailabilityCalendar,
		AutoApproveBookings:     req.AutoApproveBookings,
		Timezone:                req.Timezone,
		MaxRecurringLessons:     req.MaxRecurringLessons,
	}

	if err := s.store.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetSettings(ctx, teacherID)
}

func (s *Service) requireTeacher(ctx context.Context, teacherID, op string) error {
	exists, err := s.store.TeacherExists(ctx, teacherID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: teacher %s: %w", op, teacherID, response.ErrNotFound)
	}

	return nil
}

func weeklyRuleFromRequest(req *api.WeeklyRuleRequest) (*models.WeeklyRule, error) {
	if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		return nil, fmt.Errorf("invalid day_of_week %d: %w", req.DayOfWeek, response.ErrBadRequest)
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time: %w", response.ErrBadRequest)
	}

	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time: %w", response.ErrBadRequest)
	}

	if !start.Before(end) {
		return nil, fmt.Errorf("start_time must be before end_time: %w", response.ErrBadRequest)
	}

	return &models.WeeklyRule{
		TeacherID: req.TeacherID,
		DayOfWeek: req.DayOfWeek,
		StartTime: start,
		EndTime:   end,
		IsActive:  req.IsActive,
	}, nil
}

func lessonResponse(lesson *models.Lesson) *api.LessonResponse {
	return &api.LessonResponse{
		ID:              lesson.ID,
		TeacherID:       lesson.TeacherID,
		StudentID:       lesson.StudentID,
		SubjectID:       lesson.SubjectID,
		Datetime:        lesson.Start,
		DurationMinutes: lesson.DurationMinutes,
		Status:          string(lesson.Status),
	}
}

func settingsResponse(settings *models.TeacherSettings) *api.SettingsResponse {
	return &api.SettingsResponse{
		TeacherID:               settings.TeacherID,
		BufferMinutes:           settings.BufferMinutes,
		MinNoticeHours:          settings.MinNoticeHours,
		MaxAdvanceDays:          settings.MaxAdvanceDays,
		UseAvailabilityCalendar: settings.UseAvailabilityCalendar,
		AutoApproveBookings:     settings.AutoApproveBookings,
		Timezone:                settings.Timezone,
		MaxRecurringLessons:     settings.MaxRecurringLessons,
	}
}
