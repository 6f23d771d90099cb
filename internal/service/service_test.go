package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo-service/api"
	"tempo-service/internal/availability"
	"tempo-service/internal/models"
	"tempo-service/pkg/response"
)

// Thursday 2025-06-05 12:00 UTC.
var testNow = time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

const testTeacherID = "teacher-1"

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fakeLocker struct {
	failKeys map[string]bool
	locked   []string
	unlocked []string
}

func (f *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.failKeys[key] {
		return false, nil
	}
	f.locked = append(f.locked, key)
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.unlocked = append(f.unlocked, key)
	return nil
}

// fakeStore backs both the Store interface and the engine's read
// ports. Transactions come from a sqlmock connection so commit and
// rollback behavior is observable.
type fakeStore struct {
	db            *sql.DB
	teacherExists bool
	rules         []*models.WeeklyRule
	exceptions    []*models.AvailabilityException
	lessons       []*models.Lesson
	settings      *models.TeacherSettings
}

func (f *fakeStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return f.db.BeginTx(ctx, nil)
}

func (f *fakeStore) TeacherExists(context.Context, string) (bool, error) {
	return f.teacherExists, nil
}

func (f *fakeStore) CreateWeeklyRule(_ context.Context, rule *models.WeeklyRule) (string, error) {
	rule.ID = fmt.Sprintf("rule-%d", len(f.rules)+1)
	f.rules = append(f.rules, rule)
	return rule.ID, nil
}

func (f *fakeStore) GetWeeklyRule(_ context.Context, id string) (*models.WeeklyRule, error) {
	for _, rule := range f.rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) UpdateWeeklyRule(_ context.Context, rule *models.WeeklyRule) error {
	for i, existing := range f.rules {
		if existing.ID == rule.ID {
			f.rules[i] = rule
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeStore) DeactivateWeeklyRule(_ context.Context, id string) error {
	for _, rule := range f.rules {
		if rule.ID == id {
			rule.IsActive = false
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeStore) CreateException(_ context.Context, ex *models.AvailabilityException) (string, error) {
	ex.ID = fmt.Sprintf("ex-%d", len(f.exceptions)+1)
	f.exceptions = append(f.exceptions, ex)
	return ex.ID, nil
}

func (f *fakeStore) GetException(_ context.Context, id string) (*models.AvailabilityException, error) {
	for _, ex := range f.exceptions {
		if ex.ID == id {
			return ex, nil
		}
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) DeactivateException(_ context.Context, id string) error {
	for _, ex := range f.exceptions {
		if ex.ID == id {
			ex.IsActive = false
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeStore) SettingsByTeacher(_ context.Context, teacherID string) (*models.TeacherSettings, error) {
	if f.settings == nil || f.settings.TeacherID != teacherID {
		return nil, response.ErrNotFound
	}
	return f.settings, nil
}

func (f *fakeStore) UpsertSettings(_ context.Context, settings *models.TeacherSettings) error {
	f.settings = settings
	return nil
}

func (f *fakeStore) CreateLessonTx(ctx context.Context, tx *sql.Tx, lesson *models.Lesson) (string, error) {
	id := fmt.Sprintf("lesson-%d", len(f.lessons)+1)
	if _, err := tx.ExecContext(ctx, "INSERT INTO lessons (lesson_id) VALUES ($1)", id); err != nil {
		return "", err
	}
	return id, nil
}

func (f *fakeStore) GetLesson(_ context.Context, id string) (*models.Lesson, error) {
	for _, lesson := range f.lessons {
		if lesson.ID == id {
			return lesson, nil
		}
	}
	return nil, response.ErrNotFound
}

func (f *fakeStore) UpdateLessonStatus(_ context.Context, id string, status models.LessonStatus) error {
	for _, lesson := range f.lessons {
		if lesson.ID == id {
			lesson.Status = status
			return nil
		}
	}
	return response.ErrNotFound
}

func (f *fakeStore) ActiveRulesByWeekday(_ context.Context, teacherID string, weekday time.Weekday) ([]*models.WeeklyRule, error) {
	var out []*models.WeeklyRule
	for _, rule := range f.rules {
		if rule.TeacherID == teacherID && rule.DayOfWeek == int(weekday) && rule.IsActive {
			out = append(out, rule)
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
	for _, lesson := range f.lessons {
		if lesson.TeacherID == teacherID && !lesson.Status.Terminal() && sameDate(lesson.Start, date) {
			out = append(out, lesson)
		}
	}
	return out, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func clockTime(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

func newBookableStore(t *testing.T) (*fakeStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	store := &fakeStore{
		db:            db,
		teacherExists: true,
		rules: []*models.WeeklyRule{{
			ID:        "rule-mon",
			TeacherID: testTeacherID,
			DayOfWeek: int(time.Monday),
			StartTime: clockTime(9, 0),
			EndTime:   clockTime(17, 0),
			IsActive:  true,
		}},
		settings: &models.TeacherSettings{
			TeacherID:               testTeacherID,
			MinNoticeHours:          24,
			MaxAdvanceDays:          30,
			UseAvailabilityCalendar: true,
			Timezone:                "UTC",
			MaxRecurringLessons:     10,
		},
	}

	return store, mock, func() { db.Close() }
}

func newTestService(store *fakeStore, locker *fakeLocker) *Service {
	engine := availability.NewService(store, store, store, store, fixedClock{now: testNow})
	return NewService(store, engine, locker)
}

func TestSubmitBookingSuccess(t *testing.T) {
	store, mock, cleanup := newBookableStore(t)
	defer cleanup()
	locker := &fakeLocker{}
	svc := newTestService(store, locker)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "2025-06-09T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
			{Datetime: "2025-06-16T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Lessons, 2)
	assert.Equal(t, string(models.LessonPending), result.Lessons[0].Status)
	assert.Len(t, locker.locked, 2)
	assert.Len(t, locker.unlocked, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBookingAutoApprove(t *testing.T) {
	store, mock, cleanup := newBookableStore(t)
	defer cleanup()
	store.settings.AutoApproveBookings = true
	svc := newTestService(store, &fakeLocker{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "2025-06-09T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.NoError(t, err)
	require.Len(t, result.Lessons, 1)
	assert.Equal(t, string(models.LessonConfirmed), result.Lessons[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBookingAllOrNothing(t *testing.T) {
	store, mock, cleanup := newBookableStore(t)
	defer cleanup()
	// An existing lesson collides with the second requested slot.
	store.lessons = []*models.Lesson{{
		ID:              "lesson-existing",
		TeacherID:       testTeacherID,
		Start:           time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          models.LessonConfirmed,
	}}
	svc := newTestService(store, &fakeLocker{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lessons")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	_, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "2025-06-09T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
			{Datetime: "2025-06-16T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.ErrorIs(t, err, response.ErrSlotNotAvailable)

	var conflictErr *response.SlotConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "2025-06-16T10:00:00Z", conflictErr.Datetime)
	assert.Equal(t, "conflicts with an existing lesson", conflictErr.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBookingLocked(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	locker := &fakeLocker{failKeys: map[string]bool{
		"teacher:teacher-1:slot:2025-06-09T10:00:00Z": true,
	}}
	svc := newTestService(store, locker)

	_, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "2025-06-09T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.ErrorIs(t, err, response.ErrLocked)
}

func TestSubmitBookingUnknownTeacher(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	store.teacherExists = false
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "2025-06-09T10:00:00Z", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.ErrorIs(t, err, response.ErrNotFound)
}

func TestSubmitBookingBadDatetime(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.SubmitBooking(context.Background(), &api.BookingSubmitRequest{
		TeacherID: testTeacherID,
		StudentID: "student-1",
		Lessons: []api.BookingLessonRequest{
			{Datetime: "next monday", DurationMinutes: 60, SubjectID: "subject-1"},
		},
	})

	require.ErrorIs(t, err, response.ErrBadRequest)
}

func TestListAvailableSlots(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	slots, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-06-09", "2025-06-09", 60)

	require.NoError(t, err)
	// 9:00 through 16:00 every 30 minutes: last start fitting 60
	// minutes before 17:00 is 16:00.
	require.Len(t, slots, 15)
	assert.True(t, slots[0].Available)
	assert.Equal(t, slots[0].Datetime.Add(time.Hour), slots[0].EndDatetime)
}

func TestListAvailableSlotsBadDates(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "09.06.2025", "2025-06-09", 60)
	require.ErrorIs(t, err, response.ErrBadRequest)

	_, err = svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-06-10", "2025-06-09", 60)
	require.ErrorIs(t, err, response.ErrBadRequest)
}

func TestPreviewRecurring(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	result, err := svc.PreviewRecurring(context.Background(), &api.RecurringPreviewRequest{
		TeacherID:       testTeacherID,
		BaseDatetime:    "2025-06-09T10:00:00Z",
		DurationMinutes: 60,
		NumWeeks:        3,
		SubjectID:       "subject-1",
	})

	require.NoError(t, err)
	require.Len(t, result.Slots, 3)
	assert.Equal(t, 3, result.AvailableCount)
	assert.Equal(t, 0, result.ConflictCount)
	assert.Equal(t, 10, result.TeacherMaxAllowed)
	for _, slot := range result.Slots {
		assert.Equal(t, "subject-1", slot.SubjectID)
	}
}

func TestWeeklyRuleCRUD(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	created, err := svc.CreateWeeklyRule(context.Background(), &api.WeeklyRuleRequest{
		TeacherID: testTeacherID,
		DayOfWeek: 2,
		StartTime: "10:00",
		EndTime:   "14:00",
		IsActive:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", created.StartTime)
	assert.Equal(t, "14:00", created.EndTime)

	require.NoError(t, svc.DeleteWeeklyRule(context.Background(), created.ID))

	fetched, err := svc.GetWeeklyRule(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)
}

func TestCreateWeeklyRuleRejectsInverted(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.CreateWeeklyRule(context.Background(), &api.WeeklyRuleRequest{
		TeacherID: testTeacherID,
		DayOfWeek: 2,
		StartTime: "14:00",
		EndTime:   "10:00",
		IsActive:  true,
	})

	require.ErrorIs(t, err, response.ErrBadRequest)
}

func TestCreateExceptionWholeDayBlock(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	created, err := svc.CreateException(context.Background(), &api.ExceptionRequest{
		TeacherID: testTeacherID,
		Date:      "2025-06-09",
		Type:      "block",
	})
	require.NoError(t, err)
	assert.Nil(t, created.StartTime)
	assert.True(t, created.IsActive)

	// The whole-day block wipes the Monday rule.
	slots, err := svc.ListAvailableSlots(context.Background(), testTeacherID, "2025-06-09", "2025-06-09", 60)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCreateExceptionExtraRequiresTimes(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.CreateException(context.Background(), &api.ExceptionRequest{
		TeacherID: testTeacherID,
		Date:      "2025-06-09",
		Type:      "extra",
	})

	require.ErrorIs(t, err, response.ErrBadRequest)
}

func TestUpdateSettingsRejectsBadTimezone(t *testing.T) {
	store, _, cleanup := newBookableStore(t)
	defer cleanup()
	svc := newTestService(store, &fakeLocker{})

	_, err := svc.UpdateSettings(context.Background(), testTeacherID, &api.SettingsRequest{
		Timezone: "Mars/Olympus_Mons",
	})

	require.ErrorIs(t, err, response.ErrBadRequest)
}
