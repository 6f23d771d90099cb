package models

import "time"

type ExceptionType string

const (
	ExceptionBlock ExceptionType = "block"
	ExceptionExtra ExceptionType = "extra"
)

type LessonStatus string

const (
	LessonPending   LessonStatus = "PENDING"
	LessonConfirmed LessonStatus = "CONFIRMED"
	LessonCompleted LessonStatus = "COMPLETED"
	LessonCancelled LessonStatus = "CANCELLED"
	LessonRejected  LessonStatus = "REJECTED"
)

// Terminal reports whether a lesson in this status no longer occupies
// time on the teacher's calendar.
func (s LessonStatus) Terminal() bool {
	return s == LessonCancelled || s == LessonRejected
}

// WeeklyRule is one recurring availability window. A teacher may have
// several rules on the same weekday (split shifts). StartTime/EndTime
// carry only the wall-clock component (parsed from TIME columns).
type WeeklyRule struct {
	ID        string    `db:"rule_id"`
	TeacherID string    `db:"teacher_id"`
	DayOfWeek int       `db:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	IsActive  bool      `db:"is_active"`
}

// AvailabilityException is a date-specific override. A block with both
// times nil blocks the whole day.
type AvailabilityException struct {
	ID        string        `db:"exception_id"`
	TeacherID string        `db:"teacher_id"`
	Date      time.Time     `db:"exception_date"`
	Type      ExceptionType `db:"exception_type"`
	StartTime *time.Time    `db:"start_time"`
	EndTime   *time.Time    `db:"end_time"`
	IsActive  bool          `db:"is_active"`
}

func (e *AvailabilityException) WholeDay() bool {
	return e.Type == ExceptionBlock && e.StartTime == nil && e.EndTime == nil
}

// TeacherSettings is the per-teacher booking policy row.
type TeacherSettings struct {
	TeacherID               string `db:"teacher_id"`
	BufferMinutes           int    `db:"buffer_minutes"`
	MinNoticeHours          int    `db:"min_booking_notice_hours"`
	MaxAdvanceDays          int    `db:"max_booking_days_ahead"`
	UseAvailabilityCalendar bool   `db:"use_availability_calendar"`
	AutoApproveBookings     bool   `db:"auto_approve_bookings"`
	Timezone                string `db:"timezone"`
	MaxRecurringLessons     int    `db:"max_recurring_lessons"`
}

// Location resolves the teacher's timezone, falling back to UTC when
// the stored name is empty or unknown.
func (s *TeacherSettings) Location() *time.Location {
	if s == nil || s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Lesson is a booked lesson as seen by the engine. Any lesson whose
// status is not terminal occupies time on the teacher's calendar.
type Lesson struct {
	ID              string       `db:"lesson_id"`
	TeacherID       string       `db:"teacher_id"`
	StudentID       string       `db:"student_id"`
	SubjectID       string       `db:"subject_id"`
	Start           time.Time    `db:"start_at"`
	DurationMinutes int          `db:"duration_minutes"`
	Status          LessonStatus `db:"status"`
}

func (l *Lesson) End() time.Time {
	return l.Start.Add(time.Duration(l.DurationMinutes) * time.Minute)
}

// Slot is a candidate lesson start produced by the availability engine.
// Slots are never persisted.
type Slot struct {
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Available       bool
	ConflictReason  string
	SubjectID       string
}
