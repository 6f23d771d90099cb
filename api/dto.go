package api

import "time"

// Weekly availability rules

type WeeklyRuleRequest struct {
	TeacherID string `json:"teacher_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"` // "15:04"
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

type WeeklyRuleResponse struct {
	ID        string `json:"id"`
	TeacherID string `json:"teacher_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

// Availability exceptions

type ExceptionRequest struct {
	TeacherID string  `json:"teacher_id"`
	Date      string  `json:"date"` // "2006-01-02"
	Type      string  `json:"type"` // block | extra
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

type ExceptionResponse struct {
	ID        string  `json:"id"`
	TeacherID string  `json:"teacher_id"`
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	IsActive  bool    `json:"is_active"`
}

// Teacher settings

type SettingsRequest struct {
	BufferMinutes           int    `json:"buffer_minutes" validate:"min=0"`
	MinNoticeHours          int    `json:"min_booking_notice_hours" validate:"min=0"`
	MaxAdvanceDays          int    `json:"max_booking_days_ahead" validate:"min=0"`
	UseAvailabilityCalendar bool   `json:"use_availability_calendar"`
	AutoApproveBookings     bool   `json:"auto_approve_bookings"`
	Timezone                string `json:"timezone"`
	MaxRecurringLessons     int    `json:"max_recurring_lessons" validate:"min=0"`
}

type SettingsResponse struct {
	TeacherID               string `json:"teacher_id"`
	BufferMinutes           int    `json:"buffer_minutes"`
	MinNoticeHours          int    `json:"min_booking_notice_hours"`
	MaxAdvanceDays          int    `json:"max_booking_days_ahead"`
	UseAvailabilityCalendar bool   `json:"use_availability_calendar"`
	AutoApproveBookings     bool   `json:"auto_approve_bookings"`
	Timezone                string `json:"timezone"`
	MaxRecurringLessons     int    `json:"max_recurring_lessons"`
}

// Slots

type SlotResponse struct {
	Datetime       time.Time `json:"datetime"`
	Duration       int       `json:"duration"`
	Available      bool      `json:"available"`
	EndDatetime    time.Time `json:"end_datetime"`
	ConflictReason string    `json:"conflict_reason,omitempty"`
	SubjectID      string    `json:"subject_id,omitempty"`
}

// Recurring preview

type RecurringPreviewRequest struct {
	TeacherID       string `json:"teacher_id" validate:"required"`
	BaseDatetime    string `json:"base_datetime" validate:"required"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=15,max=180"`
	NumWeeks        int    `json:"num_weeks" validate:"required,min=2,max=52"`
	SubjectID       string `json:"subject_id" validate:"required"`
}

type RecurringPreviewResponse struct {
	Slots             []SlotResponse `json:"slots"`
	AvailableCount    int            `json:"available_count"`
	ConflictCount     int            `json:"conflict_count"`
	TeacherMaxAllowed int            `json:"teacher_max_allowed"`
}

// Booking submission

type BookingLessonRequest struct {
	Datetime        string `json:"datetime" validate:"required"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=15,max=180"`
	SubjectID       string `json:"subject_id" validate:"required"`
}

type BookingSubmitRequest struct {
	TeacherID string                 `json:"teacher_id" validate:"required"`
	StudentID string                 `json:"student_id" validate:"required"`
	Lessons   []BookingLessonRequest `json:"lessons" validate:"required,min=1,dive"`
}

type LessonResponse struct {
	ID              string    `json:"id"`
	TeacherID       string    `json:"teacher_id"`
	StudentID       string    `json:"student_id"`
	SubjectID       string    `json:"subject_id"`
	Datetime        time.Time `json:"datetime"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
}

type BookingSubmitResponse struct {
	Lessons []LessonResponse `json:"lessons"`
}
