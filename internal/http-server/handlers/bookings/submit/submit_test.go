package submit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo-service/api"
	"tempo-service/internal/http-server/handlers/bookings/submit"
	"tempo-service/pkg/handlers/slogdiscard"
	"tempo-service/pkg/response"
)

type submitterMock struct {
	result *api.BookingSubmitResponse
	err    error

	got *api.BookingSubmitRequest
}

func (m *submitterMock) SubmitBooking(_ context.Context, req *api.BookingSubmitRequest) (*api.BookingSubmitResponse, error) {
	m.got = req
	return m.result, m.err
}

func serve(submitter *submitterMock, body string) *httptest.ResponseRecorder {
	handler := submit.New(slogdiscard.NewDiscardLogger(), submitter)

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

const validBody = `{
	"teacher_id": "teacher-1",
	"student_id": "student-1",
	"lessons": [
		{"datetime": "2025-06-09T10:00:00Z", "duration_minutes": 60, "subject_id": "subject-1"},
		{"datetime": "2025-06-16T10:00:00Z", "duration_minutes": 60, "subject_id": "subject-1"}
	]
}`

func TestSubmitBooking(t *testing.T) {
	start := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	submitter := &submitterMock{result: &api.BookingSubmitResponse{
		Lessons: []api.LessonResponse{
			{ID: "lesson-1", TeacherID: "teacher-1", StudentID: "student-1", SubjectID: "subject-1", Datetime: start, DurationMinutes: 60, Status: "PENDING"},
			{ID: "lesson-2", TeacherID: "teacher-1", StudentID: "student-1", SubjectID: "subject-1", Datetime: start.AddDate(0, 0, 7), DurationMinutes: 60, Status: "PENDING"},
		},
	}}

	rr := serve(submitter, validBody)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, submitter.got)
	assert.Len(t, submitter.got.Lessons, 2)

	var resp submit.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Lessons, 2)
	assert.Equal(t, "lesson-1", resp.Lessons[0].ID)
	assert.Equal(t, "PENDING", resp.Lessons[0].Status)
}

func TestSubmitBookingValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "missing lessons",
			body: `{"teacher_id": "teacher-1", "student_id": "student-1", "lessons": []}`,
		},
		{
			name: "missing student_id",
			body: `{"teacher_id": "teacher-1", "lessons": [{"datetime": "2025-06-09T10:00:00Z", "duration_minutes": 60, "subject_id": "subject-1"}]}`,
		},
		{
			name: "lesson without subject",
			body: `{"teacher_id": "teacher-1", "student_id": "student-1", "lessons": [{"datetime": "2025-06-09T10:00:00Z", "duration_minutes": 60}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(&submitterMock{}, tc.body)

			require.Equal(t, http.StatusBadRequest, rr.Code)

			var resp response.Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, string(response.VALIDATION_FAILED), resp.Code)
		})
	}
}

func TestSubmitBookingSlotConflict(t *testing.T) {
	submitter := &submitterMock{err: fmt.Errorf("service: %w", &response.SlotConflictError{
		Datetime: "2025-06-16T10:00:00Z",
		Reason:   "conflicts with an existing lesson",
	})}

	rr := serve(submitter, validBody)

	require.Equal(t, http.StatusConflict, rr.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, string(response.SLOT_NOT_AVAILABLE), resp.Code)
	assert.Contains(t, resp.Message, "2025-06-16T10:00:00Z")
	assert.Contains(t, resp.Message, "conflicts with an existing lesson")
}

func TestSubmitBookingLocked(t *testing.T) {
	submitter := &submitterMock{err: fmt.Errorf("service: %w", response.ErrLocked)}

	rr := serve(submitter, validBody)

	require.Equal(t, http.StatusLocked, rr.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, string(response.LOCKED), resp.Code)
}

func TestSubmitBookingTeacherNotFound(t *testing.T) {
	submitter := &submitterMock{err: fmt.Errorf("service: %w", response.ErrNotFound)}

	rr := serve(submitter, validBody)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSubmitBookingBadDatetime(t *testing.T) {
	submitter := &submitterMock{err: fmt.Errorf("service: %w", response.ErrBadRequest)}

	rr := serve(submitter, validBody)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubmitBookingBadBody(t *testing.T) {
	rr := serve(&submitterMock{}, `[]`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
