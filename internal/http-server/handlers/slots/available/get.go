package available

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tempo-service/api"
	"tempo-service/pkg/response"
	"tempo-service/pkg/sl"
)

type SlotLister interface {
	ListAvailableSlots(ctx context.Context, teacherID, startDate, endDate string, durationMinutes int) ([]*api.SlotResponse, error)
}

type Response struct {
	response.Response
	Slots []*api.SlotResponse `json:"slots"`
}

func New(log *slog.Logger, lister SlotLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.available.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		teacherID := chi.URLParam(r, "teacher_id")
		if teacherID == "" {
			log.Error("teacher_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "teacher_id is required"))
			return
		}

		startDate := r.URL.Query().Get("start_date")
		endDate := r.URL.Query().Get("end_date")
		if startDate == "" || endDate == "" {
			log.Error("start_date or end_date is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "start_date and end_date are required"))
			return
		}

		duration := 60
		if d := r.URL.Query().Get("duration"); d != "" {
			parsed, err := strconv.Atoi(d)
			if err != nil || parsed <= 0 {
				log.Error("invalid duration", slog.String("duration", d))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "duration must be a positive number of minutes"))
				return
			}
			duration = parsed
		}

		slots, err := lister.ListAvailableSlots(r.Context(), teacherID, startDate, endDate, duration)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid date range", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "dates must be formatted as YYYY-MM-DD"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("teacher not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "teacher not found"))
			return
		}

		if err != nil {
			log.Error("Failed to list available slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list available slots"))
			return
		}

		log.Info("Available slots listed", slog.Int("count", len(slots)))

		render.JSON(w, r, Response{
			Slots: slots,
		})
	}
}
