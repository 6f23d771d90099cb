package submit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"tempo-service/api"
	"tempo-service/pkg/response"
	"tempo-service/pkg/sl"
)

type BookingSubmitter interface {
	SubmitBooking(ctx context.Context, req *api.BookingSubmitRequest) (*api.BookingSubmitResponse, error)
}

type Request struct {
	api.BookingSubmitRequest
}

type Response struct {
	response.Response
	Lessons []api.LessonResponse `json:"lessons,omitempty"`
}

func New(log *slog.Logger, submitter BookingSubmitter) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.submit.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		if err := validate.Struct(req.BookingSubmitRequest); err != nil {
			var validateErrs validator.ValidationErrors
			if errors.As(err, &validateErrs) {
				log.Error("Request validation failed", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.ValidationError(validateErrs))
				return
			}

			log.Error("Failed to validate request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid request"))
			return
		}

		result, err := submitter.SubmitBooking(r.Context(), &req.BookingSubmitRequest)

		if errors.Is(err, response.ErrLocked) {
			log.Error("slots are locked by another booking attempt")
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "slots are being booked by someone else, try again"))
			return
		}

		var conflictErr *response.SlotConflictError
		if errors.As(err, &conflictErr) {
			log.Error("slot is not available", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.SLOT_NOT_AVAILABLE), conflictErr.Error()))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid lesson datetime", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "lesson datetimes must be RFC 3339"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("teacher not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "teacher not found"))
			return
		}

		if err != nil {
			log.Error("Failed to submit booking", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to submit booking"))
			return
		}

		log.Info("Booking submitted", slog.Int("lessons", len(result.Lessons)))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Lessons: result.Lessons,
		})
	}
}
