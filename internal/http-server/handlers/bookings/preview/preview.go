package preview

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

type RecurringPreviewer interface {
	PreviewRecurring(ctx context.Context, req *api.RecurringPreviewRequest) (*api.RecurringPreviewResponse, error)
}

type Request struct {
	api.RecurringPreviewRequest
}

type Response struct {
	response.Response
	api.RecurringPreviewResponse
}

func New(log *slog.Logger, previewer RecurringPreviewer) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.preview.New"

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

		if err := validate.Struct(req.RecurringPreviewRequest); err != nil {
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

		result, err := previewer.PreviewRecurring(r.Context(), &req.RecurringPreviewRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid base_datetime", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "base_datetime must be RFC 3339"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("teacher not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "teacher not found"))
			return
		}

		if err != nil {
			log.Error("Failed to preview recurring booking", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to preview recurring booking"))
			return
		}

		log.Info("Recurring preview generated",
			slog.Int("available", result.AvailableCount),
			slog.Int("conflicts", result.ConflictCount),
		)

		render.JSON(w, r, Response{
			RecurringPreviewResponse: *result,
		})
	}
}
