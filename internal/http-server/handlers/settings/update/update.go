package update

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"tempo-service/api"
	"tempo-service/pkg/response"
	"tempo-service/pkg/sl"
)

type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, teacherID string, req *api.SettingsRequest) (*api.SettingsResponse, error)
}

type Request struct {
	api.SettingsRequest
}

type Response struct {
	response.Response
	Settings api.SettingsResponse `json:"settings,omitempty"`
}

func New(log *slog.Logger, updater SettingsUpdater) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.update.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		if err := validate.Struct(req.SettingsRequest); err != nil {
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

		settings, err := updater.UpdateSettings(r.Context(), teacherID, &req.SettingsRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid settings", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid settings: timezone must be a valid IANA name"))
			return
		}

		if err != nil {
			log.Error("Failed to update settings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update settings"))
			return
		}

		log.Info("Settings updated", slog.Any("settings", settings))

		render.JSON(w, r, Response{
			Settings: *settings,
		})
	}
}
