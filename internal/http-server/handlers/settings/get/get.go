package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"tempo-service/api"
	"tempo-service/pkg/response"
	"tempo-service/pkg/sl"
)

type SettingsGetter interface {
	GetSettings(ctx context.Context, teacherID string) (*api.SettingsResponse, error)
}

type Response struct {
	response.Response
	Settings api.SettingsResponse `json:"settings,omitempty"`
}

func New(log *slog.Logger, getter SettingsGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.settings.get.New"

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

		settings, err := getter.GetSettings(r.Context(), teacherID)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("settings not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "settings not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get settings", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get settings"))
			return
		}

		log.Info("Settings retrieved", slog.Any("settings", settings))

		render.JSON(w, r, Response{
			Settings: *settings,
		})
	}
}
