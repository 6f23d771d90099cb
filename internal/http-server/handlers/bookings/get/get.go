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

type LessonGetter interface {
	GetLesson(ctx context.Context, id string) (*api.LessonResponse, error)
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

func New(log *slog.Logger, getter LessonGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		lesson, err := getter.GetLesson(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("lesson not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "lesson not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get lesson", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get lesson"))
			return
		}

		log.Info("Lesson retrieved", slog.Any("lesson", lesson))

		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
