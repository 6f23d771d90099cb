package confirm

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

type LessonConfirmer interface {
	ConfirmLesson(ctx context.Context, id string) (*api.LessonResponse, error)
}

type Response struct {
	response.Response
	Lesson api.LessonResponse `json:"lesson,omitempty"`
}

func New(log *slog.Logger, confirmer LessonConfirmer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.bookings.confirm.New"

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

		lesson, err := confirmer.ConfirmLesson(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("lesson not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "lesson not found"))
			return
		}

		if err != nil {
			log.Error("Failed to confirm lesson", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to confirm lesson"))
			return
		}

		log.Info("Lesson confirmed", slog.String("lesson_id", id))

		render.JSON(w, r, Response{
			Lesson: *lesson,
		})
	}
}
