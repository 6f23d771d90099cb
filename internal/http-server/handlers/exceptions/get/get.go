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

type ExceptionGetter interface {
	GetException(ctx context.Context, id string) (*api.ExceptionResponse, error)
}

type Response struct {
	response.Response
	Exception api.ExceptionResponse `json:"exception,omitempty"`
}

func New(log *slog.Logger, getter ExceptionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.get.New"

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

		exception, err := getter.GetException(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("exception not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "exception not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get exception", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get exception"))
			return
		}

		log.Info("Exception retrieved", slog.Any("exception", exception))

		render.JSON(w, r, Response{
			Exception: *exception,
		})
	}
}
