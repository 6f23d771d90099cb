package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"tempo-service/api"
	"tempo-service/pkg/response"
	"tempo-service/pkg/sl"
)

type ExceptionCreator interface {
	CreateException(ctx context.Context, req *api.ExceptionRequest) (*api.ExceptionResponse, error)
}

type Request struct {
	api.ExceptionRequest
}

type Response struct {
	response.Response
	Exception api.ExceptionResponse `json:"exception,omitempty"`
}

func New(log *slog.Logger, creator ExceptionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.create.New"

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

		if req.TeacherID == "" {
			log.Error("teacher_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "teacher_id is required"))
			return
		}

		exception, err := creator.CreateException(r.Context(), &req.ExceptionRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid exception", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid exception: date must be YYYY-MM-DD, type block or extra, times HH:MM"))
			return
		}

		if err != nil {
			log.Error("Failed to create exception", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create exception"))
			return
		}

		log.Info("Exception created", slog.Any("exception", exception))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Exception: *exception,
		})
	}
}
