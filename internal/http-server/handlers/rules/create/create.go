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

type WeeklyRuleCreator interface {
	CreateWeeklyRule(ctx context.Context, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error)
}

type Request struct {
	api.WeeklyRuleRequest
}

type Response struct {
	response.Response
	Rule api.WeeklyRuleResponse `json:"rule,omitempty"`
}

func New(log *slog.Logger, creator WeeklyRuleCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.create.New"

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

		rule, err := creator.CreateWeeklyRule(r.Context(), &req.WeeklyRuleRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid rule", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid rule: times must be HH:MM with start before end, day_of_week 0-6"))
			return
		}

		if err != nil {
			log.Error("Failed to create weekly rule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create weekly rule"))
			return
		}

		log.Info("Weekly rule created", slog.Any("rule", rule))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Rule: *rule,
		})
	}
}
