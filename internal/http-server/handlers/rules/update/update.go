package update

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

type WeeklyRuleUpdater interface {
	UpdateWeeklyRule(ctx context.Context, id string, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error)
}

type Request struct {
	api.WeeklyRuleRequest
}

type Response struct {
	response.Response
	Rule api.WeeklyRuleResponse `json:"rule,omitempty"`
}

func New(log *slog.Logger, updater WeeklyRuleUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.update.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		rule, err := updater.UpdateWeeklyRule(r.Context(), id, &req.WeeklyRuleRequest)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("rule not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "rule not found"))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("invalid rule", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid rule: times must be HH:MM with start before end, day_of_week 0-6"))
			return
		}

		if err != nil {
			log.Error("Failed to update weekly rule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to update weekly rule"))
			return
		}

		log.Info("Weekly rule updated", slog.Any("rule", rule))

		render.JSON(w, r, Response{
			Rule: *rule,
		})
	}
}
