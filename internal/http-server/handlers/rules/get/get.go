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

type WeeklyRuleGetter interface {
	GetWeeklyRule(ctx context.Context, id string) (*api.WeeklyRuleResponse, error)
}

type Response struct {
	response.Response
	Rule api.WeeklyRuleResponse `json:"rule,omitempty"`
}

func New(log *slog.Logger, getter WeeklyRuleGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.get.New"

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

		rule, err := getter.GetWeeklyRule(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("rule not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "rule not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get weekly rule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get weekly rule"))
			return
		}

		log.Info("Weekly rule retrieved", slog.Any("rule", rule))

		render.JSON(w, r, Response{
			Rule: *rule,
		})
	}
}
