// Package export реализует HTTP-обработчик полной выгрузки данных бота.
package export

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/ar2em/subscription-bot/internal/http/response"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
	"github.com/ar2em/subscription-bot/internal/models"
)

type Service interface {
	Export(ctx context.Context) (*models.Export, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выгрузка данных
// @Description Возвращает пользователей, подписки и журнал отмен одним согласованным снимком.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/export [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.export"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	data, err := h.service.Export(r.Context())
	if err != nil {
		log.Error("failed to export data", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("data exported",
		slog.Int("users", len(data.Users)),
		slog.Int("subscriptions", len(data.Subscriptions)),
		slog.Int("cancellations", len(data.Cancellations)))
	render.JSON(w, r, response.StatusOKWithData(data))
}
