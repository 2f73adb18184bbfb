// Package login реализует HTTP-обработчик входа администратора.
//
// Администратор подтверждает свой Telegram ID из списка допущенных и
// административный ключ; в ответ выдаётся JWT для остальных операций
// административного API.
package login

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/ar2em/subscription-bot/internal/http/response"
	"github.com/ar2em/subscription-bot/internal/lib/jwt"
	"github.com/ar2em/subscription-bot/internal/lib/password"
	"github.com/ar2em/subscription-bot/internal/lib/sl"
)

// Request — структура входных данных для входа администратора.
type Request struct {
	AdminID  int64  `json:"admin_id" validate:"required"`
	AdminKey string `json:"admin_key" validate:"required,min=6"`
}

// Handler обрабатывает HTTP-запросы входа администратора.
type Handler struct {
	log      *slog.Logger
	maker    jwt.Maker
	adminIDs []int64
	keyHash  string
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, maker jwt.Maker, adminIDs []int64, keyHash string) *Handler {
	return &Handler{
		log:      log,
		maker:    maker,
		adminIDs: adminIDs,
		keyHash:  keyHash,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход администратора
// @Description Проверяет Telegram ID администратора и административный ключ, выдаёт JWT.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body Request true "Учетные данные администратора"
// @Success 200 {object} map[string]any "Токен доступа"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if !slices.Contains(h.adminIDs, req.AdminID) {
		log.Warn("login attempt from unknown admin id", slog.Int64("admin_id", req.AdminID))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	if err := password.CompareHash(h.keyHash, req.AdminKey); err != nil {
		log.Warn("invalid admin key", slog.Int64("admin_id", req.AdminID))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	token, err := h.maker.GenerateToken(req.AdminID)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("admin logged in", slog.Int64("admin_id", req.AdminID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"token": token,
	}))
}
