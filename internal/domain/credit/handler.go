package credit

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/middleware"
	"github.com/ylayali/personalisedcolpage/internal/pkg/response"
)

// Handler handles credit HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates credit handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetBalance handles GET /credits
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	available, err := h.service.Available(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Identity seen before its ledger row exists; report an empty balance.
			response.OK(w, map[string]int{"available": 0})
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to get balance")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]int{"available": available})
}

// Routes returns the authenticated credit routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.GetBalance)
	return r
}
