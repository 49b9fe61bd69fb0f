package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/middleware"
	"github.com/ylayali/personalisedcolpage/internal/pkg/response"
)

// Handler handles account HTTP requests
type Handler struct {
	repo          Repository
	signupCredits int
}

// NewHandler creates account handler
func NewHandler(repo Repository, signupCredits int) *Handler {
	return &Handler{repo: repo, signupCredits: signupCredits}
}

// AccountResponse is the API shape of an account
type AccountResponse struct {
	UserID             string `json:"user_id"`
	Email              string `json:"email"`
	TotalCredits       int    `json:"total_credits"`
	UsedCredits        int    `json:"used_credits"`
	Available          int    `json:"available"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionType   string `json:"subscription_type,omitempty"`
}

func toResponse(a *Account) AccountResponse {
	out := AccountResponse{
		UserID:             a.UserID.String(),
		Email:              a.Email,
		TotalCredits:       a.TotalCredits,
		UsedCredits:        a.UsedCredits,
		Available:          a.Available(),
		SubscriptionStatus: string(a.SubscriptionStatus),
	}
	if a.SubscriptionType.Valid {
		out.SubscriptionType = a.SubscriptionType.String
	}
	return out
}

// Get handles GET /account. The ledger row is provisioned on first sight of
// a new identity, so this never 404s for an authenticated user.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	email := middleware.GetEmail(r.Context())

	acct, err := h.repo.Ensure(r.Context(), userID, email, h.signupCredits)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load account")
		response.InternalError(w)
		return
	}

	response.OK(w, toResponse(acct))
}

// Routes returns account router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Get)
	})
	return r
}
