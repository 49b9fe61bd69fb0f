package billing

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/middleware"
	"github.com/ylayali/personalisedcolpage/internal/pkg/checkout"
	"github.com/ylayali/personalisedcolpage/internal/pkg/response"
)

const maxWebhookBody = 1 << 20 // 1 MB

// Handler exposes the checkout webhook and the transaction history
type Handler struct {
	reconciler    *Reconciler
	transactions  Repository
	webhookSecret string
}

// NewHandler creates a billing handler
func NewHandler(reconciler *Reconciler, transactions Repository, webhookSecret string) *Handler {
	return &Handler{
		reconciler:    reconciler,
		transactions:  transactions,
		webhookSecret: webhookSecret,
	}
}

// Webhook handles POST /webhooks/checkout. The signature is verified over
// the raw body before anything is parsed; an invalid or missing signature
// is rejected without touching any store.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get(checkout.SignatureHeader)
	if !checkout.VerifySignature(body, signature, h.webhookSecret) {
		log.Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("rejected checkout webhook with invalid signature")
		response.Unauthorized(w, "Invalid signature")
		return
	}

	event, err := checkout.ParseEvent(body)
	if err != nil {
		log.Warn().Err(err).Msg("rejected malformed checkout webhook payload")
		response.BadRequest(w, "Malformed event payload")
		return
	}

	if err := h.reconciler.HandleEvent(r.Context(), event); err != nil {
		log.Error().Err(err).
			Str("event_type", event.EventType).
			Str("order_id", event.OrderID).
			Msg("checkout event reconciliation failed")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"status": "ok"})
}

// ListTransactions handles GET /billing/transactions for the signed-in user
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	transactions, err := h.transactions.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list transactions")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// Routes returns the authenticated billing routes. The webhook endpoint is
// mounted separately because it is signed, not token-authenticated.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/transactions", h.ListTransactions)
	return r
}

// WebhookRoutes returns the signature-authenticated webhook routes
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.Webhook)
	return r
}
