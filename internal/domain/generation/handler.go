package generation

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/middleware"
	"github.com/ylayali/personalisedcolpage/internal/pkg/imaging"
	"github.com/ylayali/personalisedcolpage/internal/pkg/response"
	"github.com/ylayali/personalisedcolpage/internal/pkg/validator"
)

// Handler exposes the generation endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a generation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /generations. Multipart form: style (required),
// child_name (optional), photo (optional image file).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Authentication required")
		return
	}
	email := middleware.GetEmail(r.Context())

	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	form := CreateForm{
		Style:     r.FormValue("style"),
		ChildName: r.FormValue("child_name"),
	}
	if errs := validator.Validate(form); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	req := GenerateRequest{
		Style:     form.Style,
		ChildName: form.ChildName,
	}

	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		if !imaging.ValidateType(header.Filename) {
			response.BadRequest(w, "Unsupported image type")
			return
		}
		if !imaging.ValidateSize(header.Size, imaging.MaxUploadSize) {
			response.BadRequest(w, "Image exceeds the 10MB limit")
			return
		}
		req.Photo = io.Reader(file)
		req.Filename = header.Filename
	}

	result, err := h.service.Generate(r.Context(), userID, email, req)
	if err != nil {
		h.writeGenerateError(w, userID.String(), err)
		return
	}

	response.Created(w, map[string]interface{}{
		"generation":      result.Record,
		"result_url":      result.ResultURL,
		"thumb_url":       result.ThumbURL,
		"available_after": result.AvailableAfter,
	})
}

// List handles GET /generations
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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

	items, err := h.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to list generations")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"generations": items,
		"limit":       limit,
		"offset":      offset,
	})
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		response.Error(w, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS",
			"Not enough credits, please purchase more to continue")
	case errors.Is(err, ErrInvalidStyle):
		response.BadRequest(w, "Unknown style")
	case errors.Is(err, ErrInvalidImage):
		response.BadRequest(w, "Could not read the uploaded photo")
	case errors.Is(err, ErrProviderFailed):
		response.Error(w, http.StatusBadGateway, "GENERATION_FAILED",
			"Image generation failed, your credit was not spent, please retry")
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("generation failed")
		response.InternalError(w)
	}
}

// Routes returns the authenticated generation routes. rateLimit guards the
// paid POST; history reads are unthrottled.
func (h *Handler) Routes(authMiddleware, rateLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.With(rateLimit).Post("/", h.Create)
	r.Get("/", h.List)
	return r
}
