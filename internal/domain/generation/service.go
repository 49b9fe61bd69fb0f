package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/domain/account"
	"github.com/ylayali/personalisedcolpage/internal/domain/credit"
	"github.com/ylayali/personalisedcolpage/internal/pkg/imagegen"
	"github.com/ylayali/personalisedcolpage/internal/pkg/imaging"
	"github.com/ylayali/personalisedcolpage/internal/pkg/storage"
)

// AccountProvisioner ensures a ledger account exists for an identity
type AccountProvisioner interface {
	Ensure(ctx context.Context, userID uuid.UUID, email string, signupCredits int) (*account.Account, error)
}

// GenerateRequest carries one coloring page request
type GenerateRequest struct {
	Style     string
	ChildName string
	Photo     io.Reader
	Filename  string
}

// GenerateResult is the user-facing outcome of a generation
type GenerateResult struct {
	Record         *Record
	ResultURL      string
	ThumbURL       string
	AvailableAfter int
}

// Service runs the paid generation pipeline: debit, prompt, provider call,
// post-processing, storage, audit row.
type Service struct {
	credits       credit.Service
	accounts      AccountProvisioner
	records       Repository
	provider      imagegen.Provider
	processor     *imaging.Processor
	store         storage.Storage
	signupCredits int
}

// NewService creates the generation service
func NewService(
	credits credit.Service,
	accounts AccountProvisioner,
	records Repository,
	provider imagegen.Provider,
	processor *imaging.Processor,
	store storage.Storage,
	signupCredits int,
) *Service {
	return &Service{
		credits:       credits,
		accounts:      accounts,
		records:       records,
		provider:      provider,
		processor:     processor,
		store:         store,
		signupCredits: signupCredits,
	}
}

// Generate performs one paid generation. The debit happens exactly once,
// before the provider call; a provider failure releases the debit so the
// user can retry without losing a credit.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, email string, req GenerateRequest) (*GenerateResult, error) {
	if !IsValidStyle(req.Style) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStyle, req.Style)
	}

	prompt, err := BuildPrompt(Style(req.Style), req.ChildName)
	if err != nil {
		return nil, err
	}

	var source *imaging.SourcePhoto
	if req.Photo != nil {
		source, err = s.processor.PrepareSource(req.Photo)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}

	if _, err := s.accounts.Ensure(ctx, userID, email, s.signupCredits); err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}

	granted, availableAfter, err := s.credits.TryConsume(ctx, userID, 1)
	if err != nil {
		return nil, fmt.Errorf("consume credit: %w", err)
	}
	if !granted {
		return nil, ErrInsufficientCredits
	}

	result, err := s.runPipeline(ctx, userID, prompt, req, source)
	if err != nil {
		if relErr := s.credits.Release(ctx, userID, 1); relErr != nil {
			log.Error().Err(relErr).
				Str("user_id", userID.String()).
				Msg("failed to release credit after generation failure")
		}
		return nil, err
	}

	result.AvailableAfter = availableAfter
	return result, nil
}

func (s *Service) runPipeline(ctx context.Context, userID uuid.UUID, prompt string, req GenerateRequest, source *imaging.SourcePhoto) (*GenerateResult, error) {
	// The photo-conversion prompts only work if the provider actually sees
	// the photo; without one the call degrades to text-to-image.
	var sourceData []byte
	if source != nil {
		sourceData = source.Data
	}
	raw, err := s.provider.Generate(ctx, prompt, sourceData)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("style", req.Style).
			Msg("image provider call failed")
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	page, err := s.processor.PrepareResult(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	id := uuid.New()
	rec := &Record{
		ID:          id,
		UserID:      userID,
		Style:       Style(req.Style),
		ChildName:   req.ChildName,
		Prompt:      prompt,
		ResultKey:   fmt.Sprintf("pages/%s/%s.png", userID, id),
		ThumbKey:    fmt.Sprintf("pages/%s/%s_thumb.png", userID, id),
		CreditsUsed: 1,
	}

	if source != nil {
		rec.SourceKey = fmt.Sprintf("photos/%s/%s%s", userID, id, extensionFor(source.ContentType))
		if err := s.store.Put(ctx, rec.SourceKey, bytes.NewReader(source.Data), source.ContentType); err != nil {
			return nil, fmt.Errorf("store source photo: %w", err)
		}
	}
	if err := s.store.Put(ctx, rec.ResultKey, bytes.NewReader(page.Page), "image/png"); err != nil {
		return nil, fmt.Errorf("store page: %w", err)
	}
	if err := s.store.Put(ctx, rec.ThumbKey, bytes.NewReader(page.Thumbnail), "image/png"); err != nil {
		return nil, fmt.Errorf("store thumbnail: %w", err)
	}

	if err := s.records.Create(ctx, rec); err != nil {
		// Artifacts exist but the audit row failed; keep the debit and log
		// for manual reconciliation rather than double-charging on retry.
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("result_key", rec.ResultKey).
			Msg("failed to record generation")
		return nil, fmt.Errorf("record generation: %w", err)
	}

	return &GenerateResult{
		Record:    rec,
		ResultURL: s.store.GetURL(rec.ResultKey),
		ThumbURL:  s.store.GetURL(rec.ThumbKey),
	}, nil
}

// History returns the user's past generations with artifact URLs
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]HistoryItem, error) {
	records, err := s.records.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, HistoryItem{
			Record:    rec,
			ResultURL: s.store.GetURL(rec.ResultKey),
			ThumbURL:  s.store.GetURL(rec.ThumbKey),
		})
	}
	return items, nil
}

// HistoryItem pairs a record with its artifact URLs
type HistoryItem struct {
	Record    Record `json:"record"`
	ResultURL string `json:"result_url"`
	ThumbURL  string `json:"thumb_url"`
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
