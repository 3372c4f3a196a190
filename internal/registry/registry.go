// Package registry owns tenant configuration records: creation, lifecycle
// (draft, published, expired), credential verification and deletion.
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itbasis/go-clock"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/config"
	"github.com/bidhall/bidhall/internal/credentials"
	"github.com/bidhall/bidhall/internal/events"
	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/storage"
)

// Deleted tournaments linger under a short TTL so accidental deletions can be
// inspected before the store drops them.
const deletedRetention = 7 * 24 * time.Hour

type CreateRequest struct {
	Slug     string
	Name     string
	Pin      string
	Settings *models.TournamentSettings
}

// VerifyResult is what a successful PIN verification hands back: both
// capability tokens plus the tenant record.
type VerifyResult struct {
	Config       *models.TournamentConfig
	MasterToken  string
	SessionToken string
	Method       string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.TournamentConfig, string, *apperrors.AppError)
	Get(ctx context.Context, slug string, authenticated bool) (*models.TournamentConfig, *apperrors.AppError)
	UpdateSettings(ctx context.Context, slug string, settings models.TournamentSettings) (*models.TournamentConfig, *apperrors.AppError)
	SetPublished(ctx context.Context, slug string, published bool) (*models.TournamentConfig, *apperrors.AppError)
	Delete(ctx context.Context, slug string, confirm bool) *apperrors.AppError
	VerifyAccess(ctx context.Context, slug string, creds credentials.Credentials) (*VerifyResult, *apperrors.AppError)
	MarkExpired(ctx context.Context) (int, *apperrors.AppError)
}

type service struct {
	store     storage.Adapter
	creds     *credentials.Service
	chain     *credentials.Chain
	publisher *events.Publisher
	clock     clock.Clock
	logger    *logger.Logger
	cfg       config.AuctionConfig
}

func NewService(
	store storage.Adapter,
	creds *credentials.Service,
	chain *credentials.Chain,
	publisher *events.Publisher,
	clk clock.Clock,
	log *logger.Logger,
	cfg config.AuctionConfig,
) Service {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		store:     store,
		creds:     creds,
		chain:     chain,
		publisher: publisher,
		clock:     clk,
		logger:    log,
		cfg:       cfg,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.TournamentConfig, string, *apperrors.AppError) {
	slug := NormalizeSlug(req.Slug)
	if appErr := ValidateSlug(slug); appErr != nil {
		return nil, "", appErr
	}
	if appErr := ValidatePin(req.Pin); appErr != nil {
		return nil, "", appErr
	}
	if req.Name == "" {
		return nil, "", apperrors.New(apperrors.CodeValidation, "tournament name is required")
	}

	taken, err := s.store.SIsMember(ctx, models.SlugRegistryKey(), slug)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to check slug availability")
	}
	if taken {
		return nil, "", apperrors.New(apperrors.CodeConflict, "slug is already taken").WithDetail("reason", "SLUG_TAKEN")
	}

	now := s.clock.Now().UTC()
	cfg := &models.TournamentConfig{
		Slug:      slug,
		Name:      req.Name,
		PinHash:   s.creds.HashPin(req.Pin, slug),
		Status:    models.TournamentDraft,
		Settings:  s.settingsOrDefault(req.Settings),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.TournamentTTL),
	}

	if appErr := s.save(ctx, cfg); appErr != nil {
		return nil, "", appErr
	}
	if err := s.store.SAdd(ctx, models.SlugRegistryKey(), slug); err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to register slug")
	}

	// Fresh tenants start with an empty IDLE auction state.
	state, err := json.Marshal(models.NewAuctionState())
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal auction state")
	}
	if err := s.store.Set(ctx, models.AuctionKey(slug), string(state), s.keyTTL(cfg)); err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to initialize auction state")
	}

	masterToken, appErr := s.creds.IssueMasterToken(slug)
	if appErr != nil {
		return nil, "", appErr
	}

	s.publisher.Publish(ctx, events.SubjectTournamentCreated, slug, map[string]any{"name": cfg.Name})
	s.logger.Info("tournament created", "slug", slug)

	return cfg, masterToken, nil
}

func (s *service) Get(ctx context.Context, slug string, authenticated bool) (*models.TournamentConfig, *apperrors.AppError) {
	cfg, appErr := s.load(ctx, NormalizeSlug(slug))
	if appErr != nil {
		return nil, appErr
	}

	if !cfg.Published && !authenticated {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "tournament is not published")
	}

	return cfg, nil
}

func (s *service) UpdateSettings(ctx context.Context, slug string, settings models.TournamentSettings) (*models.TournamentConfig, *apperrors.AppError) {
	cfg, appErr := s.load(ctx, NormalizeSlug(slug))
	if appErr != nil {
		return nil, appErr
	}

	if settings.TeamSize <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "team size must be positive")
	}
	if settings.BidIncrement <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "bid increment must be positive")
	}

	cfg.Settings = settings
	cfg.UpdatedAt = s.clock.Now().UTC()
	if appErr := s.save(ctx, cfg); appErr != nil {
		return nil, appErr
	}

	return cfg, nil
}

func (s *service) SetPublished(ctx context.Context, slug string, published bool) (*models.TournamentConfig, *apperrors.AppError) {
	cfg, appErr := s.load(ctx, NormalizeSlug(slug))
	if appErr != nil {
		return nil, appErr
	}

	cfg.Published = published
	if published {
		cfg.Status = models.TournamentPublished
	} else {
		cfg.Status = models.TournamentDraft
	}
	cfg.UpdatedAt = s.clock.Now().UTC()

	if appErr := s.save(ctx, cfg); appErr != nil {
		return nil, appErr
	}

	if published {
		s.publisher.Publish(ctx, events.SubjectTournamentPublished, cfg.Slug, nil)
	}

	return cfg, nil
}

// Delete soft-deletes the tenant: the slug is freed immediately, while the
// config and auction state linger under a retention TTL.
func (s *service) Delete(ctx context.Context, slug string, confirm bool) *apperrors.AppError {
	if !confirm {
		return apperrors.New(apperrors.CodeConfirmationRequired, "deletion requires explicit confirmation")
	}

	slug = NormalizeSlug(slug)
	cfg, appErr := s.load(ctx, slug)
	if appErr != nil {
		return appErr
	}

	cfg.Status = models.TournamentExpired
	cfg.Published = false
	cfg.UpdatedAt = s.clock.Now().UTC()

	data, err := json.Marshal(cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal tournament")
	}
	if err := s.store.Set(ctx, models.TournamentKey(slug), string(data), deletedRetention); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to mark tournament deleted")
	}
	if err := s.store.Expire(ctx, models.AuctionKey(slug), deletedRetention); err != nil {
		s.logger.Warn("failed to shorten auction state TTL", "slug", slug, "error", err)
	}
	if err := s.store.SRem(ctx, models.SlugRegistryKey(), slug); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to unregister slug")
	}

	s.publisher.Publish(ctx, events.SubjectTournamentDeleted, slug, nil)
	s.logger.Info("tournament deleted", "slug", slug)

	return nil
}

// VerifyAccess is the auth endpoint the rate limiter guards: any valid
// credential yields a master and a fresh session token.
func (s *service) VerifyAccess(ctx context.Context, slug string, creds credentials.Credentials) (*VerifyResult, *apperrors.AppError) {
	cfg, appErr := s.load(ctx, NormalizeSlug(slug))
	if appErr != nil {
		return nil, appErr
	}

	method, appErr := s.chain.Authenticate(cfg, creds)
	if appErr != nil {
		return nil, appErr
	}

	masterToken, appErr := s.creds.IssueMasterToken(cfg.Slug)
	if appErr != nil {
		return nil, appErr
	}
	sessionToken, appErr := s.creds.IssueSessionToken(ctx, cfg.Slug)
	if appErr != nil {
		return nil, appErr
	}

	return &VerifyResult{
		Config:       cfg,
		MasterToken:  masterToken,
		SessionToken: sessionToken,
		Method:       method,
	}, nil
}

// MarkExpired sweeps the registry and flips tournaments past their expiry to
// the expired status. Returns how many were flipped.
func (s *service) MarkExpired(ctx context.Context) (int, *apperrors.AppError) {
	slugs, err := s.store.SMembers(ctx, models.SlugRegistryKey())
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list tournaments")
	}

	now := s.clock.Now().UTC()
	expired := 0
	for _, slug := range slugs {
		cfg, appErr := s.load(ctx, slug)
		if appErr != nil {
			// Key TTL may have dropped the record already; just unregister.
			if appErr.Code == apperrors.CodeNotFound {
				if err := s.store.SRem(ctx, models.SlugRegistryKey(), slug); err != nil {
					s.logger.Warn("failed to unregister vanished slug", "slug", slug, "error", err)
				}
			}
			continue
		}
		if cfg.Status == models.TournamentExpired || !cfg.IsExpired(now) {
			continue
		}

		cfg.Status = models.TournamentExpired
		cfg.Published = false
		cfg.UpdatedAt = now
		if appErr := s.save(ctx, cfg); appErr != nil {
			s.logger.Error("failed to mark tournament expired", "slug", slug, "error", appErr)
			continue
		}
		expired++
	}

	return expired, nil
}

func (s *service) settingsOrDefault(settings *models.TournamentSettings) models.TournamentSettings {
	if settings != nil {
		return *settings
	}
	return models.TournamentSettings{
		TeamSize:     s.cfg.DefaultTeamSize,
		BidIncrement: s.cfg.DefaultBidIncrement,
		BasePrices:   map[string]int{"A": 100, "B": 50, "C": 20},
		JokerEnabled: true,
	}
}

func (s *service) keyTTL(cfg *models.TournamentConfig) time.Duration {
	// Keys outlive the logical expiry so the sweep can observe and report the
	// expired state before the store drops it.
	return cfg.ExpiresAt.Sub(s.clock.Now()) + deletedRetention
}

func (s *service) load(ctx context.Context, slug string) (*models.TournamentConfig, *apperrors.AppError) {
	data, err := s.store.Get(ctx, models.TournamentKey(slug))
	if err == storage.ErrNil {
		return nil, apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to load tournament")
	}

	var cfg models.TournamentConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to unmarshal tournament")
	}
	return &cfg, nil
}

func (s *service) save(ctx context.Context, cfg *models.TournamentConfig) *apperrors.AppError {
	data, err := json.Marshal(cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal tournament")
	}
	if err := s.store.Set(ctx, models.TournamentKey(cfg.Slug), string(data), s.keyTTL(cfg)); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to save tournament")
	}
	return nil
}
