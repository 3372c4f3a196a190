package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/ratelimit"
	"github.com/bidhall/bidhall/internal/registry"
)

type createTournamentRequest struct {
	Slug     string                     `json:"slug"`
	Name     string                     `json:"name"`
	Pin      string                     `json:"pin"`
	Settings *models.TournamentSettings `json:"settings,omitempty"`
}

type updateSettingsRequest struct {
	Pin      string                    `json:"pin"`
	Settings models.TournamentSettings `json:"settings"`
}

type publishRequest struct {
	Pin       string `json:"pin"`
	Published bool   `json:"published"`
}

type deleteRequest struct {
	Pin     string `json:"pin"`
	Confirm bool   `json:"confirm"`
}

type verifyRequest struct {
	Pin string `json:"pin"`
}

func (h *Handler) createTournament(c *fiber.Ctx) error {
	res := h.limiter.Check(c.Context(), ratelimit.ActionTournamentCreate, c.IP())
	setRateLimitHeaders(c, res)
	if !res.Allowed {
		return h.rateLimited(c, res)
	}

	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}

	cfg, masterToken, appErr := h.registry.Create(c.Context(), registry.CreateRequest{
		Slug:     req.Slug,
		Name:     req.Name,
		Pin:      req.Pin,
		Settings: req.Settings,
	})
	if appErr != nil {
		return h.writeError(c, appErr)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"tournament":  publicConfig(cfg),
		"masterToken": masterToken,
	})
}

func (h *Handler) getTournament(c *fiber.Ctx) error {
	slug := c.Params("slug")

	// Readers of unpublished tournaments must present a credential; probe the
	// chain without failing the request when nothing is attached.
	authenticated := false
	if creds := extract(c, ""); !creds.Empty() {
		authenticated = h.authenticate(c, slug, "") == nil
	}

	cfg, appErr := h.registry.Get(c.Context(), slug, authenticated)
	if appErr != nil {
		return h.writeError(c, appErr)
	}

	return c.JSON(fiber.Map{"tournament": publicConfig(cfg)})
}

func (h *Handler) updateSettings(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}
	if appErr := h.authenticate(c, slug, req.Pin); appErr != nil {
		return h.writeError(c, appErr)
	}

	cfg, appErr := h.registry.UpdateSettings(c.Context(), slug, req.Settings)
	if appErr != nil {
		return h.writeError(c, appErr)
	}
	return c.JSON(fiber.Map{"tournament": publicConfig(cfg)})
}

func (h *Handler) setPublished(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}
	if appErr := h.authenticate(c, slug, req.Pin); appErr != nil {
		return h.writeError(c, appErr)
	}

	cfg, appErr := h.registry.SetPublished(c.Context(), slug, req.Published)
	if appErr != nil {
		return h.writeError(c, appErr)
	}
	return c.JSON(fiber.Map{"tournament": publicConfig(cfg)})
}

func (h *Handler) deleteTournament(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}
	if appErr := h.authenticate(c, slug, req.Pin); appErr != nil {
		return h.writeError(c, appErr)
	}

	if appErr := h.registry.Delete(c.Context(), slug, req.Confirm); appErr != nil {
		return h.writeError(c, appErr)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) verifyAccess(c *fiber.Ctx) error {
	slug := c.Params("slug")

	res := h.limiter.Check(c.Context(), ratelimit.ActionAuthAttempt, slug+":"+c.IP())
	setRateLimitHeaders(c, res)
	if !res.Allowed {
		return h.rateLimited(c, res)
	}

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}

	result, appErr := h.registry.VerifyAccess(c.Context(), slug, extract(c, req.Pin))
	if appErr != nil {
		return h.writeError(c, appErr)
	}

	return c.JSON(fiber.Map{
		"tournament":   publicConfig(result.Config),
		"masterToken":  result.MasterToken,
		"sessionToken": result.SessionToken,
		"method":       result.Method,
	})
}

// publicConfig strips the PIN hash before a config leaves the service.
func publicConfig(cfg *models.TournamentConfig) fiber.Map {
	return fiber.Map{
		"slug":       cfg.Slug,
		"name":       cfg.Name,
		"status":     cfg.Status,
		"published":  cfg.Published,
		"settings":   cfg.Settings,
		"created_at": cfg.CreatedAt,
		"updated_at": cfg.UpdatedAt,
		"expires_at": cfg.ExpiresAt,
	}
}
