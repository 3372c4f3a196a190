// Package handler is the thin HTTP layer over the auction engine. It only
// extracts credentials, applies rate limits and translates AppErrors; all
// business rules live in the services it calls.
package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/auction"
	"github.com/bidhall/bidhall/internal/credentials"
	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/ratelimit"
	"github.com/bidhall/bidhall/internal/registry"
)

type Handler struct {
	registry registry.Service
	auction  auction.Service
	chain    *credentials.Chain
	limiter  *ratelimit.Limiter
	logger   *logger.Logger
}

func New(reg registry.Service, auc auction.Service, chain *credentials.Chain, limiter *ratelimit.Limiter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		registry: reg,
		auction:  auc,
		chain:    chain,
		limiter:  limiter,
		logger:   log,
	}
}

func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.health)

	app.Post("/tournaments", h.createTournament)
	app.Get("/tournaments/:slug", h.getTournament)
	app.Patch("/tournaments/:slug/settings", h.updateSettings)
	app.Post("/tournaments/:slug/publish", h.setPublished)
	app.Delete("/tournaments/:slug", h.deleteTournament)
	app.Post("/tournaments/:slug/verify", h.verifyAccess)

	app.Get("/tournaments/:slug/auction", h.getAuctionState)
	app.Post("/tournaments/:slug/auction", h.auctionAction)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// extract pulls the three credential carriers off the request. The PIN rides
// in the JSON body, so callers pass the already-parsed value.
func extract(c *fiber.Ctx, bodyPIN string) credentials.Credentials {
	return credentials.Extract(
		c.Get(credentials.HeaderAuthorization),
		c.Get(credentials.HeaderMasterToken),
		bodyPIN,
	)
}

// authenticate resolves the tenant and runs the credential chain. It never
// reveals whether an unpublished tenant exists to unauthenticated callers.
func (h *Handler) authenticate(c *fiber.Ctx, slug, bodyPIN string) *apperrors.AppError {
	cfg, appErr := h.registry.Get(c.Context(), slug, true)
	if appErr != nil {
		return appErr
	}
	_, appErr = h.chain.Authenticate(cfg, extract(c, bodyPIN))
	return appErr
}

func (h *Handler) writeError(c *fiber.Ctx, err *apperrors.AppError) error {
	status := apperrors.ToHTTPStatus(err)
	code, message, details := apperrors.ClientPayload(err)

	if err.Code == apperrors.CodeInternal {
		h.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	body := fiber.Map{"error": fiber.Map{"code": code, "message": message}}
	if len(details) > 0 {
		body["error"].(fiber.Map)["details"] = details
	}
	return c.Status(status).JSON(body)
}

// setRateLimitHeaders exposes the window state on every rate-checked
// response, allowed or not.
func setRateLimitHeaders(c *fiber.Ctx, res ratelimit.Result) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func (h *Handler) rateLimited(c *fiber.Ctx, res ratelimit.Result) error {
	retryAfter := int(res.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))
	return h.writeError(c, apperrors.New(apperrors.CodeRateLimited, "rate limit exceeded").
		WithDetail("retryAfter", retryAfter))
}
