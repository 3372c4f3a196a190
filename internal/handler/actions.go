package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/ratelimit"
)

// Auction action protocol: one mutating entry point taking {action, ...}.
const (
	actionStartAuction = "START_AUCTION"
	actionSold         = "SOLD"
	actionUnsold       = "UNSOLD"
	actionPause        = "PAUSE"
	actionUnpause      = "UNPAUSE"
	actionClear        = "CLEAR"
	actionReset        = "RESET"
	actionJoker        = "JOKER"
	actionVerify       = "VERIFY"
)

type actionRequest struct {
	Action          string `json:"action"`
	Pin             string `json:"pin,omitempty"`
	PlayerID        string `json:"playerId,omitempty"`
	TeamID          string `json:"teamId,omitempty"`
	SoldPrice       int    `json:"soldPrice,omitempty"`
	Message         string `json:"message,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Confirm         bool   `json:"confirm,omitempty"`
}

func (h *Handler) getAuctionState(c *fiber.Ctx) error {
	slug := c.Params("slug")

	authenticated := false
	if creds := extract(c, ""); !creds.Empty() {
		authenticated = h.authenticate(c, slug, "") == nil
	}
	if _, appErr := h.registry.Get(c.Context(), slug, authenticated); appErr != nil {
		return h.writeError(c, appErr)
	}

	state, appErr := h.auction.GetState(c.Context(), slug)
	if appErr != nil {
		return h.writeError(c, appErr)
	}
	return c.JSON(fiber.Map{"auction": state})
}

func (h *Handler) auctionAction(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "invalid request body"))
	}

	// VERIFY is an auth attempt, so it is rate limited instead of requiring
	// an existing credential.
	if req.Action == actionVerify {
		res := h.limiter.Check(c.Context(), ratelimit.ActionAuthAttempt, slug+":"+c.IP())
		setRateLimitHeaders(c, res)
		if !res.Allowed {
			return h.rateLimited(c, res)
		}

		result, appErr := h.registry.VerifyAccess(c.Context(), slug, extract(c, req.Pin))
		if appErr != nil {
			return h.writeError(c, appErr)
		}
		return c.JSON(fiber.Map{
			"masterToken":  result.MasterToken,
			"sessionToken": result.SessionToken,
			"method":       result.Method,
		})
	}

	if appErr := h.authenticate(c, slug, req.Pin); appErr != nil {
		return h.writeError(c, appErr)
	}

	switch req.Action {
	case actionStartAuction:
		return h.respondState(c)(h.auction.StartAuction(c.Context(), slug, req.PlayerID))

	case actionSold:
		result, appErr := h.auction.Sold(c.Context(), slug, req.TeamID, req.SoldPrice)
		if appErr != nil {
			return h.writeError(c, appErr)
		}
		return c.JSON(fiber.Map{
			"auction":          result.State,
			"teamId":           result.TeamID,
			"soldPrice":        result.Price,
			"alreadyProcessed": result.AlreadyProcessed,
		})

	case actionUnsold:
		return h.respondState(c)(h.auction.Unsold(c.Context(), slug))

	case actionJoker:
		return h.respondState(c)(h.auction.Joker(c.Context(), slug, req.TeamID))

	case actionPause:
		return h.respondState(c)(h.auction.Pause(c.Context(), slug, req.Message, req.DurationMinutes))

	case actionUnpause:
		return h.respondState(c)(h.auction.Unpause(c.Context(), slug))

	case actionClear:
		return h.respondState(c)(h.auction.Clear(c.Context(), slug))

	case actionReset:
		return h.respondState(c)(h.auction.Reset(c.Context(), slug, req.Confirm))

	default:
		return h.writeError(c, apperrors.New(apperrors.CodeValidation, "unknown action").
			WithDetail("action", req.Action))
	}
}

func (h *Handler) respondState(c *fiber.Ctx) func(*models.AuctionState, *apperrors.AppError) error {
	return func(state *models.AuctionState, appErr *apperrors.AppError) error {
		if appErr != nil {
			return h.writeError(c, appErr)
		}
		return c.JSON(fiber.Map{"auction": state})
	}
}
