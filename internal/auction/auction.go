// Package auction is the per-tenant auction state machine. All state for a
// tenant lives in one JSON blob in the store; every operation is a stateless
// load-validate-mutate-save pass over it, so any number of handler processes
// can run against the same store.
//
// The SOLD idempotency check is a read of status and current player before
// any write. It is deliberately not atomic against a second request arriving
// between the read and the write: auction actions come from a single human
// operator, and that race window is accepted rather than paying for a
// store-side conditional write.
package auction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itbasis/go-clock"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/budget"
	"github.com/bidhall/bidhall/internal/catalog"
	"github.com/bidhall/bidhall/internal/events"
	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/storage"
)

// ConfigSource resolves a tenant's configuration. Implemented by the
// registry service.
type ConfigSource interface {
	Get(ctx context.Context, slug string, authenticated bool) (*models.TournamentConfig, *apperrors.AppError)
}

// SoldResult reports the outcome of a SOLD action. AlreadyProcessed is set
// when the request duplicated a completed sale; TeamID and Price then carry
// the recorded outcome, not the request's arguments.
type SoldResult struct {
	State            *models.AuctionState
	TeamID           string
	Price            int
	AlreadyProcessed bool
}

type Service interface {
	GetState(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError)
	StartAuction(ctx context.Context, slug, playerID string) (*models.AuctionState, *apperrors.AppError)
	Sold(ctx context.Context, slug, teamID string, price int) (*SoldResult, *apperrors.AppError)
	Unsold(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError)
	Joker(ctx context.Context, slug, teamID string) (*models.AuctionState, *apperrors.AppError)
	Pause(ctx context.Context, slug, message string, durationMinutes int) (*models.AuctionState, *apperrors.AppError)
	Unpause(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError)
	Clear(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError)
	Reset(ctx context.Context, slug string, confirm bool) (*models.AuctionState, *apperrors.AppError)
	MaxBid(ctx context.Context, slug, teamID string) (int, *apperrors.AppError)
}

type service struct {
	store     storage.Adapter
	configs   ConfigSource
	catalog   catalog.Provider
	publisher *events.Publisher
	clock     clock.Clock
	logger    *logger.Logger
}

func NewService(
	store storage.Adapter,
	configs ConfigSource,
	cat catalog.Provider,
	publisher *events.Publisher,
	clk clock.Clock,
	log *logger.Logger,
) Service {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &service{
		store:     store,
		configs:   configs,
		catalog:   cat,
		publisher: publisher,
		clock:     clk,
		logger:    log,
	}
}

func (s *service) GetState(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError) {
	return s.load(ctx, slug)
}

func (s *service) StartAuction(ctx context.Context, slug, playerID string) (*models.AuctionState, *apperrors.AppError) {
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status != models.AuctionIdle && state.Status != models.AuctionSold {
		return nil, errInvalidState("START_AUCTION", state.Status)
	}

	player, ok := s.catalog.Player(playerID)
	if !ok || !player.Available || state.IsSold(playerID) {
		return nil, errPlayerNotInPool(playerID)
	}

	// A previously unsold player re-enters the pool when put up again.
	delete(state.UnsoldPlayers, playerID)

	state.Status = models.AuctionLive
	state.CurrentPlayerID = playerID
	state.SoldToTeamID = ""

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionStarted, slug, map[string]any{"player": playerID})
	return state, nil
}

func (s *service) Sold(ctx context.Context, slug, teamID string, price int) (*SoldResult, *apperrors.AppError) {
	cfg, appErr := s.configs.Get(ctx, slug, true)
	if appErr != nil {
		return nil, appErr
	}

	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	// Idempotency: a duplicate submission while the sale is already recorded
	// returns the first sale's outcome, whatever team/price the duplicate
	// carried.
	if state.Status == models.AuctionSold && state.CurrentPlayerID != "" {
		return &SoldResult{
			State:            state,
			TeamID:           state.SoldToTeamID,
			Price:            state.SoldPrices[state.CurrentPlayerID],
			AlreadyProcessed: true,
		}, nil
	}

	if state.Status != models.AuctionLive {
		return nil, errInvalidState("SOLD", state.Status)
	}

	player, ok := s.catalog.Player(state.CurrentPlayerID)
	if !ok {
		return nil, errPlayerNotInPool(state.CurrentPlayerID)
	}
	team, ok := s.catalog.Team(teamID)
	if !ok {
		return nil, errTeamNotFound(teamID)
	}

	settings := cfg.Settings
	basePrice := settings.BasePrices[player.Category]

	if appErr := s.validateSale(state, settings, player, team, price, basePrice); appErr != nil {
		return nil, appErr
	}

	state.Rosters[teamID] = append(state.Rosters[teamID], player.ID)
	state.SoldPlayers[player.ID] = struct{}{}
	state.SoldPrices[player.ID] = price
	state.TeamSpent[teamID] += price
	state.Status = models.AuctionSold
	state.SoldToTeamID = teamID

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionSold, slug, map[string]any{
		"player": player.ID,
		"team":   teamID,
		"price":  price,
	})
	s.logger.Info("player sold", "slug", slug, "player", player.ID, "team", teamID, "price", price)

	return &SoldResult{State: state, TeamID: teamID, Price: price}, nil
}

func (s *service) validateSale(
	state *models.AuctionState,
	settings models.TournamentSettings,
	player *models.Player,
	team *models.Team,
	price, basePrice int,
) *apperrors.AppError {
	if settings.BidIncrement <= 0 || price <= 0 || price%settings.BidIncrement != 0 {
		return errBidNotIncrement(price, settings.BidIncrement)
	}
	if price < basePrice {
		return errBidBelowBase(price, basePrice)
	}
	if state.RosterSize(team.ID) >= settings.TeamSize {
		return errRosterFull(team.ID, settings.TeamSize)
	}

	// A recorded joker is a hard claim: only the claiming team may buy this
	// player, and only at base price.
	for jokerTeam, jokerPlayer := range state.UsedJokers {
		if jokerPlayer != player.ID {
			continue
		}
		if jokerTeam != team.ID {
			return errJokerClaim(jokerTeam)
		}
		if price != basePrice {
			return errJokerPrice(basePrice)
		}
	}

	if settings.ClubQuota > 0 && player.Club != "" {
		fromClub := 0
		for _, id := range state.Rosters[team.ID] {
			if p, ok := s.catalog.Player(id); ok && p.Club == player.Club {
				fromClub++
			}
		}
		if fromClub >= settings.ClubQuota {
			return errClubQuota(player.Club, settings.ClubQuota)
		}
	}

	max := s.maxBid(state, settings, team, player.ID)
	if price > max {
		return errBidOverMax(price, max)
	}

	return nil
}

func (s *service) Unsold(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError) {
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status != models.AuctionLive {
		return nil, errInvalidState("UNSOLD", state.Status)
	}

	playerID := state.CurrentPlayerID
	state.UnsoldPlayers[playerID] = struct{}{}
	state.CurrentPlayerID = ""
	state.SoldToTeamID = ""
	state.Status = models.AuctionIdle

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionUnsold, slug, map[string]any{"player": playerID})
	return state, nil
}

func (s *service) Joker(ctx context.Context, slug, teamID string) (*models.AuctionState, *apperrors.AppError) {
	cfg, appErr := s.configs.Get(ctx, slug, true)
	if appErr != nil {
		return nil, appErr
	}
	if !cfg.Settings.JokerEnabled {
		return nil, apperrors.New(apperrors.CodeValidation, "joker cards are disabled for this tournament")
	}

	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status != models.AuctionLive {
		return nil, errInvalidState("JOKER", state.Status)
	}
	if _, ok := s.catalog.Team(teamID); !ok {
		return nil, errTeamNotFound(teamID)
	}
	if _, used := state.UsedJokers[teamID]; used {
		return nil, errJokerUsed(teamID)
	}
	for jokerTeam, jokerPlayer := range state.UsedJokers {
		if jokerPlayer == state.CurrentPlayerID {
			return nil, errJokerClaim(jokerTeam)
		}
	}

	state.UsedJokers[teamID] = state.CurrentPlayerID

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	return state, nil
}

func (s *service) Pause(ctx context.Context, slug, message string, durationMinutes int) (*models.AuctionState, *apperrors.AppError) {
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status == models.AuctionPaused {
		return nil, errInvalidState("PAUSE", state.Status)
	}

	state.ResumeStatus = state.Status
	state.Status = models.AuctionPaused
	state.PauseMessage = message
	state.PauseUntil = nil
	if durationMinutes > 0 {
		until := s.clock.Now().UTC().Add(time.Duration(durationMinutes) * time.Minute)
		state.PauseUntil = &until
	}

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionPaused, slug, map[string]any{"message": message})
	return state, nil
}

func (s *service) Unpause(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError) {
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status != models.AuctionPaused {
		return nil, errInvalidState("UNPAUSE", state.Status)
	}

	state.Status = state.ResumeStatus
	state.ResumeStatus = models.AuctionIdle
	state.PauseMessage = ""
	state.PauseUntil = nil

	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionResumed, slug, nil)
	return state, nil
}

// Clear returns a completed sale to IDLE without touching recorded sale data.
func (s *service) Clear(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError) {
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return nil, appErr
	}

	if state.Status != models.AuctionSold {
		return nil, errInvalidState("CLEAR", state.Status)
	}

	state.Status = models.AuctionIdle
	state.CurrentPlayerID = ""
	state.SoldToTeamID = ""

	return state, s.save(ctx, slug, state)
}

func (s *service) Reset(ctx context.Context, slug string, confirm bool) (*models.AuctionState, *apperrors.AppError) {
	if !confirm {
		return nil, apperrors.New(apperrors.CodeConfirmationRequired, "reset requires explicit confirmation")
	}

	// Load first so resetting a missing tenant still reports not found.
	if _, appErr := s.load(ctx, slug); appErr != nil {
		return nil, appErr
	}

	state := models.NewAuctionState()
	if appErr := s.save(ctx, slug, state); appErr != nil {
		return nil, appErr
	}

	s.publisher.Publish(ctx, events.SubjectAuctionReset, slug, nil)
	s.logger.Warn("auction reset", "slug", slug)

	return state, nil
}

// MaxBid is the advisory read the UI shows next to each team.
func (s *service) MaxBid(ctx context.Context, slug, teamID string) (int, *apperrors.AppError) {
	cfg, appErr := s.configs.Get(ctx, slug, true)
	if appErr != nil {
		return 0, appErr
	}
	state, appErr := s.load(ctx, slug)
	if appErr != nil {
		return 0, appErr
	}
	team, ok := s.catalog.Team(teamID)
	if !ok {
		return 0, errTeamNotFound(teamID)
	}
	return s.maxBid(state, cfg.Settings, team, state.CurrentPlayerID), nil
}

// maxBid computes the ceiling reserving budget for the team's remaining
// slots, priced at the cheapest category still present in the pool.
func (s *service) maxBid(state *models.AuctionState, settings models.TournamentSettings, team *models.Team, currentPlayerID string) int {
	playersNeeded := settings.TeamSize - state.RosterSize(team.ID)

	var remainingCategories []string
	for _, p := range s.catalog.Players() {
		if !p.Available || state.IsSold(p.ID) || p.ID == currentPlayerID {
			continue
		}
		remainingCategories = append(remainingCategories, p.Category)
	}

	cheapest := budget.CheapestBase(settings.BasePrices, remainingCategories)
	return budget.MaxBid(team.Budget, state.TeamSpent[team.ID], playersNeeded, cheapest)
}

func (s *service) load(ctx context.Context, slug string) (*models.AuctionState, *apperrors.AppError) {
	data, err := s.store.Get(ctx, models.AuctionKey(slug))
	if err == storage.ErrNil {
		return nil, apperrors.New(apperrors.CodeNotFound, "auction not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to load auction state")
	}

	var state models.AuctionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to unmarshal auction state")
	}
	if state.Rosters == nil {
		state.Rosters = make(map[string][]string)
	}
	if state.SoldPlayers == nil {
		state.SoldPlayers = make(map[string]struct{})
	}
	if state.SoldPrices == nil {
		state.SoldPrices = make(map[string]int)
	}
	if state.TeamSpent == nil {
		state.TeamSpent = make(map[string]int)
	}
	if state.UnsoldPlayers == nil {
		state.UnsoldPlayers = make(map[string]struct{})
	}
	if state.UsedJokers == nil {
		state.UsedJokers = make(map[string]string)
	}
	return &state, nil
}

func (s *service) save(ctx context.Context, slug string, state *models.AuctionState) *apperrors.AppError {
	state.LastUpdate = s.clock.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal auction state")
	}

	// Preserve whatever TTL the key carries; 0 would clear it.
	ttl, ttlErr := s.store.TTL(ctx, models.AuctionKey(slug))
	if ttlErr != nil || ttl < 0 {
		ttl = 0
	}
	if err := s.store.Set(ctx, models.AuctionKey(slug), string(data), ttl); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to save auction state")
	}
	return nil
}
