package auction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/catalog"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/storage/storagetest"
)

type stubConfigSource struct {
	cfg *models.TournamentConfig
}

func (s *stubConfigSource) Get(context.Context, string, bool) (*models.TournamentConfig, *apperrors.AppError) {
	return s.cfg, nil
}

func testCatalog() *catalog.Static {
	teams := []models.Team{
		{ID: "t1", Name: "Reds", Budget: 1000},
		{ID: "t2", Name: "Blues", Budget: 500},
	}
	players := []models.Player{
		{ID: "p1", Name: "Alpha", Category: "A", Club: "north", Available: true},
		{ID: "p2", Name: "Bravo", Category: "B", Club: "north", Available: true},
		{ID: "p3", Name: "Charlie", Category: "C", Club: "south", Available: true},
		{ID: "p4", Name: "Delta", Category: "C", Club: "south", Available: true},
		{ID: "p5", Name: "Echo", Category: "C", Club: "north", Available: false},
	}
	return catalog.NewStatic(teams, players)
}

type testEnv struct {
	svc   Service
	store *storagetest.Store
	clock *clock.Mock
	cfg   *models.TournamentConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock := clock.NewMock()
	store := storagetest.New(mock)

	cfg := &models.TournamentConfig{
		Slug:   "cup",
		Status: models.TournamentPublished,
		Settings: models.TournamentSettings{
			TeamSize:     3,
			BidIncrement: 5,
			BasePrices:   map[string]int{"A": 100, "B": 50, "C": 20},
			JokerEnabled: true,
		},
	}

	state, err := json.Marshal(models.NewAuctionState())
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), models.AuctionKey("cup"), string(state), 0))

	svc := NewService(store, &stubConfigSource{cfg: cfg}, testCatalog(), nil, mock, nil)
	return &testEnv{svc: svc, store: store, clock: mock, cfg: cfg}
}

func TestStartAuction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	state, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionLive, state.Status)
	assert.Equal(t, "p1", state.CurrentPlayerID)
	assert.Empty(t, state.SoldToTeamID)

	// A player is already up.
	_, appErr = env.svc.StartAuction(ctx, "cup", "p2")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestStartAuctionPoolChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.StartAuction(ctx, "cup", "ghost")
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	// Unavailable players are not in the pool.
	_, appErr = env.svc.StartAuction(ctx, "cup", "p5")
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	// Sold players are not in the pool either.
	env.sell(t, "p1", "t1", 100)
	env.clear(t)
	_, appErr = env.svc.StartAuction(ctx, "cup", "p1")
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func (e *testEnv) sell(t *testing.T, playerID, teamID string, price int) *SoldResult {
	t.Helper()
	ctx := context.Background()
	_, appErr := e.svc.StartAuction(ctx, "cup", playerID)
	require.Nil(t, appErr)
	res, appErr := e.svc.Sold(ctx, "cup", teamID, price)
	require.Nil(t, appErr)
	return res
}

func (e *testEnv) clear(t *testing.T) {
	t.Helper()
	_, appErr := e.svc.Clear(context.Background(), "cup")
	require.Nil(t, appErr)
}

func TestSoldHappyPath(t *testing.T) {
	env := newTestEnv(t)

	res := env.sell(t, "p1", "t1", 150)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, "t1", res.TeamID)
	assert.Equal(t, 150, res.Price)

	state := res.State
	assert.Equal(t, models.AuctionSold, state.Status)
	assert.Equal(t, "t1", state.SoldToTeamID)
	assert.Equal(t, []string{"p1"}, state.Rosters["t1"])
	assert.Equal(t, 150, state.SoldPrices["p1"])
	assert.Equal(t, 150, state.TeamSpent["t1"])
	assert.True(t, state.IsSold("p1"))
}

func TestSoldIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.sell(t, "p1", "t1", 150)

	// A duplicate with different arguments returns the recorded outcome.
	second, appErr := env.svc.Sold(ctx, "cup", "t2", 300)
	require.Nil(t, appErr)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.TeamID, second.TeamID)
	assert.Equal(t, first.Price, second.Price)

	state := second.State
	assert.Equal(t, []string{"p1"}, state.Rosters["t1"])
	assert.Empty(t, state.Rosters["t2"])
	assert.Equal(t, 150, state.TeamSpent["t1"])
	assert.Zero(t, state.TeamSpent["t2"])
}

func TestSoldValidations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.Sold(ctx, "cup", "t1", 100)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code, "SOLD from IDLE")

	_, startErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, startErr)

	tests := map[string]struct {
		teamID string
		price  int
	}{
		"below base price":       {teamID: "t1", price: 50},
		"not increment multiple": {teamID: "t1", price: 103},
		"zero price":             {teamID: "t1", price: 0},
		"negative price":         {teamID: "t1", price: -5},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, appErr := env.svc.Sold(ctx, "cup", tc.teamID, tc.price)
			require.NotNil(t, appErr)
			assert.Equal(t, apperrors.CodeValidation, appErr.Code)
		})
	}

	_, appErr = env.svc.Sold(ctx, "cup", "ghost", 100)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestSoldRespectsMaxBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// t2 has 500. Needing 3 players with cheapest base 20, the ceiling for
	// the first buy is 500 - 2*20 = 460.
	_, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)

	_, appErr = env.svc.Sold(ctx, "cup", "t2", 465)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	res, appErr := env.svc.Sold(ctx, "cup", "t2", 460)
	require.Nil(t, appErr)
	assert.Equal(t, 460, res.Price)
}

func TestSoldRosterFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sell(t, "p1", "t1", 100)
	env.clear(t)
	env.sell(t, "p2", "t1", 50)
	env.clear(t)
	env.sell(t, "p3", "t1", 20)
	env.clear(t)

	_, appErr := env.svc.StartAuction(ctx, "cup", "p4")
	require.Nil(t, appErr)
	_, appErr = env.svc.Sold(ctx, "cup", "t1", 20)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestBudgetInvariant(t *testing.T) {
	env := newTestEnv(t)

	env.sell(t, "p1", "t1", 200)
	env.clear(t)
	env.sell(t, "p2", "t2", 50)
	env.clear(t)
	res := env.sell(t, "p3", "t1", 40)

	state := res.State
	for teamID, roster := range state.Rosters {
		sum := 0
		for _, playerID := range roster {
			sum += state.SoldPrices[playerID]
		}
		assert.Equal(t, sum, state.TeamSpent[teamID], "team %s", teamID)
	}
}

func TestUnsoldAndReauction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.Unsold(ctx, "cup")
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)

	_, appErr = env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)

	state, appErr := env.svc.Unsold(ctx, "cup")
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionIdle, state.Status)
	assert.Empty(t, state.CurrentPlayerID)
	assert.True(t, state.IsUnsold("p1"))

	// An unsold player can go up again and leaves the unsold set.
	state, appErr = env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)
	assert.False(t, state.IsUnsold("p1"))
	assert.Equal(t, "p1", state.CurrentPlayerID)
}

func TestJoker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)

	state, appErr := env.svc.Joker(ctx, "cup", "t2")
	require.Nil(t, appErr)
	assert.Equal(t, "p1", state.UsedJokers["t2"])

	// Another team cannot buy a joker-claimed player.
	_, appErr = env.svc.Sold(ctx, "cup", "t1", 100)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	// The claiming team must settle at base price.
	_, appErr = env.svc.Sold(ctx, "cup", "t2", 150)
	require.NotNil(t, appErr)

	res, appErr := env.svc.Sold(ctx, "cup", "t2", 100)
	require.Nil(t, appErr)
	assert.Equal(t, 100, res.Price)
}

func TestJokerOncePerTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)
	_, appErr = env.svc.Joker(ctx, "cup", "t2")
	require.Nil(t, appErr)

	res, appErr := env.svc.Sold(ctx, "cup", "t2", 100)
	require.Nil(t, appErr)
	require.False(t, res.AlreadyProcessed)
	env.clear(t)

	_, appErr = env.svc.StartAuction(ctx, "cup", "p2")
	require.Nil(t, appErr)
	_, appErr = env.svc.Joker(ctx, "cup", "t2")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestJokerDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Settings.JokerEnabled = false
	ctx := context.Background()

	_, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)
	_, appErr = env.svc.Joker(ctx, "cup", "t1")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestClubQuota(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Settings.ClubQuota = 1
	ctx := context.Background()

	env.sell(t, "p1", "t1", 100) // club north
	env.clear(t)

	_, appErr := env.svc.StartAuction(ctx, "cup", "p2") // also north
	require.Nil(t, appErr)
	_, appErr = env.svc.Sold(ctx, "cup", "t1", 50)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	// A different club is fine.
	res, appErr := env.svc.Sold(ctx, "cup", "t2", 50)
	require.Nil(t, appErr)
	assert.Equal(t, "t2", res.TeamID)
}

func TestPauseUnpause(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.StartAuction(ctx, "cup", "p1")
	require.Nil(t, appErr)

	state, appErr := env.svc.Pause(ctx, "cup", "back in ten", 10)
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionPaused, state.Status)
	assert.Equal(t, models.AuctionLive, state.ResumeStatus)
	assert.Equal(t, "back in ten", state.PauseMessage)
	require.NotNil(t, state.PauseUntil)
	assert.Equal(t, env.clock.Now().UTC().Add(10*time.Minute), *state.PauseUntil)

	// No substantive state changed; the lot is preserved.
	assert.Equal(t, "p1", state.CurrentPlayerID)

	_, appErr = env.svc.Pause(ctx, "cup", "", 0)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)

	_, appErr = env.svc.Sold(ctx, "cup", "t1", 100)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code, "SOLD while paused")

	state, appErr = env.svc.Unpause(ctx, "cup")
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionLive, state.Status)
	assert.Empty(t, state.PauseMessage)
	assert.Nil(t, state.PauseUntil)

	_, appErr = env.svc.Unpause(ctx, "cup")
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, appErr := env.svc.Clear(ctx, "cup")
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)

	env.sell(t, "p1", "t1", 100)

	state, appErr := env.svc.Clear(ctx, "cup")
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionIdle, state.Status)
	assert.Empty(t, state.CurrentPlayerID)
	assert.Empty(t, state.SoldToTeamID)
	// Sale data survives the cycle reset.
	assert.Equal(t, 100, state.SoldPrices["p1"])
	assert.Equal(t, []string{"p1"}, state.Rosters["t1"])
}

func TestResetRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.sell(t, "p1", "t1", 100)

	_, appErr := env.svc.Reset(ctx, "cup", false)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeConfirmationRequired, appErr.Code)

	state, appErr := env.svc.Reset(ctx, "cup", true)
	require.Nil(t, appErr)
	assert.Equal(t, models.AuctionIdle, state.Status)
	assert.Empty(t, state.Rosters)
	assert.Empty(t, state.SoldPlayers)
	assert.Empty(t, state.SoldPrices)
	assert.Empty(t, state.TeamSpent)
	assert.Empty(t, state.UnsoldPlayers)
	assert.Empty(t, state.UsedJokers)
	assert.Empty(t, state.CurrentPlayerID)
}

func TestMaxBidAdvisory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	max, appErr := env.svc.MaxBid(ctx, "cup", "t2")
	require.Nil(t, appErr)
	assert.Equal(t, 460, max)

	_, appErr = env.svc.MaxBid(ctx, "cup", "ghost")
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestGetStateUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	_, appErr := env.svc.GetState(context.Background(), "nope")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
