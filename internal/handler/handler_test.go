package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/itbasis/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidhall/bidhall/internal/auction"
	"github.com/bidhall/bidhall/internal/catalog"
	"github.com/bidhall/bidhall/internal/config"
	"github.com/bidhall/bidhall/internal/credentials"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/ratelimit"
	"github.com/bidhall/bidhall/internal/registry"
	"github.com/bidhall/bidhall/internal/storage/storagetest"
)

type testApp struct {
	app   *fiber.App
	clock *clock.Mock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mock := clock.NewMock()
	store := storagetest.New(mock)

	credSvc := credentials.NewService(config.AuthConfig{
		TokenSecret:      "test-secret",
		SessionTTL:       24 * time.Hour,
		PBKDF2Iterations: 1000,
	}, store, mock)
	chain := credentials.NewChain(credSvc)

	regSvc := registry.NewService(store, credSvc, chain, nil, mock, nil, config.AuctionConfig{
		TournamentTTL:       90 * 24 * time.Hour,
		DefaultTeamSize:     3,
		DefaultBidIncrement: 5,
	})

	cat := catalog.NewStatic(
		[]models.Team{
			{ID: "t1", Name: "Reds", Budget: 1000},
			{ID: "t2", Name: "Blues", Budget: 500},
		},
		[]models.Player{
			{ID: "p1", Category: "A", Available: true},
			{ID: "p2", Category: "B", Available: true},
			{ID: "p3", Category: "C", Available: true},
		},
	)

	aucSvc := auction.NewService(store, regSvc, cat, nil, mock, nil)

	limiter := ratelimit.New(store, map[string]ratelimit.Rule{
		ratelimit.ActionTournamentCreate: {Limit: 2, Window: time.Hour},
		ratelimit.ActionAuthAttempt:      {Limit: 3, Window: 15 * time.Minute},
	}, time.Minute, true, mock, nil)

	app := fiber.New()
	New(regSvc, aucSvc, chain, limiter, nil).Register(app)

	return &testApp{app: app, clock: mock}
}

func (ta *testApp) request(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func (ta *testApp) createTournament(t *testing.T, slug string) string {
	t.Helper()
	resp, body := ta.request(t, fiber.MethodPost, "/tournaments", fiber.Map{
		"slug": slug,
		"name": "Test Cup",
		"pin":  "a7c2x9",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["masterToken"].(string)
}

func TestCreateTournamentEndpoint(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments", fiber.Map{
		"slug": "Summer-Cup",
		"name": "Summer Cup",
		"pin":  "a7c2x9",
	}, nil)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["masterToken"])
	tournament := body["tournament"].(map[string]any)
	assert.Equal(t, "summer-cup", tournament["slug"])
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestCreateTournamentRateLimited(t *testing.T) {
	ta := newTestApp(t)

	ta.createTournament(t, "cup-one")
	ta.createTournament(t, "cup-two")

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments", fiber.Map{
		"slug": "cup-three",
		"name": "Third",
		"pin":  "a7c2x9",
	}, nil)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "RATE_LIMITED", errBody["code"])
	assert.NotNil(t, errBody["details"].(map[string]any)["retryAfter"])

	// A fresh window admits requests again.
	ta.clock.Add(time.Hour)
	resp, _ = ta.request(t, fiber.MethodPost, "/tournaments", fiber.Map{
		"slug": "cup-three",
		"name": "Third",
		"pin":  "a7c2x9",
	}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestVerifyEndpoint(t *testing.T) {
	ta := newTestApp(t)
	ta.createTournament(t, "my-cup")

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/verify", fiber.Map{
		"pin": "a7c2x9",
	}, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["masterToken"])
	assert.NotEmpty(t, body["sessionToken"])
	assert.Equal(t, "pin", body["method"])

	resp, body = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/verify", fiber.Map{
		"pin": "wrong0",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])
}

func TestVerifyRateLimited(t *testing.T) {
	ta := newTestApp(t)
	ta.createTournament(t, "my-cup")

	for i := 0; i < 3; i++ {
		resp, _ := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/verify", fiber.Map{"pin": "wrong0"}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, _ := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/verify", fiber.Map{"pin": "a7c2x9"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestGetTournamentVisibility(t *testing.T) {
	ta := newTestApp(t)
	masterToken := ta.createTournament(t, "my-cup")

	// Unpublished: anonymous readers are refused.
	resp, _ := ta.request(t, fiber.MethodGet, "/tournaments/my-cup", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The owner reads it with the master token.
	resp, body := ta.request(t, fiber.MethodGet, "/tournaments/my-cup", nil, map[string]string{
		"X-Master-Token": masterToken,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	tournament := body["tournament"].(map[string]any)
	assert.Nil(t, tournament["pin_hash"], "pin hash must never leave the service")

	// Publish, then anonymous reads succeed.
	resp, _ = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/publish", fiber.Map{
		"pin":       "a7c2x9",
		"published": true,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ta.request(t, fiber.MethodGet, "/tournaments/my-cup", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuctionActionFlow(t *testing.T) {
	ta := newTestApp(t)
	masterToken := ta.createTournament(t, "my-cup")
	auth := map[string]string{"X-Master-Token": masterToken}

	// Unauthenticated mutation is refused.
	resp, _ := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":   "START_AUCTION",
		"playerId": "p1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":   "START_AUCTION",
		"playerId": "p1",
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "LIVE", body["auction"].(map[string]any)["status"])

	resp, body = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":    "SOLD",
		"teamId":    "t1",
		"soldPrice": 150,
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["alreadyProcessed"])
	assert.Equal(t, float64(150), body["soldPrice"])

	// Double-click: same outcome, flagged as already processed.
	resp, body = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":    "SOLD",
		"teamId":    "t2",
		"soldPrice": 300,
	}, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["alreadyProcessed"])
	assert.Equal(t, "t1", body["teamId"])
	assert.Equal(t, float64(150), body["soldPrice"])

	resp, _ = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action": "CLEAR",
	}, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResetConfirmation(t *testing.T) {
	ta := newTestApp(t)
	masterToken := ta.createTournament(t, "my-cup")
	auth := map[string]string{"X-Master-Token": masterToken}

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action": "RESET",
	}, auth)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
	assert.Equal(t, "CONFIRMATION_REQUIRED", body["error"].(map[string]any)["code"])

	resp, _ = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":  "RESET",
		"confirm": true,
	}, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyViaActionProtocol(t *testing.T) {
	ta := newTestApp(t)
	ta.createTournament(t, "my-cup")

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action": "VERIFY",
		"pin":    "a7c2x9",
	}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["sessionToken"])
}

func TestSessionTokenAuthenticates(t *testing.T) {
	ta := newTestApp(t)
	ta.createTournament(t, "my-cup")

	_, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/verify", fiber.Map{"pin": "a7c2x9"}, nil)
	sessionToken := body["sessionToken"].(string)

	resp, _ := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action":   "START_AUCTION",
		"playerId": "p1",
	}, map[string]string{"Authorization": fmt.Sprintf("Bearer %s", sessionToken)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Expired sessions stop working.
	ta.clock.Add(25 * time.Hour)
	resp, _ = ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action": "UNSOLD",
	}, map[string]string{"Authorization": fmt.Sprintf("Bearer %s", sessionToken)})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownAction(t *testing.T) {
	ta := newTestApp(t)
	masterToken := ta.createTournament(t, "my-cup")

	resp, body := ta.request(t, fiber.MethodPost, "/tournaments/my-cup/auction", fiber.Map{
		"action": "EXPLODE",
	}, map[string]string{"X-Master-Token": masterToken})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"].(map[string]any)["code"])
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)
	resp, body := ta.request(t, fiber.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
