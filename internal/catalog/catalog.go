// Package catalog exposes the static team/player seed data the engine bids
// over. The data itself is an external collaborator; the engine only needs
// lookups for budgets, base-price categories and club affiliation.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bidhall/bidhall/internal/models"
)

type Provider interface {
	Teams() []models.Team
	Players() []models.Player
	Team(id string) (*models.Team, bool)
	Player(id string) (*models.Player, bool)
}

// Static is a Provider backed by fixed slices, loaded once at startup.
type Static struct {
	teams   []models.Team
	players []models.Player

	teamsByID   map[string]*models.Team
	playersByID map[string]*models.Player
}

func NewStatic(teams []models.Team, players []models.Player) *Static {
	s := &Static{
		teams:       teams,
		players:     players,
		teamsByID:   make(map[string]*models.Team, len(teams)),
		playersByID: make(map[string]*models.Player, len(players)),
	}
	for i := range teams {
		s.teamsByID[teams[i].ID] = &s.teams[i]
	}
	for i := range players {
		s.playersByID[players[i].ID] = &s.players[i]
	}
	return s
}

// Load reads teams.json and players.json from dir.
func Load(dir string) (*Static, error) {
	var teams []models.Team
	if err := readJSON(filepath.Join(dir, "teams.json"), &teams); err != nil {
		return nil, fmt.Errorf("loading teams: %w", err)
	}

	var players []models.Player
	if err := readJSON(filepath.Join(dir, "players.json"), &players); err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}

	return NewStatic(teams, players), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Static) Teams() []models.Team {
	return s.teams
}

func (s *Static) Players() []models.Player {
	return s.players
}

func (s *Static) Team(id string) (*models.Team, bool) {
	t, ok := s.teamsByID[id]
	return t, ok
}

func (s *Static) Player(id string) (*models.Player, bool) {
	p, ok := s.playersByID[id]
	return p, ok
}
