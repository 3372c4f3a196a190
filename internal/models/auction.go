package models

import (
	"fmt"
	"time"
)

type AuctionStatus int

const (
	AuctionIdle AuctionStatus = iota
	AuctionLive
	AuctionSold
	AuctionPaused
)

var auctionStatusNames = map[AuctionStatus]string{
	AuctionIdle:   "IDLE",
	AuctionLive:   "LIVE",
	AuctionSold:   "SOLD",
	AuctionPaused: "PAUSED",
}

func (s AuctionStatus) String() string {
	return auctionStatusNames[s]
}

func (s AuctionStatus) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", s.String())), nil
}

func (s *AuctionStatus) UnmarshalJSON(data []byte) error {
	for status, name := range auctionStatusNames {
		if string(data) == fmt.Sprintf("%q", name) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown auction status: %s", data)
}

// AuctionState is the whole live-auction record for one tenant, serialized as
// a single JSON blob under one key. Keeping it single-key is what makes each
// mutation atomic against the store without transactions.
//
// Invariants:
//   - a player id appears in at most one of rosters, UnsoldPlayers,
//     CurrentPlayerID at any time
//   - SoldPlayers contains every player id in any roster
//   - TeamSpent[team] equals the sum of SoldPrices over that team's roster
type AuctionState struct {
	Status          AuctionStatus       `json:"status"`
	CurrentPlayerID string              `json:"current_player_id,omitempty"`
	SoldToTeamID    string              `json:"sold_to_team_id,omitempty"`
	Rosters         map[string][]string `json:"rosters"`      // team id -> player ids in acquisition order
	SoldPlayers     map[string]struct{} `json:"sold_players"` // set of sold player ids
	SoldPrices      map[string]int      `json:"sold_prices"`  // player id -> price
	TeamSpent       map[string]int      `json:"team_spent"`   // team id -> cumulative spend
	UnsoldPlayers   map[string]struct{} `json:"unsold_players"`
	UsedJokers      map[string]string   `json:"used_jokers"` // team id -> player id, at most one per team
	ResumeStatus    AuctionStatus       `json:"resume_status"`
	PauseMessage    string              `json:"pause_message,omitempty"`
	PauseUntil      *time.Time          `json:"pause_until,omitempty"`
	LastUpdate      time.Time           `json:"last_update"`
}

// NewAuctionState returns the empty IDLE state a fresh tenant starts with.
func NewAuctionState() *AuctionState {
	return &AuctionState{
		Status:        AuctionIdle,
		Rosters:       make(map[string][]string),
		SoldPlayers:   make(map[string]struct{}),
		SoldPrices:    make(map[string]int),
		TeamSpent:     make(map[string]int),
		UnsoldPlayers: make(map[string]struct{}),
		UsedJokers:    make(map[string]string),
	}
}

// IsSold reports whether the player has already been sold.
func (s *AuctionState) IsSold(playerID string) bool {
	_, ok := s.SoldPlayers[playerID]
	return ok
}

// IsUnsold reports whether the player went unsold in an earlier lot.
func (s *AuctionState) IsUnsold(playerID string) bool {
	_, ok := s.UnsoldPlayers[playerID]
	return ok
}

// RosterSize returns how many players the team has acquired.
func (s *AuctionState) RosterSize(teamID string) int {
	return len(s.Rosters[teamID])
}
