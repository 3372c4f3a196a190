package models

import "time"

type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentPublished TournamentStatus = "published"
	TournamentExpired   TournamentStatus = "expired"
)

// TournamentSettings is the per-tenant auction configuration.
type TournamentSettings struct {
	TeamSize     int            `json:"team_size"`
	BidIncrement int            `json:"bid_increment"`
	BasePrices   map[string]int `json:"base_prices"`
	JokerEnabled bool           `json:"joker_enabled"`
	ClubQuota    int            `json:"club_quota"` // max players from one club per team; 0 disables
}

// TournamentConfig is the tenant identity record. Slug is unique and
// immutable after creation; PinHash is the salted admin PIN digest.
type TournamentConfig struct {
	Slug      string             `json:"slug"`
	Name      string             `json:"name"`
	PinHash   string             `json:"pin_hash"`
	Status    TournamentStatus   `json:"status"`
	Published bool               `json:"published"`
	Settings  TournamentSettings `json:"settings"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (c *TournamentConfig) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
