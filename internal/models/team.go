package models

// Team is a bidder in the auction. Budget is the immutable spending ceiling;
// the roster itself lives in AuctionState, not here.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Logo  string `json:"logo,omitempty"`

	Budget int `json:"budget"`
}

// Player is a lot in the pool. Category determines the base price.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Category  string `json:"category"`
	Club      string `json:"club,omitempty"`
	Available bool   `json:"available"`
}
