// Package events publishes auction lifecycle events to NATS JetStream for
// the realtime UI layer. Publishing is best effort: a failed publish is
// logged, never surfaced to the operator action that triggered it.
package events

const (
	StreamName = "AUCTION_EVENTS"

	SubjectAuctionStarted = "events.auction.started"
	SubjectAuctionSold    = "events.auction.sold"
	SubjectAuctionUnsold  = "events.auction.unsold"
	SubjectAuctionPaused  = "events.auction.paused"
	SubjectAuctionResumed = "events.auction.resumed"
	SubjectAuctionReset   = "events.auction.reset"

	SubjectTournamentCreated   = "events.tournament.created"
	SubjectTournamentPublished = "events.tournament.published"
	SubjectTournamentDeleted   = "events.tournament.deleted"

	SubjectsWildcard = "events.>"
)

// Event is the JSON envelope every subject carries.
type Event struct {
	Tournament string         `json:"tournament"`
	Fields     map[string]any `json:"fields,omitempty"`
}
