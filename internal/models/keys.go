package models

import "fmt"

// Key builders. Every tenant key embeds the slug so tenants stay isolated in
// the shared store.

func TournamentKey(slug string) string {
	return fmt.Sprintf("tournament:%s", slug)
}

// SlugRegistryKey is the set of every registered slug, used for uniqueness.
func SlugRegistryKey() string {
	return "tournament:slugs"
}

func AuctionKey(slug string) string {
	return fmt.Sprintf("auction:%s", slug)
}

func SessionKey(slug, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", slug, sessionID)
}

// RateLimitKey scopes a fixed-window counter to an action type, an identifier
// (slug or client address) and the window start in unix seconds.
func RateLimitKey(action, identifier string, windowStart int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", action, identifier, windowStart)
}
