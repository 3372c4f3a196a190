// Package budget computes the legal bid ceiling for a team. Pure functions
// only; the auction service feeds it current roster and spend figures.
package budget

// MaxBid returns the largest price a team may offer for the current lot.
// playersNeeded is how many roster slots the team still has to fill including
// the current one, and cheapestBase is the lowest base price among categories
// still available in the pool. Enough budget is reserved to buy the remaining
// playersNeeded-1 players at that base price, so a team can never bid itself
// into an unfillable roster.
func MaxBid(teamBudget, spent, playersNeeded, cheapestBase int) int {
	if playersNeeded <= 0 {
		return 0
	}

	remaining := teamBudget - spent
	reserve := (playersNeeded - 1) * cheapestBase

	if max := remaining - reserve; max > 0 {
		return max
	}
	return 0
}

// CheapestBase returns the lowest base price among the given categories.
// Returns 0 when no category remains.
func CheapestBase(basePrices map[string]int, categories []string) int {
	cheapest := 0
	for _, c := range categories {
		price, ok := basePrices[c]
		if !ok {
			continue
		}
		if cheapest == 0 || price < cheapest {
			cheapest = price
		}
	}
	return cheapest
}
