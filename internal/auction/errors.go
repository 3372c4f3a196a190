package auction

import (
	"fmt"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/models"
)

func errInvalidState(action string, status models.AuctionStatus) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("%s is not allowed while auction is %s", action, status)).
		WithDetail("status", status.String())
}

func errPlayerNotInPool(playerID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound,
		fmt.Sprintf("player %s is not in the available pool", playerID))
}

func errTeamNotFound(teamID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("unknown team %s", teamID))
}

func errRosterFull(teamID string, size int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("team %s roster is full (%d players)", teamID, size))
}

func errBidBelowBase(price, base int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("price %d is below the base price %d", price, base)).
		WithDetail("base_price", base)
}

func errBidNotIncrement(price, increment int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("price %d is not a positive multiple of the bid increment %d", price, increment))
}

func errBidOverMax(price, max int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("price %d exceeds the team's maximum bid %d", price, max)).
		WithDetail("max_bid", max)
}

func errClubQuota(club string, quota int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("team already holds %d players from %s", quota, club))
}

func errJokerClaim(teamID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("current player is claimed by team %s's joker", teamID)).
		WithDetail("joker_team", teamID)
}

func errJokerPrice(basePrice int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("joker claims settle at the base price %d", basePrice)).
		WithDetail("base_price", basePrice)
}

func errJokerUsed(teamID string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeValidation,
		fmt.Sprintf("team %s has already used its joker", teamID))
}
