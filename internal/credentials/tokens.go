package credentials

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bidhall/bidhall/internal/apperrors"
)

const (
	tokenTypeMaster  = "master"
	tokenTypeSession = "session"
)

type tokenClaims struct {
	TournamentID string `json:"tournament_id"`
	TokenType    string `json:"type"`
	SessionID    string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IssueMasterToken signs a capability proving tenant ownership. No expiry is
// enforced at the application layer; only signature validity.
func (s *Service) IssueMasterToken(tenantID string) (string, *apperrors.AppError) {
	claims := tokenClaims{
		TournamentID: tenantID,
		TokenType:    tokenTypeMaster,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.clock.Now().UTC()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to sign master token")
	}
	return token, nil
}

// IssueSessionToken signs a 24-hour capability carrying a fresh session id,
// and records the session in the store.
func (s *Service) IssueSessionToken(ctx context.Context, tenantID string) (string, *apperrors.AppError) {
	now := s.clock.Now().UTC()
	sessionID := uuid.New().String()

	claims := tokenClaims{
		TournamentID: tenantID,
		TokenType:    tokenTypeSession,
		SessionID:    sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to sign session token")
	}

	if appErr := s.recordSession(ctx, tenantID, sessionID); appErr != nil {
		return "", appErr
	}

	return token, nil
}

// VerifyMasterToken returns the tenant id the token grants, or an
// unauthorized error on bad signature, wrong type tag or malformed input.
func (s *Service) VerifyMasterToken(token string) (string, *apperrors.AppError) {
	claims, appErr := s.parse(token)
	if appErr != nil {
		return "", appErr
	}
	if claims.TokenType != tokenTypeMaster {
		return "", apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}
	return claims.TournamentID, nil
}

// VerifySessionToken returns the tenant id and session id, or an unauthorized
// error. A master token never validates here; the type tag is checked after
// the signature.
func (s *Service) VerifySessionToken(token string) (tenantID, sessionID string, err *apperrors.AppError) {
	claims, appErr := s.parse(token)
	if appErr != nil {
		return "", "", appErr
	}
	if claims.TokenType != tokenTypeSession {
		return "", "", apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}
	return claims.TournamentID, claims.SessionID, nil
}

func (s *Service) parse(token string) (*tokenClaims, *apperrors.AppError) {
	if token == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "missing token")
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.clock.Now() }),
	)
	if err != nil || !parsed.Valid {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.TournamentID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
