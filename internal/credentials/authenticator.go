package credentials

import (
	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/models"
)

// Authenticator is one credential strategy. Authenticate reports whether the
// supplied credentials prove admin capability over the tenant.
type Authenticator interface {
	Name() string
	Authenticate(cfg *models.TournamentConfig, creds Credentials) bool
}

// Chain evaluates authenticators in fixed precedence order:
// master token, then session token, then PIN.
type Chain struct {
	authenticators []Authenticator
}

func NewChain(svc *Service) *Chain {
	return &Chain{
		authenticators: []Authenticator{
			&masterAuthenticator{svc: svc},
			&sessionAuthenticator{svc: svc},
			&pinAuthenticator{svc: svc},
		},
	}
}

// Authenticate returns the name of the strategy that granted access, or an
// unauthorized error when none did.
func (c *Chain) Authenticate(cfg *models.TournamentConfig, creds Credentials) (string, *apperrors.AppError) {
	if creds.Empty() {
		return "", apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}

	for _, a := range c.authenticators {
		if a.Authenticate(cfg, creds) {
			return a.Name(), nil
		}
	}

	return "", apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
}

type masterAuthenticator struct {
	svc *Service
}

func (a *masterAuthenticator) Name() string { return "master" }

func (a *masterAuthenticator) Authenticate(cfg *models.TournamentConfig, creds Credentials) bool {
	if creds.MasterToken == "" {
		return false
	}
	tenantID, err := a.svc.VerifyMasterToken(creds.MasterToken)
	return err == nil && tenantID == cfg.Slug
}

type sessionAuthenticator struct {
	svc *Service
}

func (a *sessionAuthenticator) Name() string { return "session" }

func (a *sessionAuthenticator) Authenticate(cfg *models.TournamentConfig, creds Credentials) bool {
	if creds.SessionToken == "" {
		return false
	}
	tenantID, _, err := a.svc.VerifySessionToken(creds.SessionToken)
	return err == nil && tenantID == cfg.Slug
}

type pinAuthenticator struct {
	svc *Service
}

func (a *pinAuthenticator) Name() string { return "pin" }

func (a *pinAuthenticator) Authenticate(cfg *models.TournamentConfig, creds Credentials) bool {
	if creds.PIN == "" {
		return false
	}
	return a.svc.VerifyPinHash(creds.PIN, cfg.Slug, cfg.PinHash)
}
