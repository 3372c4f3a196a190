// Package credentials implements the layered credential scheme gating writes:
// a salted admin PIN, a long-lived master token and a short-lived session
// token. All three prove the same capability (tenant admin); precedence is
// decided by the authenticator chain.
package credentials

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/itbasis/go-clock"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bidhall/bidhall/internal/apperrors"
	"github.com/bidhall/bidhall/internal/config"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/storage"
)

const pinHashLen = 32

type Service struct {
	secret     []byte
	iterations int
	sessionTTL time.Duration
	store      storage.Adapter
	clock      clock.Clock
}

func NewService(cfg config.AuthConfig, store storage.Adapter, clk clock.Clock) *Service {
	iterations := cfg.PBKDF2Iterations
	if iterations <= 0 {
		iterations = 100_000
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		secret:     []byte(cfg.TokenSecret),
		iterations: iterations,
		sessionTTL: sessionTTL,
		store:      store,
		clock:      clk,
	}
}

// HashPin derives a deterministic digest of the PIN salted by the tenant id.
// The same PIN hashes differently across tenants, and identically for the
// same tenant, so the verify path can recompute and compare.
func (s *Service) HashPin(pin, tenantID string) string {
	salt := []byte("bidhall:" + tenantID)
	key := pbkdf2.Key([]byte(pin), salt, s.iterations, pinHashLen, sha256.New)
	return hex.EncodeToString(key)
}

// VerifyPinHash recomputes the digest and compares it in constant time over
// the full length.
func (s *Service) VerifyPinHash(pin, tenantID, storedHash string) bool {
	computed := s.HashPin(pin, tenantID)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// recordSession marks an issued session in the store so sessions can be
// enumerated or revoked wholesale later. Verification itself stays
// signature-only.
func (s *Service) recordSession(ctx context.Context, tenantID, sessionID string) *apperrors.AppError {
	key := models.SessionKey(tenantID, sessionID)
	if err := s.store.Set(ctx, key, s.clock.Now().UTC().Format(time.RFC3339), s.sessionTTL); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to record session")
	}
	return nil
}
