// Package services contains the server-side business logic. This file
// implements LinkService, which issues secret link tokens and redeems them
// against the consumption ledger.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/secretlink/secretlink/internal/server/config"
	"github.com/secretlink/secretlink/internal/server/repositories/links"
	"github.com/secretlink/secretlink/internal/server/token"
)

// LinkService combines the token codec and the ledger:
// - IssueLink: mint claims, persist the ledger row, then encode the token
// - RedeemLink: authenticate the token, then consume one use
// The service holds no mutable state; correctness under concurrent
// redemption comes entirely from the ledger's transactional guarantees.
type LinkService struct {
	repo       links.Repository
	codec      *token.Codec
	defaultTTL time.Duration
	opTimeout  time.Duration
}

// NewLinkService constructs a LinkService using the ledger repository, the
// token codec, and server config.
func NewLinkService(repo links.Repository, codec *token.Codec, cfg *config.Config) *LinkService {
	return &LinkService{
		repo:       repo,
		codec:      codec,
		defaultTTL: cfg.MaxTTL,
		opTimeout:  cfg.OpTimeout,
	}
}

// IssueLink creates the ledger record for a fresh link and returns the
// signed token. The token is only handed out after the ledger write has
// committed, so a returned token always has a backing row. When no expiry
// is given, the ledger row gets the configured TTL ceiling while the token
// itself carries no expiry claim.
func (s *LinkService) IssueLink(ctx context.Context, username string, max int, expiresAt *time.Time) (string, error) {
	claims, err := token.NewClaims(username, max, expiresAt)
	if err != nil {
		return "", fmt.Errorf("error generating claims: %w", err)
	}

	ledgerExpiry := time.Now().UTC().Add(s.defaultTTL)
	if expiresAt != nil {
		ledgerExpiry = expiresAt.UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if claims.SingleUse() {
		err = s.repo.CreateSingleUse(ctx, claims.Jti.String(), ledgerExpiry)
	} else {
		err = s.repo.CreateMultiUse(ctx, claims.Jti.String(), *claims.Max, ledgerExpiry)
	}
	if err != nil {
		return "", fmt.Errorf("error creating link record: %w", err)
	}

	return s.codec.Encode(claims)
}

// RedeemLink verifies tok and consumes one use. A forged, malformed, or
// expired token never reaches the ledger. Denials — nonexistent, already
// consumed, exhausted, or expired by ledger state — return ok=false with a
// nil error; only storage faults produce a non-nil error, which is the one
// case the caller may retry.
func (s *LinkService) RedeemLink(ctx context.Context, tok string) (string, bool, error) {
	claims, err := s.codec.Decode(tok)
	if err != nil {
		return "", false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if claims.SingleUse() {
		ok, err := s.repo.ConsumeSingleUse(ctx, claims.Jti.String())
		if err != nil {
			return "", false, fmt.Errorf("error consuming link: %w", err)
		}
		if !ok {
			return "", false, nil
		}
		return claims.Sub, true, nil
	}

	remaining, err := s.repo.ConsumeMultiUse(ctx, claims.Jti.String())
	if err != nil {
		return "", false, fmt.Errorf("error consuming link: %w", err)
	}
	if remaining == nil {
		return "", false, nil
	}
	return claims.Sub, true, nil
}
