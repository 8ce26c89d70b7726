package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
)

var ErrEmailInUse = repository.ErrEmailInUse

// Profile is what /me returns.
type Profile struct {
	ID          uint        `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Plan        domain.Plan `json:"plan"`
	Credits     int         `json:"credits"`
	MemberSince string      `json:"member_since"`
}

type UserService struct {
	userRepo     repository.UserRepository
	ledger       *CreditLedger
	cache        *ResponseCache
	trialCredits int
}

func NewUserService(userRepo repository.UserRepository, ledger *CreditLedger, cache *ResponseCache, trialCredits int) *UserService {
	if cache == nil {
		cache = NewResponseCache(nil, ResponseCacheConfig{}, nil)
	}
	return &UserService{userRepo: userRepo, ledger: ledger, cache: cache, trialCredits: trialCredits}
}

// Resolve maps verified identity claims to a local user, creating it on
// first sight. Known users are only written when the provider changed
// their email or name.
func (s *UserService) Resolve(ctx context.Context, claims *security.IdentityClaims) (*domain.User, error) {
	u, err := s.userRepo.FindByExternalID(ctx, claims.Subject)
	switch {
	case err == nil:
		if (claims.Email == "" || claims.Email == u.Email) && (claims.Name == "" || claims.Name == u.Name) {
			return u, nil
		}
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}
	return s.SyncIdentity(ctx, claims)
}

// SyncIdentity upserts the user and refreshes last_seen_at. New users get
// the trial grant.
func (s *UserService) SyncIdentity(ctx context.Context, claims *security.IdentityClaims) (*domain.User, error) {
	u, created, err := s.userRepo.UpsertIdentity(ctx, repository.IdentityInput{
		ExternalID: claims.Subject,
		Email:      strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:       strings.TrimSpace(claims.Name),
	}, s.trialCredits)
	if err != nil {
		return nil, err
	}
	if created {
		observability.RecordCreditLedgerEvent(ctx, "trial_grant", "success")
		observability.EmitAuditContext(ctx, observability.AuditInput{
			EventName:   "user.provisioned",
			ActorUserID: userIDString(u.ID),
			TargetType:  "user",
			TargetID:    userIDString(u.ID),
			Action:      "create",
			Outcome:     "success",
			Reason:      "first_identity_sync",
		}, "trial_credits", s.trialCredits)
	} else {
		s.cache.Invalidate(ctx, u.ID, CacheOpProfile)
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	p, _, err := cachedJSON(ctx, s.cache, CacheOpProfile, userID, "me", func(ctx context.Context) (Profile, error) {
		u, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return Profile{}, err
		}
		return Profile{
			ID:          u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Plan:        u.Plan,
			Credits:     u.Credits,
			MemberSince: u.CreatedAt.UTC().Format("2006-01-02"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *UserService) Ledger(ctx context.Context, userID uint, req repository.PageRequest) (repository.PageResult[domain.CreditLedgerEntry], error) {
	return s.ledger.History(ctx, userID, req)
}
