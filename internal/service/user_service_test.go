package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	repogomock "github.com/sandeepkv93/deepscan-backend/internal/repository/gomock"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
)

func claimsFor(sub, email, name string) *security.IdentityClaims {
	return &security.IdentityClaims{Email: email, Name: name, RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
}

func TestUserServiceResolveKnownUserSkipsWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	repo.EXPECT().FindByExternalID(gomock.Any(), "idp|1").Return(&domain.User{ID: 1, ExternalID: "idp|1", Email: "a@example.com", Name: "Ada"}, nil)

	u, err := NewUserService(repo, NewCreditLedger(repo), nil, 3).Resolve(context.Background(), claimsFor("idp|1", "a@example.com", "Ada"))
	if err != nil || u.ID != 1 {
		t.Fatalf("expected user 1, got %+v err=%v", u, err)
	}
}

func TestUserServiceResolveProvisionsNewUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	repo.EXPECT().FindByExternalID(gomock.Any(), "idp|2").Return(nil, repository.ErrUserNotFound)
	repo.EXPECT().UpsertIdentity(gomock.Any(), repository.IdentityInput{ExternalID: "idp|2", Email: "new@example.com", Name: "Neo"}, 3).
		Return(&domain.User{ID: 2, Credits: 3, Plan: domain.PlanTrial}, true, nil)

	u, err := NewUserService(repo, NewCreditLedger(repo), nil, 3).Resolve(context.Background(), claimsFor("idp|2", " New@Example.com ", "Neo"))
	if err != nil || u.Credits != 3 {
		t.Fatalf("expected provisioned user with trial credits, got %+v err=%v", u, err)
	}
}

func TestUserServiceResolveRepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	expected := errors.New("db down")
	repo.EXPECT().FindByExternalID(gomock.Any(), "idp|3").Return(nil, expected)

	if _, err := NewUserService(repo, NewCreditLedger(repo), nil, 3).Resolve(context.Background(), claimsFor("idp|3", "x@example.com", "")); !errors.Is(err, expected) {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}

func TestUserServiceProfileIsCachedUntilInvalidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := repogomock.NewMockUserRepository(ctrl)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	gomock.InOrder(
		repo.EXPECT().FindByID(gomock.Any(), uint(5)).Return(&domain.User{ID: 5, Credits: 1, CreatedAt: created}, nil),
		repo.EXPECT().FindByID(gomock.Any(), uint(5)).Return(&domain.User{ID: 5, Credits: 7, CreatedAt: created}, nil),
	)
	cache := NewResponseCache(NewInMemoryCacheStore(), ResponseCacheConfig{ProfileTTL: time.Minute}, nil)
	svc := NewUserService(repo, NewCreditLedger(repo), cache, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := svc.Profile(ctx, 5)
		if err != nil || p.Credits != 1 {
			t.Fatalf("expected cached credits 1, got %+v err=%v", p, err)
		}
	}
	cache.Invalidate(ctx, 5, CacheOpProfile)
	p, err := svc.Profile(ctx, 5)
	if err != nil || p.Credits != 7 || p.MemberSince != "2026-01-02" {
		t.Fatalf("expected refreshed profile, got %+v err=%v", p, err)
	}
}
