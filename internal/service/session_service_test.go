package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clc-lbu/timetable-api/internal/dto"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
)

type revocationStub struct {
	revoked map[string]bool
	failing bool
}

func newRevocationStub() *revocationStub {
	return &revocationStub{revoked: make(map[string]bool)}
}

func (r *revocationStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.failing {
		return context.DeadlineExceeded
	}
	r.revoked[key] = true
	return nil
}

func (r *revocationStub) Exists(ctx context.Context, key string) (bool, error) {
	if r.failing {
		return false, context.DeadlineExceeded
	}
	return r.revoked[key], nil
}

func newTestSessionService(t *testing.T, password string) (*SessionService, *revocationStub) {
	t.Helper()
	revocations := newRevocationStub()
	svc := NewSessionService(revocations, nil, nil, SessionServiceConfig{
		AdminPassword: password,
		TokenSecret:   "test-secret",
		TokenTTL:      time.Hour,
	})
	return svc, revocations
}

func TestSessionServiceVerify(t *testing.T) {
	svc, _ := newTestSessionService(t, "CLC2026admin")
	require.True(t, svc.Verify("CLC2026admin"))
	require.False(t, svc.Verify("clc2026admin"))
	require.False(t, svc.Verify(""))
}

func TestSessionServiceVerifyBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	svc, _ := newTestSessionService(t, string(hash))
	require.True(t, svc.Verify("hunter2"))
	require.False(t, svc.Verify("hunter3"))
}

func TestSessionServiceVerifyEmptySecretAlwaysFails(t *testing.T) {
	svc, _ := newTestSessionService(t, "")
	require.False(t, svc.Verify(""))
	require.False(t, svc.Verify("anything"))
}

func TestSessionServiceLoginIssuesValidToken(t *testing.T) {
	svc, _ := newTestSessionService(t, "CLC2026admin")

	res, err := svc.Login(context.Background(), dto.LoginRequest{Password: "CLC2026admin"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.Equal(t, int64(3600), res.ExpiresIn)

	claims, err := svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)
	require.True(t, claims.Admin)
	require.NotEmpty(t, claims.ID)
}

func TestSessionServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newTestSessionService(t, "CLC2026admin")

	_, err := svc.Login(context.Background(), dto.LoginRequest{Password: "nope"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceRejectsTamperedToken(t *testing.T) {
	svc, _ := newTestSessionService(t, "CLC2026admin")

	res, err := svc.Login(context.Background(), dto.LoginRequest{Password: "CLC2026admin"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), res.Token+"x")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceLogoutRevokesToken(t *testing.T) {
	svc, revocations := newTestSessionService(t, "CLC2026admin")

	res, err := svc.Login(context.Background(), dto.LoginRequest{Password: "CLC2026admin"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	require.Len(t, revocations.revoked, 1)

	_, err = svc.ValidateToken(context.Background(), res.Token)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceRevocationOutageFailsOpen(t *testing.T) {
	svc, revocations := newTestSessionService(t, "CLC2026admin")
	res, err := svc.Login(context.Background(), dto.LoginRequest{Password: "CLC2026admin"})
	require.NoError(t, err)

	revocations.failing = true
	claims, err := svc.ValidateToken(context.Background(), res.Token)
	require.NoError(t, err)
	require.True(t, claims.Admin)
}
