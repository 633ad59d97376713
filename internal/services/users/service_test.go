package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis: connection refused")
}

func (failingRevocations) Revoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newTestService(revoked Revocations) (*Service, *memStore) {
	store := newMemStore()
	tokens := auth.NewTokenManager("test-secret", "jelita", time.Hour)
	cfg := &Config{TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}
	return NewService(cfg, store, tokens, revoked, logger.NewNoOpLogger()), store
}

var admin = &auth.Principal{UserID: 1, Role: auth.RoleAdmin}

func TestCreateUser_StoresHashNotPassword(t *testing.T) {
	svc, store := newTestService(NewMemoryRevocations(10, time.Hour))
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, admin, CreateUserRequest{
		Username: "  pimpinan1 ", Email: "p1@jelita.test", Password: "rahasia123", Role: "leadership",
	})
	require.NoError(t, err)
	assert.Equal(t, "pimpinan1", u.Username)
	assert.Equal(t, "Pimpinan", u.Role)
	require.NotNil(t, u.Email)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia123", stored.PasswordHash)
	assert.True(t, auth.ComparePassword(stored.PasswordHash, "rahasia123"))
}

func TestCreateUser_Rejections(t *testing.T) {
	svc, _ := newTestService(NewMemoryRevocations(10, time.Hour))
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, admin, CreateUserRequest{Username: "kepala", Password: "rahasia123", Role: "Bupati"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.CreateUser(ctx, admin, CreateUserRequest{Username: "dinas", Password: "rahasia123", Role: "OPD"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.CreateUser(ctx, admin, CreateUserRequest{Username: "dinas", Password: "rahasia123", Role: "Pemohon"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, admin, CreateUserRequest{Username: "dinas", Password: "lainnya123", Role: "Pemohon"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestSignin_IssuesTokenScopedToOffice(t *testing.T) {
	svc, _ := newTestService(NewMemoryRevocations(10, time.Hour))
	ctx := context.Background()
	opd := int64(6)
	_, err := svc.CreateUser(ctx, admin, CreateUserRequest{Username: "dpmptsp", Password: "rahasia123", Role: "OPD", OPDID: &opd})
	require.NoError(t, err)

	session, err := svc.Signin(ctx, SigninRequest{Username: "dpmptsp", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, "OPD", session.Role)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	p, err := svc.tokens.Parse(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(6), p.OfficeID)

	_, err = svc.Signin(ctx, SigninRequest{Username: "dpmptsp", Password: "salah"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthentication))
	_, err = svc.Signin(ctx, SigninRequest{Username: "nobody", Password: "rahasia123"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthentication))
}

func TestSignout_RevokesOnlyThatToken(t *testing.T) {
	svc, _ := newTestService(NewMemoryRevocations(10, time.Hour))
	ctx := context.Background()
	p := &auth.Principal{UserID: 3, Role: auth.RoleApplicant, OfficeID: 3}

	res, err := svc.Signout(ctx, p, "token-a")
	require.NoError(t, err)
	assert.True(t, res.TokenRevoked)

	_, err = svc.Validate(ctx, p, "token-a")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAuthentication))

	valid, err := svc.Validate(ctx, p, "token-b")
	require.NoError(t, err)
	assert.True(t, valid.Valid)
	assert.Equal(t, p, valid.User)
}

func TestRevocationBackendDown(t *testing.T) {
	svc, _ := newTestService(failingRevocations{})
	p := &auth.Principal{UserID: 3, Role: auth.RoleApplicant}

	_, err := svc.Validate(context.Background(), p, "token")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDownstream))

	_, err = svc.Signout(context.Background(), p, "token")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDownstream))
}

func TestGetRole(t *testing.T) {
	svc, _ := newTestService(NewMemoryRevocations(10, time.Hour))
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, admin, CreateUserRequest{Username: "warga", Password: "rahasia123", Role: "applicant"})
	require.NoError(t, err)

	res, err := svc.GetRole(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pemohon", res.Role)
	assert.Equal(t, []auth.Capability{auth.CapCreateApplication, auth.CapSubmitSurvey}, res.Access)

	_, err = svc.GetRole(ctx, 404)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}
