package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/domain"
	apperrors "github.com/spec-kit/sla-tracker/pkg/util"
)

type fakeUserRepo struct {
	seq  int
	byID map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	for _, stored := range r.byID {
		if stored.Email == user.Email {
			return errors.New("duplicate email")
		}
	}
	r.seq++
	user.ID = fmt.Sprintf("usr-%d", r.seq)
	clone := *user
	r.byID[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, stored := range r.byID {
		if stored.Email == email {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            4, // keep hashing cheap in tests
	}
}

func TestAuth_LoginRoundtrip(t *testing.T) {
	users := newFakeUserRepo()
	service := NewAuthService(testAuthConfig(), users)

	created, err := service.CreateUser(context.Background(), CreateUserInput{
		Name:     "Ops",
		Email:    "Ops@Corp.Example",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@corp.example", created.Email)
	assert.Equal(t, domain.RoleOperator, created.Role, "role defaults to operator")

	result, err := service.Login(context.Background(), "ops@corp.example", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, created.ID, result.User.ID)

	claims, err := service.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, domain.RoleOperator, claims.Role)
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	users := newFakeUserRepo()
	service := NewAuthService(testAuthConfig(), users)

	_, err := service.CreateUser(context.Background(), CreateUserInput{
		Email:    "ops@corp.example",
		Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "ops@corp.example", "wrong")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestAuth_LoginUnknownEmail(t *testing.T) {
	service := NewAuthService(testAuthConfig(), newFakeUserRepo())
	_, err := service.Login(context.Background(), "nobody@corp.example", "hunter22")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestAuth_LoginSuspendedUser(t *testing.T) {
	users := newFakeUserRepo()
	service := NewAuthService(testAuthConfig(), users)

	created, err := service.CreateUser(context.Background(), CreateUserInput{
		Email:    "ops@corp.example",
		Password: "hunter22",
	})
	require.NoError(t, err)
	users.byID[created.ID].Status = domain.UserStatusSuspended

	_, err = service.Login(context.Background(), "ops@corp.example", "hunter22")
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestAuth_CreateUserRequiresCredentials(t *testing.T) {
	service := NewAuthService(testAuthConfig(), newFakeUserRepo())
	_, err := service.CreateUser(context.Background(), CreateUserInput{Email: "ops@corp.example"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
