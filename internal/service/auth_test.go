package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodexapp/rolodex-server/internal/auth"
	"github.com/rolodexapp/rolodex-server/internal/domain"
	domainerrors "github.com/rolodexapp/rolodex-server/internal/errors"
	"github.com/rolodexapp/rolodex-server/internal/id"
	"github.com/rolodexapp/rolodex-server/internal/store"
)

const testTokenDuration = 15 * time.Minute

// setupAuthTest creates auth and user services backed by temporary storage.
func setupAuthTest(t *testing.T) (*AuthService, *UserService, *store.Store) {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(hex.EncodeToString(authKey), testTokenDuration)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	return NewAuthService(s, tokens, logger), NewUserService(s, logger), s
}

func registerTestUser(t *testing.T, authSvc *AuthService, username string) string {
	t.Helper()
	resp, err := authSvc.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	return resp.UserID
}

func TestAuthService_Register_FirstUserIsAdmin(t *testing.T) {
	authSvc, userSvc, _ := setupAuthTest(t)
	ctx := context.Background()

	firstID := registerTestUser(t, authSvc, "alice")
	secondID := registerTestUser(t, authSvc, "bob")

	first, err := userSvc.GetProfile(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, first.Role)

	second, err := userSvc.GetProfile(ctx, secondID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, second.Role)
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	authSvc, _, _ := setupAuthTest(t)
	ctx := context.Background()

	registerTestUser(t, authSvc, "alice")

	_, err := authSvc.Register(ctx, RegisterRequest{
		Username: "ALICE",
		Email:    "other@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists, "usernames are unique case-insensitively")

	_, err = authSvc.Register(ctx, RegisterRequest{
		Username: "carol",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	authSvc, _, _ := setupAuthTest(t)
	ctx := context.Background()

	_, err := authSvc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "short"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = authSvc.Register(ctx, RegisterRequest{Username: "alice", Email: "not-an-email", Password: "correct horse battery"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = authSvc.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "correct horse battery"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	authSvc, _, _ := setupAuthTest(t)
	ctx := context.Background()

	userID := registerTestUser(t, authSvc, "alice")

	resp, err := authSvc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, userID, resp.User.ID)
	assert.Empty(t, resp.User.PasswordHash, "password hash must never be serialized")
	assert.False(t, resp.User.LastLoginAt.IsZero())

	// The issued token resolves back to the same user.
	user, err := authSvc.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
}

func TestAuthService_Login_BadCredentials(t *testing.T) {
	authSvc, _, _ := setupAuthTest(t)
	ctx := context.Background()

	registerTestUser(t, authSvc, "alice")

	// Wrong password and unknown user produce the same error, so the
	// response never reveals which accounts exist.
	_, err := authSvc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong password!"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = authSvc.Login(ctx, LoginRequest{Username: "nobody", Password: "wrong password!"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_VerifyToken_Garbage(t *testing.T) {
	authSvc, _, _ := setupAuthTest(t)

	_, err := authSvc.VerifyToken(context.Background(), "v4.local.garbage")
	assert.Error(t, err)
}

func TestUserService_UpdateUsername(t *testing.T) {
	authSvc, userSvc, _ := setupAuthTest(t)
	ctx := context.Background()

	aliceID := registerTestUser(t, authSvc, "alice")
	registerTestUser(t, authSvc, "bob")

	updated, err := userSvc.UpdateUsername(ctx, aliceID, UpdateUsernameRequest{Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Empty(t, updated.PasswordHash)

	// Taken name conflicts, case-insensitively.
	_, err = userSvc.UpdateUsername(ctx, aliceID, UpdateUsernameRequest{Username: "BOB"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// Re-setting the current name is a no-op that succeeds.
	updated, err = userSvc.UpdateUsername(ctx, aliceID, UpdateUsernameRequest{Username: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
}

func TestUserService_UpdatePassword(t *testing.T) {
	authSvc, userSvc, _ := setupAuthTest(t)
	ctx := context.Background()

	aliceID := registerTestUser(t, authSvc, "alice")

	err := userSvc.UpdatePassword(ctx, aliceID, UpdatePasswordRequest{
		OldPassword: "definitely wrong",
		NewPassword: "a brand new passphrase",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	err = userSvc.UpdatePassword(ctx, aliceID, UpdatePasswordRequest{
		OldPassword: "correct horse battery",
		NewPassword: "a brand new passphrase",
	})
	require.NoError(t, err)

	_, err = authSvc.Login(ctx, LoginRequest{Username: "alice", Password: "correct horse battery"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = authSvc.Login(ctx, LoginRequest{Username: "alice", Password: "a brand new passphrase"})
	assert.NoError(t, err)
}

func TestUserService_GetProfile_Missing(t *testing.T) {
	_, userSvc, _ := setupAuthTest(t)

	_, err := userSvc.GetProfile(context.Background(), id.MustGenerate(id.PrefixUser))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
