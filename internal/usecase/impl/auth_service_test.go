package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cms/config"
	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/infra/auth"
	"cms/internal/usecase"
)

const testPassword = "initial-password"

type authFixture struct {
	service   usecase.AuthUsecase
	user      *entity.User
	userRepo  *fakeUserRepo
	tokenRepo *fakeTokenRepo
	auditRepo *fakeAuditRepo
	mailer    *fakeMailer
}

func newAuthFixture(t *testing.T, mutate func(*config.AuthConfig)) *authFixture {
	t.Helper()

	cfg := &config.Config{
		SecretKey: config.SecretKey{
			Access:  "test-access-secret",
			Refresh: "test-refresh-secret",
		},
		Auth: &config.AuthConfig{
			BcryptCost:             bcrypt.MinCost,
			AccessTokenTTL:         15 * time.Minute,
			RefreshTokenTTL:        24 * time.Hour,
			ResetTokenTTL:          2 * time.Minute,
			ForgotPasswordCooldown: 2 * time.Minute,
			RevokedRetention:       30 * 24 * time.Hour,
		},
	}
	if mutate != nil {
		mutate(cfg.Auth)
	}

	hasher := auth.NewBcryptHasher(cfg)
	tokenService, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	passwordHash, err := hasher.Hash(testPassword)
	require.NoError(t, err)

	user := &entity.User{
		ID:           uuid.New(),
		Email:        "editor@example.com",
		PasswordHash: passwordHash,
		Status:       entity.UserStatusActive,
		RoleID:       uuid.New(),
		RoleName:     "editor",
	}

	userRepo := newFakeUserRepo(user)
	tokenRepo := newFakeTokenRepo()
	auditRepo := &fakeAuditRepo{}
	mailer := &fakeMailer{}
	factory := &fakeFactory{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		permissionRepo: newFakePermissionRepo(),
		auditRepo:      auditRepo,
	}

	service := NewAuthService(AuthServiceParams{
		TxManager:    &fakeTxManager{factory: factory},
		UserRepo:     userRepo,
		TokenRepo:    tokenRepo,
		AuditRepo:    auditRepo,
		Hasher:       hasher,
		TokenService: tokenService,
		Mailer:       mailer,
		Config:       cfg,
		Logger:       slog.Default(),
	})

	return &authFixture{
		service:   service,
		user:      user,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		auditRepo: auditRepo,
		mailer:    mailer,
	}
}

func (fx *authFixture) login(t *testing.T) *usecase.LoginOutput {
	t.Helper()

	out, err := fx.service.Login(context.Background(), &usecase.LoginInput{
		Email:    fx.user.Email,
		Password: testPassword,
	})
	require.NoError(t, err)

	return out
}

func TestLogin_Success(t *testing.T) {
	fx := newAuthFixture(t, nil)

	out := fx.login(t)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.NotEqual(t, out.AccessToken, out.RefreshToken)
	require.NotNil(t, out.User)
	assert.Equal(t, fx.user.ID, out.User.ID)
	assert.Equal(t, "editor", out.User.RoleName)

	// Both credentials are recorded in the ledger.
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeAccess))
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeRefresh))

	// Login is stamped and audited.
	stored, _ := fx.userRepo.FindActiveByID(context.Background(), fx.user.ID)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Contains(t, fx.auditRepo.actions(), entity.AuditActionLogin)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	fx := newAuthFixture(t, nil)

	_, unknownErr := fx.service.Login(context.Background(), &usecase.LoginInput{
		Email:    "nobody@example.com",
		Password: testPassword,
	})
	_, wrongErr := fx.service.Login(context.Background(), &usecase.LoginInput{
		Email:    fx.user.Email,
		Password: "not-the-password",
	})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.True(t, errors.Is(unknownErr, domainerrors.ErrInvalidCredentials))
	assert.True(t, errors.Is(wrongErr, domainerrors.ErrInvalidCredentials))
	// The client-visible message must be identical in both cases.
	assert.Equal(t, domainerrors.ErrInvalidCredentials.Message(), domainerrors.ErrInvalidCredentials.Message())
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)
	fx.user.Status = entity.UserStatusInactive
	fx.userRepo.users[fx.user.ID].Status = entity.UserStatusInactive

	_, err := fx.service.Login(context.Background(), &usecase.LoginInput{
		Email:    fx.user.Email,
		Password: testPassword,
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestValidateAccessToken_Success(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	identity, err := fx.service.ValidateAccessToken(context.Background(), out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, fx.user.ID, identity.ID)
	assert.Equal(t, fx.user.RoleID, identity.RoleID)
}

func TestValidateAccessToken_FailuresAreUniform(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	// Tampered token fails at signature verification.
	_, err := fx.service.ValidateAccessToken(context.Background(), out.AccessToken+"x")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))

	// A signed token whose ledger entry was revoked fails at the ledger check.
	require.NoError(t, fx.tokenRepo.RevokeAccessTokens(context.Background(), fx.user.ID))
	_, err = fx.service.ValidateAccessToken(context.Background(), out.AccessToken)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestValidateAccessToken_DeactivatedUserRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	// Deactivating the account invalidates outstanding tokens immediately.
	fx.userRepo.users[fx.user.ID].Status = entity.UserStatusInactive

	_, err := fx.service.ValidateAccessToken(context.Background(), out.AccessToken)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidToken))
}

func TestRefreshAccessToken_RotatesAccessLineage(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	refreshed, err := fx.service.RefreshAccessToken(context.Background(), &usecase.RefreshInput{
		RefreshToken: out.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, out.AccessToken, refreshed.AccessToken)

	// The old access token is dead, the new one lives, the refresh token survives.
	_, err = fx.service.ValidateAccessToken(context.Background(), out.AccessToken)
	assert.Error(t, err)
	_, err = fx.service.ValidateAccessToken(context.Background(), refreshed.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeAccess))
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeRefresh))
}

func TestRefreshAccessToken_RevokedRefreshRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	require.NoError(t, fx.service.Logout(context.Background(), &usecase.LogoutInput{RefreshToken: out.RefreshToken}))

	_, err := fx.service.RefreshAccessToken(context.Background(), &usecase.RefreshInput{
		RefreshToken: out.RefreshToken,
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidRefreshToken))
}

func TestRefreshAccessToken_GarbageTokenRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)

	_, err := fx.service.RefreshAccessToken(context.Background(), &usecase.RefreshInput{
		RefreshToken: "not-a-jwt",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidRefreshToken))
}

func TestLogout_RevokesWholeSession(t *testing.T) {
	fx := newAuthFixture(t, nil)
	out := fx.login(t)

	require.NoError(t, fx.service.Logout(context.Background(), &usecase.LogoutInput{RefreshToken: out.RefreshToken}))

	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeAccess))
	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeRefresh))
	assert.Contains(t, fx.auditRepo.actions(), entity.AuditActionLogout)

	// The session is already dead, so a repeat logout is rejected.
	err := fx.service.Logout(context.Background(), &usecase.LogoutInput{RefreshToken: out.RefreshToken})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidRefreshToken))
}

func TestLogout_UnknownTokenRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)

	err := fx.service.Logout(context.Background(), &usecase.LogoutInput{RefreshToken: "never-issued"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidRefreshToken))
}

func TestLogoutAllDevices(t *testing.T) {
	fx := newAuthFixture(t, nil)
	fx.login(t)
	fx.login(t)

	require.NoError(t, fx.service.LogoutAllDevices(context.Background(), fx.user.ID))

	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeAccess))
	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeRefresh))
}

func TestForgotPassword_UnknownEmailGetsSameShape(t *testing.T) {
	fx := newAuthFixture(t, nil)

	unknown, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{
		Email: "nobody@example.com",
	})
	require.NoError(t, err)

	// Nothing was issued or dispatched, but the attempt is audited without a
	// resolved account.
	assert.Equal(t, 0, fx.mailer.sent())
	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeResetPassword))
	require.Len(t, fx.auditRepo.entries, 1)
	assert.Equal(t, entity.AuditActionForgotPassword, fx.auditRepo.entries[0].Action)
	assert.Nil(t, fx.auditRepo.entries[0].UserID)

	// The response is byte-for-byte the shape a fresh issuance produces.
	issued, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{
		Email: fx.user.Email,
	})
	require.NoError(t, err)
	assert.Equal(t, issued, unknown)
	assert.False(t, unknown.Active)
	assert.Nil(t, unknown.ActiveDate)
}

func TestForgotPassword_IssuesTokenAndThrottlesRepeat(t *testing.T) {
	fx := newAuthFixture(t, nil)

	first, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{
		Email: fx.user.Email,
	})
	require.NoError(t, err)
	assert.False(t, first.Active)
	assert.Nil(t, first.ActiveDate)
	assert.Equal(t, 1, fx.mailer.sent())
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeResetPassword))
	assert.Contains(t, fx.auditRepo.actions(), entity.AuditActionForgotPassword)

	// Repeats inside the cooldown issue nothing new and report the window,
	// which never moves forward.
	second, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{
		Email: fx.user.Email,
	})
	require.NoError(t, err)
	assert.True(t, second.Active)
	require.NotNil(t, second.ActiveDate)

	third, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{
		Email: fx.user.Email,
	})
	require.NoError(t, err)
	assert.True(t, third.Active)
	require.NotNil(t, third.ActiveDate)
	assert.False(t, third.ActiveDate.Before(*second.ActiveDate))

	assert.Equal(t, 1, fx.mailer.sent())
	assert.Equal(t, 1, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeResetPassword))
}

func TestForgotPassword_ExpiredCooldownIssuesAgain(t *testing.T) {
	fx := newAuthFixture(t, func(cfg *config.AuthConfig) {
		cfg.ForgotPasswordCooldown = time.Millisecond
	})

	_, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// Past the cooldown the request issues again and reports no active window.
	out, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)
	assert.False(t, out.Active)
	assert.Nil(t, out.ActiveDate)
	assert.Equal(t, 2, fx.mailer.sent())
}

func TestResetPassword_ConsumesTokenAndRevokesSessions(t *testing.T) {
	fx := newAuthFixture(t, nil)
	fx.login(t)

	_, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)
	resetToken := fx.mailer.lastToken()
	require.NotEmpty(t, resetToken)

	const newPassword = "brand-new-password"
	require.NoError(t, fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       resetToken,
		NewPassword: newPassword,
	}))

	// Every live session died with the reset.
	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeAccess))
	assert.Equal(t, 0, fx.tokenRepo.usableCount(fx.user.ID, entity.TokenTypeRefresh))
	assert.Contains(t, fx.auditRepo.actions(), entity.AuditActionResetPassword)

	// Old password no longer works, the new one does.
	_, err = fx.service.Login(context.Background(), &usecase.LoginInput{Email: fx.user.Email, Password: testPassword})
	assert.Error(t, err)
	_, err = fx.service.Login(context.Background(), &usecase.LoginInput{Email: fx.user.Email, Password: newPassword})
	assert.NoError(t, err)
}

func TestResetPassword_TokenIsSingleUse(t *testing.T) {
	fx := newAuthFixture(t, nil)

	_, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)
	resetToken := fx.mailer.lastToken()

	require.NoError(t, fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       resetToken,
		NewPassword: "first-new-password",
	}))

	err = fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       resetToken,
		NewPassword: "second-new-password",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidResetToken))
}

func TestResetPassword_ConcurrentConsumersExactlyOneWins(t *testing.T) {
	fx := newAuthFixture(t, nil)

	_, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)
	resetToken := fx.mailer.lastToken()
	require.NotEmpty(t, resetToken)

	// Race the same token from several goroutines. The conditional consume
	// must let exactly one through.
	const attempts = 8
	results := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i] = fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
				Token:       resetToken,
				NewPassword: fmt.Sprintf("contended-password-%d", i),
			})
		}()
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, resetErr := range results {
		if resetErr == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(resetErr, domainerrors.ErrInvalidResetToken))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestResetPassword_WeakPasswordDoesNotBurnToken(t *testing.T) {
	fx := newAuthFixture(t, nil)

	_, err := fx.service.ForgotPassword(context.Background(), &usecase.ForgotPasswordInput{Email: fx.user.Email})
	require.NoError(t, err)
	resetToken := fx.mailer.lastToken()

	err = fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       resetToken,
		NewPassword: "tiny",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrWeakPassword))

	// The token survived the rejected attempt and still works.
	assert.NoError(t, fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       resetToken,
		NewPassword: "acceptable-password",
	}))
}

func TestResetPassword_UnknownTokenRejected(t *testing.T) {
	fx := newAuthFixture(t, nil)

	err := fx.service.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:       uuid.NewString(),
		NewPassword: "acceptable-password",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidResetToken))
}

func TestActiveSessions(t *testing.T) {
	fx := newAuthFixture(t, nil)
	fx.login(t)
	fx.login(t)

	sessions, err := fx.service.ActiveSessions(context.Background(), fx.user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSweepExpiredTokens(t *testing.T) {
	fx := newAuthFixture(t, func(cfg *config.AuthConfig) {
		cfg.AccessTokenTTL = -time.Minute // issued already expired
	})
	fx.login(t)

	removed, err := fx.service.SweepExpiredTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
