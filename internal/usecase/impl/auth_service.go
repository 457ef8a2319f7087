// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"cms/config"
	deliverycontext "cms/internal/delivery/context"
	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/domain/repository"
	"cms/internal/domain/service"
	"cms/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager    repository.TransactionManager
	userRepo     repository.UserRepository
	tokenRepo    repository.TokenRepository
	auditRepo    repository.AuditRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	mailer       service.ResetMailer
	resetTTL     time.Duration
	cooldown     time.Duration
	retention    time.Duration
	logger       *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	UserRepo     repository.UserRepository
	TokenRepo    repository.TokenRepository
	AuditRepo    repository.AuditRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Mailer       service.ResetMailer
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager:    params.TxManager,
		userRepo:     params.UserRepo,
		tokenRepo:    params.TokenRepo,
		auditRepo:    params.AuditRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		mailer:       params.Mailer,
		resetTTL:     params.Config.Auth.ResetTokenTTL,
		cooldown:     params.Config.Auth.ForgotPasswordCooldown,
		retention:    params.Config.Auth.RevokedRetention,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// audit writes a security event. Failures are logged and swallowed: an audit
// write must never fail the operation it records.
func (srv *authService) audit(ctx context.Context, entry *entity.AuditEntry) {
	if err := srv.auditRepo.Create(ctx, entry); err != nil {
		srv.log(ctx).Error("Failed to write audit entry", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

// Login orchestrates the email/password login process.
//
// Unknown email and wrong password produce the same error; which one it was
// is visible only in server-side logs.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	user, err := srv.loadLoginUser(ctx, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			// Already wrapped with the uniform message.
			return nil, err
		}

		return nil, errors.Wrap(err, "failed to load login user from primary")
	}

	// Check password outside transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// Generate new tokens outside transaction.
	accessToken, err := srv.tokenService.SignAccess(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}
	refreshToken, err := srv.tokenService.SignRefresh(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	// Record both ledger entries and the login stamp atomically.
	now := time.Now()
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.TokenRepo()

		if err := tokenRepo.Create(ctx, srv.ledgerEntry(user.ID, accessToken, entity.TokenTypeAccess, now.Add(srv.tokenService.AccessTokenTTL()), input.IPAddress, input.UserAgent)); err != nil {
			return errors.Wrap(err, "failed to record access token")
		}
		if err := tokenRepo.Create(ctx, srv.ledgerEntry(user.ID, refreshToken, entity.TokenTypeRefresh, now.Add(srv.tokenService.RefreshTokenTTL()), input.IPAddress, input.UserAgent)); err != nil {
			return errors.Wrap(err, "failed to record refresh token")
		}

		return repoFactory.UserRepo().UpdateLastLogin(ctx, user.ID, now)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute login transaction", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute login transaction")
	}

	srv.audit(ctx, &entity.AuditEntry{
		UserID:    &user.ID,
		Action:    entity.AuditActionLogin,
		TableName: "users",
		RecordID:  &user.ID,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	srv.log(ctx).Debug("User logged in", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Identity(),
	}, nil
}

func (srv *authService) loadLoginUser(ctx context.Context, email string) (*entity.User, error) {
	var user *entity.User

	// Load the account from primary in a short transaction to avoid stale reads on replicas.
	if err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var findErr error
		user, findErr = repoFactory.UserRepo().FindActiveByEmail(ctx, email)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
			}

			return errors.Wrap(findErr, "failed to find user by email")
		}

		return nil
	}); err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			return nil, err
		}

		return nil, errors.Wrap(err, "failed to execute login user transaction")
	}

	return user, nil
}

// ValidateAccessToken runs the ordered access-token pipeline: signature and
// expiry first, then the ledger entry, then the account status. Every failure
// collapses into ErrInvalidToken.
func (srv *authService) ValidateAccessToken(ctx context.Context, tokenString string) (*entity.AuthenticatedIdentity, error) {
	claims, err := srv.tokenService.Verify(tokenString, entity.TokenTypeAccess)
	if err != nil {
		srv.log(ctx).Debug("Access token verification failed", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "token verification failed")
	}

	tokenHash := srv.tokenService.HashToken(tokenString)
	if _, err := srv.tokenRepo.FindActive(ctx, tokenHash, entity.TokenTypeAccess); err != nil {
		srv.log(ctx).Debug("Access token not in ledger", slog.Any("userID", claims.UserID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "token not active")
	}

	user, err := srv.userRepo.FindActiveByID(ctx, claims.UserID)
	if err != nil {
		srv.log(ctx).Debug("Token user not active", slog.Any("userID", claims.UserID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "user not active")
	}

	return user.Identity(), nil
}

// RefreshAccessToken issues a replacement access token under a valid refresh
// token. Prior access tokens of the user are revoked in the same transaction;
// the refresh token itself is not rotated.
func (srv *authService) RefreshAccessToken(ctx context.Context, input *usecase.RefreshInput) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Debug("Attempting to refresh access token")

	claims, err := srv.tokenService.Verify(input.RefreshToken, entity.TokenTypeRefresh)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token verification failed")
	}

	var newAccessToken string
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.TokenRepo()

		// The refresh token must still be live in the ledger.
		tokenHash := srv.tokenService.HashToken(input.RefreshToken)
		if _, err := tokenRepo.FindActive(ctx, tokenHash, entity.TokenTypeRefresh); err != nil {
			return errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token not active")
		}

		user, err := repoFactory.UserRepo().FindActiveByID(ctx, claims.UserID)
		if err != nil {
			return errors.Wrap(domainerrors.ErrInvalidRefreshToken, "user not active")
		}

		// Retire the previous access lineage before minting a new one.
		if err := tokenRepo.RevokeAccessTokens(ctx, user.ID); err != nil {
			return errors.Wrap(err, "failed to revoke previous access tokens")
		}

		newAccessToken, err = srv.tokenService.SignAccess(user)
		if err != nil {
			return errors.Wrap(err, "failed to sign access token")
		}

		entry := srv.ledgerEntry(user.ID, newAccessToken, entity.TokenTypeAccess, time.Now().Add(srv.tokenService.AccessTokenTTL()), input.IPAddress, input.UserAgent)

		return tokenRepo.Create(ctx, entry)
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("userID", claims.UserID), slog.Any("error", err))

		if errors.Is(err, domainerrors.ErrInvalidRefreshToken) {
			return nil, err
		}

		return nil, errors.Wrap(err, "failed to execute refresh transaction")
	}

	return &usecase.RefreshOutput{AccessToken: newAccessToken}, nil
}

// Logout revokes the session identified by the refresh token. The token must
// still be a live ledger row; a dead session fails with
// ErrInvalidRefreshToken.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	srv.log(ctx).Debug("Attempting to log out")

	tokenHash := srv.tokenService.HashToken(input.RefreshToken)
	token, err := srv.tokenRepo.FindActive(ctx, tokenHash, entity.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			srv.log(ctx).Warn("Logout with unknown refresh token")

			return errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token not active")
		}

		return errors.Wrap(err, "failed to find refresh token")
	}

	if err := srv.tokenRepo.RevokeAllForUser(ctx, token.UserID, entity.SessionTypes()...); err != nil {
		srv.log(ctx).Error("Failed to revoke session tokens", slog.Any("userID", token.UserID), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke session tokens")
	}

	srv.audit(ctx, &entity.AuditEntry{
		UserID:    &token.UserID,
		Action:    entity.AuditActionLogout,
		TableName: "tokens",
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	srv.log(ctx).Info("Logged out", slog.Any("userID", token.UserID))

	return nil
}

// LogoutAllDevices revokes every live session of the user.
func (srv *authService) LogoutAllDevices(ctx context.Context, userID uuid.UUID) error {
	srv.log(ctx).Info("Logging out from all devices", slog.Any("userID", userID))

	if err := srv.tokenRepo.RevokeAllForUser(ctx, userID, entity.SessionTypes()...); err != nil {
		return errors.Wrap(err, "failed to revoke all session tokens")
	}

	srv.audit(ctx, &entity.AuditEntry{
		UserID:    &userID,
		Action:    entity.AuditActionLogout,
		TableName: "tokens",
		Details:   "all devices",
	})

	return nil
}

// ForgotPassword starts the reset flow. Active reports whether the per-account
// cooldown is throttling the request; an unknown email returns the same
// inactive shape as a fresh issuance, so the two are indistinguishable.
func (srv *authService) ForgotPassword(ctx context.Context, input *usecase.ForgotPasswordInput) (*usecase.ForgotPasswordOutput, error) {
	now := time.Now()

	user, err := srv.userRepo.FindActiveByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Info("Forgot password for unknown email", slog.String("email", input.Email))

			// The attempt is still recorded; only the account is unresolved.
			srv.audit(ctx, &entity.AuditEntry{
				Action:    entity.AuditActionForgotPassword,
				TableName: "users",
				Details:   "unresolved email",
				IPAddress: input.IPAddress,
				UserAgent: input.UserAgent,
			})

			return &usecase.ForgotPasswordOutput{}, nil
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	// Within the cooldown window nothing new is issued; the existing window
	// is reported back unchanged.
	if user.LastForgotAt != nil {
		windowEnd := user.LastForgotAt.Add(srv.cooldown)
		if windowEnd.After(now) {
			srv.log(ctx).Info("Forgot password throttled", slog.Any("userID", user.ID))

			return &usecase.ForgotPasswordOutput{Active: true, ActiveDate: &windowEnd}, nil
		}
	}

	// Reset tokens are opaque random values, never JWTs.
	resetToken := uuid.NewString()
	expiresAt := now.Add(srv.resetTTL)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		entry := srv.ledgerEntry(user.ID, resetToken, entity.TokenTypeResetPassword, expiresAt, input.IPAddress, input.UserAgent)
		if err := repoFactory.TokenRepo().Create(ctx, entry); err != nil {
			return errors.Wrap(err, "failed to record reset token")
		}

		return repoFactory.UserRepo().UpdateLastForgot(ctx, user.ID, now)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute forgot password transaction", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute forgot password transaction")
	}

	// Mail dispatch is best-effort; the cooldown stands either way.
	if err := srv.mailer.SendResetLink(ctx, user.Email, resetToken, expiresAt); err != nil {
		srv.log(ctx).Error("Failed to send reset link", slog.Any("userID", user.ID), slog.Any("error", err))
	}

	srv.audit(ctx, &entity.AuditEntry{
		UserID:    &user.ID,
		Action:    entity.AuditActionForgotPassword,
		TableName: "users",
		RecordID:  &user.ID,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})

	// A fresh issuance starts the cooldown but reports it inactive, matching
	// the unknown-email shape.
	return &usecase.ForgotPasswordOutput{}, nil
}

// ResetPassword consumes a single-use reset token, replaces the password and
// revokes every live session. Of two concurrent consumers exactly one wins.
func (srv *authService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	// Hash first so a weak password is rejected before the token is burned.
	newHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(err, "failed to hash new password")
	}

	tokenHash := srv.tokenService.HashToken(input.Token)

	var userID uuid.UUID
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.TokenRepo()

		token, err := tokenRepo.FindActive(ctx, tokenHash, entity.TokenTypeResetPassword)
		if err != nil {
			return errors.Wrap(domainerrors.ErrInvalidResetToken, "reset token not active")
		}
		userID = token.UserID

		// Conditional update; the loser of a race gets ErrTokenConsumed.
		if err := tokenRepo.ConsumeSingleUse(ctx, tokenHash); err != nil {
			return errors.Wrap(domainerrors.ErrInvalidResetToken, "reset token already consumed")
		}

		if err := repoFactory.UserRepo().UpdatePassword(ctx, token.UserID, newHash); err != nil {
			return errors.Wrap(err, "failed to update password")
		}

		// A reset invalidates every live session of the account.
		return tokenRepo.RevokeAllForUser(ctx, token.UserID, entity.SessionTypes()...)
	})
	if err != nil {
		srv.log(ctx).Warn("Reset password failed", slog.Any("error", err))

		if errors.Is(err, domainerrors.ErrInvalidResetToken) {
			return err
		}

		return errors.Wrap(err, "failed to execute reset password transaction")
	}

	srv.audit(ctx, &entity.AuditEntry{
		UserID:    &userID,
		Action:    entity.AuditActionResetPassword,
		TableName: "users",
		RecordID:  &userID,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	srv.log(ctx).Info("Password reset completed", slog.Any("userID", userID))

	return nil
}

// ActiveSessions lists the user's live refresh-token sessions, newest first.
func (srv *authService) ActiveSessions(ctx context.Context, userID uuid.UUID) ([]*usecase.SessionInfo, error) {
	tokens, err := srv.tokenRepo.FindActiveByUserID(ctx, userID, entity.TokenTypeRefresh)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active sessions")
	}

	sessions := make([]*usecase.SessionInfo, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, &usecase.SessionInfo{
			ID:        token.ID,
			IPAddress: token.IPAddress,
			UserAgent: token.UserAgent,
			CreatedAt: token.CreatedAt,
			ExpiresAt: token.ExpiresAt,
		})
	}

	return sessions, nil
}

// SweepExpiredTokens removes expired ledger rows and revoked rows past the
// retention window.
func (srv *authService) SweepExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := srv.tokenRepo.DeleteExpired(ctx, srv.retention)
	if err != nil {
		return 0, errors.Wrap(err, "failed to sweep expired tokens")
	}

	if removed > 0 {
		srv.log(ctx).Info("Swept expired tokens", slog.Int64("removed", removed))
	}

	return removed, nil
}

// ledgerEntry builds a ledger row for a freshly issued token.
func (srv *authService) ledgerEntry(userID uuid.UUID, tokenString string, tokenType entity.TokenType, expiresAt time.Time, ip, userAgent string) *entity.Token {
	return &entity.Token{
		UserID:    userID,
		TokenHash: srv.tokenService.HashToken(tokenString),
		Type:      tokenType,
		ExpiresAt: expiresAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}
}
