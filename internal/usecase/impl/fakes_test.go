package impl

import (
	"context"
	"sync"
	"time"

	"cms/internal/domain/entity"
	"cms/internal/domain/repository"

	"github.com/google/uuid"
)

// In-memory repository fakes backing the service tests. They mirror the SQL
// predicates of the real repositories closely enough to exercise the
// revocation and single-use semantics.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}

	return repo
}

func (f *fakeUserRepo) FindActiveByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email && user.CanAuthenticate() {
			copied := *user

			return &copied, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindActiveByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user, ok := f.users[id]; ok && user.CanAuthenticate() {
		copied := *user

		return &copied, nil
	}

	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return f.update(id, func(user *entity.User) { user.LastLoginAt = &at })
}

func (f *fakeUserRepo) UpdateLastForgot(_ context.Context, id uuid.UUID, at time.Time) error {
	return f.update(id, func(user *entity.User) { user.LastForgotAt = &at })
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return f.update(id, func(user *entity.User) { user.PasswordHash = passwordHash })
}

func (f *fakeUserRepo) update(id uuid.UUID, mutate func(*entity.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	mutate(user)

	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*entity.Token // keyed by token hash
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*entity.Token)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *entity.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	copied := *token
	f.tokens[token.TokenHash] = &copied

	return nil
}

func (f *fakeTokenRepo) FindActive(_ context.Context, tokenHash string, tokenType entity.TokenType) (*entity.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[tokenHash]
	if !ok || token.Type != tokenType || !token.Usable(time.Now()) {
		return nil, repository.ErrTokenNotFound
	}
	copied := *token

	return &copied, nil
}

func (f *fakeTokenRepo) FindActiveByUserID(_ context.Context, userID uuid.UUID, tokenType entity.TokenType) ([]*entity.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var tokens []*entity.Token
	for _, token := range f.tokens {
		if token.UserID == userID && token.Type == tokenType && token.Usable(now) {
			copied := *token
			tokens = append(tokens, &copied)
		}
	}

	return tokens, nil
}

func (f *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID, types ...entity.TokenType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, token := range f.tokens {
		if token.UserID != userID || !token.Usable(now) {
			continue
		}
		for _, tokenType := range types {
			if token.Type == tokenType {
				token.IsRevoked = true

				break
			}
		}
	}

	return nil
}

func (f *fakeTokenRepo) RevokeAccessTokens(ctx context.Context, userID uuid.UUID) error {
	return f.RevokeAllForUser(ctx, userID, entity.TokenTypeAccess)
}

func (f *fakeTokenRepo) ConsumeSingleUse(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	token, ok := f.tokens[tokenHash]
	if !ok || !token.Usable(now) {
		return repository.ErrTokenConsumed
	}
	token.IsRevoked = true
	token.UsedAt = &now

	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context, retention time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var removed int64
	for hash, token := range f.tokens {
		if token.ExpiresAt.Before(now) || (token.IsRevoked && token.CreatedAt.Before(now.Add(-retention))) {
			delete(f.tokens, hash)
			removed++
		}
	}

	return removed, nil
}

// usableCount reports live ledger rows of one type for assertions.
func (f *fakeTokenRepo) usableCount(userID uuid.UUID, tokenType entity.TokenType) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	count := 0
	for _, token := range f.tokens {
		if token.UserID == userID && token.Type == tokenType && token.Usable(now) {
			count++
		}
	}

	return count
}

type fakePermissionRepo struct {
	grants map[string]bool
}

func newFakePermissionRepo() *fakePermissionRepo {
	return &fakePermissionRepo{grants: make(map[string]bool)}
}

func (f *fakePermissionRepo) grant(roleID uuid.UUID, resource entity.Resource, action entity.Action) {
	f.grants[entity.PermissionCacheKey(resource, action, roleID)] = true
}

func (f *fakePermissionRepo) Exists(_ context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error) {
	return f.grants[entity.PermissionCacheKey(resource, action, roleID)], nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *entity.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)

	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, limit, offset int) ([]*entity.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if offset >= len(f.entries) {
		return nil, nil
	}
	end := min(offset+limit, len(f.entries))

	return f.entries[offset:end], nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	actions := make([]string, 0, len(f.entries))
	for _, entry := range f.entries {
		actions = append(actions, entry.Action)
	}

	return actions
}

// fakeFactory hands the shared fakes to transactional callbacks.
type fakeFactory struct {
	userRepo       *fakeUserRepo
	tokenRepo      *fakeTokenRepo
	permissionRepo *fakePermissionRepo
	auditRepo      *fakeAuditRepo
}

func (f *fakeFactory) UserRepo() repository.UserRepository             { return f.userRepo }
func (f *fakeFactory) TokenRepo() repository.TokenRepository           { return f.tokenRepo }
func (f *fakeFactory) PermissionRepo() repository.PermissionRepository { return f.permissionRepo }
func (f *fakeFactory) AuditRepo() repository.AuditRepository           { return f.auditRepo }

// fakeTxManager runs callbacks directly against the shared fakes. Rollback
// semantics are not simulated; the tests assert behavior on the success and
// early-return paths.
type fakeTxManager struct {
	factory *fakeFactory
}

func (f *fakeTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(f.factory)
}

type fakeMailer struct {
	mu     sync.Mutex
	tokens []string
	emails []string
}

func (f *fakeMailer) SendResetLink(_ context.Context, email, token string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.emails = append(f.emails, email)
	f.tokens = append(f.tokens, token)

	return nil
}

func (f *fakeMailer) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.tokens)
}

func (f *fakeMailer) lastToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.tokens) == 0 {
		return ""
	}

	return f.tokens[len(f.tokens)-1]
}
