package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// This allows the use case layer to handle transactions without depending on a specific DB driver like GORM.
type TransactionManager interface {
	// Execute runs a function within a database transaction.
	// If the function returns an error, the transaction is rolled back. Otherwise, it's committed.
	// All repository operations within the function will use the same database transaction.
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}

// RepositoryFactory provides repository instances bound to one transaction,
// so every operation inside an Execute callback shares the same connection.
type RepositoryFactory interface {
	// UserRepo returns a UserRepository bound to the current transaction.
	UserRepo() UserRepository

	// TokenRepo returns a TokenRepository bound to the current transaction.
	TokenRepo() TokenRepository

	// PermissionRepo returns a PermissionRepository bound to the current transaction.
	PermissionRepo() PermissionRepository

	// AuditRepo returns an AuditRepository bound to the current transaction.
	AuditRepo() AuditRepository
}
