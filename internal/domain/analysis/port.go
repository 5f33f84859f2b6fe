package analysis

import "context"

// Repository port for the security_log table. Records are insert-only.
type Repository interface {
	// Insert stores r and fills in its ID and CreatedAt.
	Insert(ctx context.Context, r *Record) error
	FindAll(ctx context.Context) ([]*Record, error)
	FindByJailbreakCategory(ctx context.Context, category string) ([]*Record, error)
	FindByHarmfulnessCategory(ctx context.Context, category string) ([]*Record, error)
}

// Archive port for an optional copy of every stored record outside the database.
type Archive interface {
	Put(ctx context.Context, r *Record) (string, error)
}
