package graph

import "context"

// Store executes parametrized statements against a graph backend. Values always travel
// as parameters; statement text is built only from validated identifiers.
type Store interface {
	// ExecuteWrite runs one statement in its own auto-committed write transaction.
	ExecuteWrite(ctx context.Context, statement string, params map[string]any) error
	// ExecuteRead runs one statement and returns every row keyed by column name.
	ExecuteRead(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error)
	// DeclareUniqueConstraint declares keys unique for label. Declaring an existing
	// constraint is a no-op.
	DeclareUniqueConstraint(ctx context.Context, label string, keys ...string) error
}
