package saascore

import "context"

// The database layer is a declared placeholder: no billing or
// subscription persistence exists yet, and these functions exist so that
// consuming services compile against a stable surface today. All of them
// fail with a KindDatabase error until a future phase wires a real pool.

// ErrDatabaseNotImplemented is returned by every database function.
var ErrDatabaseNotImplemented = &Error{
	Kind:    KindDatabase,
	Code:    ErrorCodeNotImplemented,
	Message: "database functionality is not yet implemented",
}

// InitDB would initialize the database connection pool.
func InitDB(databaseURL string) error {
	return ErrDatabaseNotImplemented
}

// GetDB would hand out a database session scoped to ctx.
func GetDB(ctx context.Context) (interface{}, error) {
	return nil, ErrDatabaseNotImplemented
}

// CloseDB would tear down the database connection pool.
func CloseDB() error {
	return ErrDatabaseNotImplemented
}
