package database

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned when a table is required to exist but
	// does not.
	ErrTableNotFound = errors.New("table not found")
	// ErrDatabaseNotFound is returned for a database name that is not
	// configured.
	ErrDatabaseNotFound = errors.New("database not found")
)

// TableNotFoundError names the missing table.
type TableNotFoundError struct {
	Database string
	Table    string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q does not exist in database %q", e.Table, e.Database)
}

func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrTableNotFound
}
