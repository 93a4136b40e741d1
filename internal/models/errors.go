// internal/models/errors.go
package models

import "errors"

// Expected local outcomes. Callers translate these into guidance text;
// anything else is a storage failure and is surfaced generically.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateName      = errors.New("group name already exists")
	ErrDuplicateRecipient = errors.New("recipient already assigned")
	ErrEmptyText          = errors.New("task text is empty")
	ErrNoMatch            = errors.New("no open task matches")
)
