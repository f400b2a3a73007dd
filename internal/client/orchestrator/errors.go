package orchestrator

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAuditCompleted    = errors.New("audit is completed")
	ErrReadOnlyTemplate  = errors.New("built-in template is read-only")
	ErrReservedID        = errors.New("id is reserved for built-in templates")
)
