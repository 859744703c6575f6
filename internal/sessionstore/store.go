// Package sessionstore keeps wizard sessions between requests.
package sessionstore

import (
	"context"
	"errors"

	"github.com/Simplici0/markup/internal/wizard"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store persists wizard sessions by ID.
type Store interface {
	Load(ctx context.Context, id string) (wizard.Session, error)
	Save(ctx context.Context, s wizard.Session) error
	Delete(ctx context.Context, id string) error
}
