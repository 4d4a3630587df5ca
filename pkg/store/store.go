package store

import (
	"context"
	"errors"
	"time"

	"scanbrief/pkg/domain"
)

// ErrNotFound is returned when an item does not exist or is owned by another
// user. The two cases are deliberately indistinguishable to the caller.
var ErrNotFound = errors.New("item not found")

// ErrInvalidItem is returned when an item violates a data invariant, such as
// negative token usage or a missing user reference.
var ErrInvalidItem = errors.New("invalid item")

// Filter narrows a history listing. Query matches case-insensitively against
// filename, extracted text, and summary. Zero time bounds are ignored.
type Filter struct {
	Query string
	From  time.Time
	To    time.Time
}

// Store defines persistence for users and the processed-item history.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	UserCount() (int, error)

	// history
	AppendItem(ctx context.Context, item domain.ProcessedItem) (string, error)
	GetItem(ctx context.Context, userID, itemID string) (domain.ProcessedItem, error)
	ListItems(ctx context.Context, userID string, filter Filter, limit int) ([]domain.ProcessedItem, error)
	DeleteItem(ctx context.Context, userID, itemID string) error

	// analytics, recomputed on every call
	Aggregate(ctx context.Context, userID string) (domain.AnalyticsSummary, error)
	AdminOverview(ctx context.Context) (domain.AdminOverview, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
