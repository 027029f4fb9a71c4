// Package store persists messages and account records. The message store
// has two backends: sqlite (default, also holds accounts) and scylla.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ridwanf/dmrelay/pkg/model"
)

// MessageStore is the durable, ordered log of messages between user pairs.
// Append is the only mutator.
type MessageStore interface {
	// Append persists a message and returns the stored copy with its
	// store-assigned id. Failures wrap model.ErrStorageUnavailable.
	Append(ctx context.Context, fromID, toID int64, content string, ts time.Time) (model.Message, error)

	// Range returns every message between the unordered pair {userA, userB}
	// in either direction, ascending timestamp, id as the tiebreak. It is a
	// pure query and never returns partial data on error.
	Range(ctx context.Context, userA, userB int64) ([]model.Message, error)
}

// UserStore owns account records. Out of the delivery core; the id space it
// assigns is what messages and tokens reference.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, error)
	UserByID(ctx context.Context, id int64) (model.User, error)
	ListUsersExcept(ctx context.Context, id int64) ([]model.User, error)
}

// PairKey is the canonical conversation key for a user pair, identical for
// both message directions. Used as the scylla partition key and the kafka
// message key.
func PairKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("dm:%d:%d", userA, userB)
}
