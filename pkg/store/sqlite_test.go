package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanf/dmrelay/pkg/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAssignsIncreasingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		msg, err := s.Append(ctx, 1, 2, "hello", time.Now())
		require.NoError(t, err)
		assert.Greater(t, msg.ID, prev)
		prev = msg.ID
	}
}

func TestRangeReturnsBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, 1, 2, "hi", base)
	require.NoError(t, err)
	_, err = s.Append(ctx, 2, 1, "hey back", base.Add(time.Second))
	require.NoError(t, err)
	_, err = s.Append(ctx, 1, 3, "other conversation", base.Add(2*time.Second))
	require.NoError(t, err)

	msgs, err := s.Range(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hey back", msgs[1].Content)

	// The pair is unordered: both query directions return the same rows.
	reversed, err := s.Range(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, msgs, reversed)
}

func TestRangeOrdersByTimestampThenID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of timestamp order on purpose.
	second, err := s.Append(ctx, 1, 2, "second", base.Add(time.Minute))
	require.NoError(t, err)
	first, err := s.Append(ctx, 1, 2, "first", base)
	require.NoError(t, err)
	// Same timestamp as "second": insertion order breaks the tie.
	third, err := s.Append(ctx, 2, 1, "third", base.Add(time.Minute))
	require.NoError(t, err)

	msgs, err := s.Range(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, second.ID, msgs[1].ID)
	assert.Equal(t, third.ID, msgs[2].ID)
}

func TestRangeEmptyConversation(t *testing.T) {
	s := newTestStore(t)
	msgs, err := s.Range(context.Background(), 8, 9)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	assert.Positive(t, user.ID)

	_, err = s.CreateUser(ctx, "alice again", "alice@example.com", "hash2")
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestUserLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "bob", "bob@example.com", "hash")
	require.NoError(t, err)

	byEmail, err := s.UserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, byEmail)

	byID, err := s.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestListUsersExcept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "alice@example.com", "hash")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "bob@example.com", "hash")
	require.NoError(t, err)

	users, err := s.ListUsersExcept(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)
}

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, PairKey(1, 2), PairKey(2, 1))
	assert.Equal(t, "dm:1:2", PairKey(2, 1))
}
