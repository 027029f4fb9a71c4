package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/ridwanf/dmrelay/pkg/model"
	"github.com/ridwanf/dmrelay/pkg/snowflake"
)

// Scylla is the message store backend for larger deployments. Messages are
// partitioned by the canonical pair key and clustered by (timestamp, id), so
// Range is a single-partition read in the contract's order. Scylla cannot
// assign sequential ids, so a snowflake node generates them client-side.
//
// Scylla holds messages only; account records stay in sqlite.
type Scylla struct {
	session *gocql.Session
	ids     *snowflake.Node
}

func OpenScylla(hosts []string, keyspace string, nodeID int64) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connecting to scylla: %w", err)
	}

	ids, err := snowflake.NewNode(nodeID)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("creating id generator: %w", err)
	}

	return &Scylla{session: session, ids: ids}, nil
}

func (s *Scylla) Close() {
	s.session.Close()
}

func (s *Scylla) Append(ctx context.Context, fromID, toID int64, content string, ts time.Time) (model.Message, error) {
	msg := model.Message{
		ID:        s.ids.Generate(),
		FromID:    fromID,
		ToID:      toID,
		Content:   content,
		Timestamp: ts.UTC(),
	}

	err := s.session.Query(
		`INSERT INTO messages (pair, id, from_id, to_id, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		PairKey(fromID, toID), msg.ID, msg.FromID, msg.ToID, msg.Content, msg.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: inserting message: %v", model.ErrStorageUnavailable, err)
	}

	return msg, nil
}

func (s *Scylla) Range(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT id, from_id, to_id, content, timestamp FROM messages WHERE pair = ?`,
		PairKey(userA, userB),
	).WithContext(ctx).Iter()

	messages := []model.Message{}
	var msg model.Message
	for iter.Scan(&msg.ID, &msg.FromID, &msg.ToID, &msg.Content, &msg.Timestamp) {
		messages = append(messages, msg)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", model.ErrStorageUnavailable, err)
	}
	return messages, nil
}
