package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/ridwanf/dmrelay/pkg/model"
)

// SQLite backs both the message log and the account table with a single
// database file. Message ids come from the autoincrement rowid, so they are
// unique and strictly increasing across concurrent appends.
type SQLite struct {
	db *sqlx.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	_, err := s.db.Exec(`create table if not exists users(
		id       integer primary key autoincrement,
		name     text not null,
		email    text unique not null,
		password text not null
	)`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = s.db.Exec(`create table if not exists messages(
		id        integer primary key autoincrement,
		from_id   integer not null,
		to_id     integer not null,
		content   text not null,
		timestamp datetime not null
	)`)
	if err != nil {
		return fmt.Errorf("creating messages table: %w", err)
	}

	_, err = s.db.Exec(`create index if not exists idx_messages_pair
		on messages(from_id, to_id, timestamp)`)
	if err != nil {
		return fmt.Errorf("creating messages index: %w", err)
	}

	return nil
}

func (s *SQLite) Append(ctx context.Context, fromID, toID int64, content string, ts time.Time) (model.Message, error) {
	res, err := s.db.ExecContext(ctx,
		`insert into messages (from_id, to_id, content, timestamp) values (?, ?, ?, ?)`,
		fromID, toID, content, ts.UTC())
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: inserting message: %v", model.ErrStorageUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: reading message id: %v", model.ErrStorageUnavailable, err)
	}

	return model.Message{
		ID:        id,
		FromID:    fromID,
		ToID:      toID,
		Content:   content,
		Timestamp: ts.UTC(),
	}, nil
}

func (s *SQLite) Range(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	messages := []model.Message{}
	err := s.db.SelectContext(ctx, &messages,
		`select id, from_id, to_id, content, timestamp from messages
		 where (from_id = ? and to_id = ?) or (from_id = ? and to_id = ?)
		 order by timestamp asc, id asc`,
		userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %v", model.ErrStorageUnavailable, err)
	}
	return messages, nil
}

func (s *SQLite) CreateUser(ctx context.Context, name, email, passwordHash string) (model.User, error) {
	res, err := s.db.ExecContext(ctx,
		`insert into users (name, email, password) values (?, ?, ?)`,
		name, email, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("%w: inserting user: %v", model.ErrStorageUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("%w: reading user id: %v", model.ErrStorageUnavailable, err)
	}

	return model.User{ID: id, Name: name, Email: email, PasswordHash: passwordHash}, nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (model.User, error) {
	user := model.User{}
	err := s.db.GetContext(ctx, &user,
		`select id, name, email, password from users where email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: querying user: %v", model.ErrStorageUnavailable, err)
	}
	return user, nil
}

func (s *SQLite) UserByID(ctx context.Context, id int64) (model.User, error) {
	user := model.User{}
	err := s.db.GetContext(ctx, &user,
		`select id, name, email, password from users where id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: querying user: %v", model.ErrStorageUnavailable, err)
	}
	return user, nil
}

func (s *SQLite) ListUsersExcept(ctx context.Context, id int64) ([]model.User, error) {
	users := []model.User{}
	err := s.db.SelectContext(ctx, &users,
		`select id, name, email, password from users where id != ? order by id asc`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", model.ErrStorageUnavailable, err)
	}
	return users, nil
}
