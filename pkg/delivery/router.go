// Package delivery turns an authenticated "send to X" intent into a durable
// record and a best-effort live push.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ridwanf/dmrelay/pkg/model"
	"github.com/ridwanf/dmrelay/pkg/presence"
	"github.com/ridwanf/dmrelay/pkg/store"
)

// Registry is the presence lookup the router needs. An interface so a
// future multi-process deployment can swap in a shared registry without
// touching the routing logic.
type Registry interface {
	Lookup(userID int64) (presence.Conn, bool)
}

// Publisher taps accepted messages for downstream consumers. Publishing is
// best effort and never affects the send.
type Publisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type Router struct {
	store     store.MessageStore
	registry  Registry
	publisher Publisher // nil disables the firehose
	logger    *slog.Logger
}

func NewRouter(messages store.MessageStore, registry Registry, publisher Publisher, logger *slog.Logger) *Router {
	return &Router{
		store:     messages,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
	}
}

// Send validates, persists, and routes one message. The persisted copy
// exists before any delivery is attempted: a message that failed to persist
// is never delivered, and the error tells the sender so. Recipient absence
// is not an error; the store is the catch-up mechanism.
func (r *Router) Send(ctx context.Context, fromID, toID int64, content string) (model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, fmt.Errorf("%w: empty content", model.ErrValidation)
	}
	if toID <= 0 {
		return model.Message{}, fmt.Errorf("%w: missing recipient", model.ErrValidation)
	}

	msg, err := r.store.Append(ctx, fromID, toID, content, time.Now().UTC())
	if err != nil {
		return model.Message{}, fmt.Errorf("persisting message: %w", err)
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, msg); err != nil {
			r.logger.Warn("publishing message event", "message_id", msg.ID, "error", err)
		}
	}

	// One payload for both pushes, built from the stored copy so delivered
	// and persisted fields agree.
	ev := model.MessageEvent(msg)

	if conn, ok := r.registry.Lookup(toID); ok {
		if !conn.Deliver(ev) {
			r.logger.Debug("recipient handle not accepting events", "user_id", toID, "message_id", msg.ID)
		}
	}

	// Echo to the sender regardless of recipient presence. The sender may
	// already be gone; lookup returning absent covers that.
	if conn, ok := r.registry.Lookup(fromID); ok {
		conn.Deliver(ev)
	}

	return msg, nil
}

// History returns the conversation between two users in store order.
func (r *Router) History(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	messages, err := r.store.Range(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return messages, nil
}
