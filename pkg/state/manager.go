// Package state implements the persistence lifecycle for conversation and
// user records over a ports.StateStore: read at the start of a turn, mutate
// in memory, write back conditionally at the end.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/parleyio/parley/internal/logging"
	"github.com/parleyio/parley/pkg/domain"
	"github.com/parleyio/parley/pkg/ports"
)

// Manager loads and saves records with optimistic concurrency. It holds no
// per-conversation state itself; the etag returned by a load must be handed
// back to the matching save.
type Manager struct {
	store  ports.StateStore
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a record manager over the given store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore { return m.store }

// LoadConversation retrieves the record for a conversation, or a fresh one
// (with the empty etag) when none exists yet.
func (m *Manager) LoadConversation(ctx context.Context, conversationID string) (*domain.ConversationRecord, string, error) {
	data, etag, err := m.store.Get(ctx, ports.ConversationKey(conversationID))
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NewConversationRecord(), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	record := domain.NewConversationRecord()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, "", fmt.Errorf("decode conversation %s: %w", conversationID, err)
	}
	if record.Stack == nil {
		record.Stack = domain.NewStack()
	}
	return record, etag, nil
}

// SaveConversation writes the record back, failing with domain.ErrConflict
// when a racing turn got there first. Returns the new etag.
func (m *Manager) SaveConversation(ctx context.Context, conversationID string, record *domain.ConversationRecord, etag string) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode conversation %s: %w", conversationID, err)
	}

	next, err := m.store.Put(ctx, ports.ConversationKey(conversationID), data, etag)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("save conversation %s: %w", conversationID, err)
	}
	return next, nil
}

// ClearConversation removes the record entirely; the next turn starts clean.
func (m *Manager) ClearConversation(ctx context.Context, conversationID string) error {
	if err := m.store.Delete(ctx, ports.ConversationKey(conversationID)); err != nil {
		return fmt.Errorf("clear conversation %s: %w", conversationID, err)
	}
	return nil
}

// ClearUser drops a user's cached values, forcing the next turn to rebuild
// them.
func (m *Manager) ClearUser(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, ports.UserKey(userID)); err != nil {
		return fmt.Errorf("clear user %s: %w", userID, err)
	}
	return nil
}

// LoadUser retrieves the cross-conversation record for a user, or a fresh
// one when none exists.
func (m *Manager) LoadUser(ctx context.Context, userID string) (*domain.UserRecord, string, error) {
	data, etag, err := m.store.Get(ctx, ports.UserKey(userID))
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NewUserRecord(), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user %s: %w", userID, err)
	}

	record := domain.NewUserRecord()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, "", fmt.Errorf("decode user %s: %w", userID, err)
	}
	if record.Values == nil {
		record.Values = make(map[string]any)
	}
	return record, etag, nil
}

// SaveUser writes the user record back conditionally.
func (m *Manager) SaveUser(ctx context.Context, userID string, record *domain.UserRecord, etag string) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode user %s: %w", userID, err)
	}

	next, err := m.store.Put(ctx, ports.UserKey(userID), data, etag)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		return "", fmt.Errorf("save user %s: %w", userID, err)
	}
	return next, nil
}
