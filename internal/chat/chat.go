// Package chat manages stored AI chat conversations and which one is
// currently open.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penosext/pentools/internal/store"
	"github.com/penosext/pentools/pkg/types"
)

const currentKey = "chat_current"

var (
	ErrNotFound     = store.ErrNotFound
	ErrInvalidTitle = errors.New("title cannot be empty")
)

// Service lists, creates and switches conversations.
type Service struct {
	st  *store.Store
	now func() time.Time
	mu  sync.Mutex
}

// NewService creates a Service over st.
func NewService(st *store.Store) *Service {
	return &Service{st: st, now: time.Now}
}

// List returns conversations newest first, filtered by a case-insensitive
// title keyword when non-empty.
func (s *Service) List(ctx context.Context, keyword string) ([]types.Conversation, error) {
	rows, err := s.st.ListConversations(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	current, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, toConversation(r, current))
	}
	return out, nil
}

// Create stores a new conversation and makes it current. An empty title
// becomes "New chat <unix ms>".
func (s *Service) Create(ctx context.Context, title string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("New chat %d", now)
	}
	row := store.ConversationRow{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.InsertConversation(ctx, row); err != nil {
		return nil, err
	}
	if err := s.st.SetSetting(ctx, currentKey, row.ID); err != nil {
		return nil, err
	}
	c := toConversation(row, row.ID)
	return &c, nil
}

// Load makes id the current conversation.
func (s *Service) Load(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.st.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.st.SetSetting(ctx, currentKey, row.ID); err != nil {
		return nil, err
	}
	c := toConversation(*row, row.ID)
	return &c, nil
}

// Delete removes id. If it was current, the newest remaining conversation
// becomes current, or none when the list is empty.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.st.DeleteConversation(ctx, id); err != nil {
		return err
	}
	current, err := s.currentID(ctx)
	if err != nil || current != id {
		return err
	}

	rows, err := s.st.ListConversations(ctx, "")
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	if len(rows) == 0 {
		return s.st.DeleteSetting(ctx, currentKey)
	}
	return s.st.SetSetting(ctx, currentKey, rows[0].ID)
}

// Rename sets a trimmed, non-empty title. An unchanged title is a no-op.
func (s *Service) Rename(ctx context.Context, id, title string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidTitle
	}
	row, err := s.st.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	current, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	if row.Title == title {
		c := toConversation(*row, current)
		return &c, nil
	}

	row.Title = title
	row.UpdatedAt = s.now().UnixMilli()
	if err := s.st.UpdateConversationTitle(ctx, id, title, row.UpdatedAt); err != nil {
		return nil, err
	}
	c := toConversation(*row, current)
	return &c, nil
}

// Current returns the current conversation, or nil when none is open.
func (s *Service) Current(ctx context.Context) (*types.Conversation, error) {
	id, err := s.currentID(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	row, err := s.st.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := toConversation(*row, id)
	return &c, nil
}

func (s *Service) currentID(ctx context.Context) (string, error) {
	id, err := s.st.GetSetting(ctx, currentKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return id, err
}

func toConversation(r store.ConversationRow, current string) types.Conversation {
	return types.Conversation{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		UpdatedAt: time.UnixMilli(r.UpdatedAt),
		Current:   r.ID == current,
	}
}
