package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scanbrief/pkg/domain"
)

// MemoryStore keeps users and history in-process. It backs tests and
// database-less development runs, and mirrors GormStore semantics exactly:
// same ordering, same ownership rules, same zeroed aggregate for empty
// histories.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	email map[string]string // email -> user ID
	items []domain.ProcessedItem
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		email: make(map[string]string),
	}
}

// SaveUser stores or replaces a user record.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existingID, ok := m.email[u.Email]; ok && existingID != u.ID {
		return fmt.Errorf("email already registered")
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if an email is registered.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns all users ordered by creation time.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// AppendItem stores one processed item and returns its ID.
func (m *MemoryStore) AppendItem(_ context.Context, item domain.ProcessedItem) (string, error) {
	if err := validateItem(item); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[item.UserID]; !ok {
		return "", fmt.Errorf("%w: unknown user %q", ErrInvalidItem, item.UserID)
	}
	m.items = append(m.items, item)
	return item.ID, nil
}

// GetItem returns one item after an ownership check.
func (m *MemoryStore) GetItem(_ context.Context, userID, itemID string) (domain.ProcessedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.items {
		if item.ID == itemID && item.UserID == userID {
			return item, nil
		}
	}
	return domain.ProcessedItem{}, ErrNotFound
}

// ListItems returns a user's history newest first, narrowed by filter.
func (m *MemoryStore) ListItems(_ context.Context, userID string, filter Filter, limit int) ([]domain.ProcessedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	res := make([]domain.ProcessedItem, 0)
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		if query != "" && !matchesQuery(item, query) {
			continue
		}
		if !filter.From.IsZero() && item.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && item.CreatedAt.After(filter.To) {
			continue
		}
		res = append(res, item)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// DeleteItem removes one item after an ownership check.
func (m *MemoryStore) DeleteItem(_ context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.ID == itemID && item.UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Aggregate computes a user's analytics from their history.
func (m *MemoryStore) Aggregate(_ context.Context, userID string) (domain.AnalyticsSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := domain.AnalyticsSummary{LanguageBreakdown: map[string]int64{}}
	days := make(map[string]struct{})
	var totalMs int64
	for _, item := range m.items {
		if item.UserID != userID {
			continue
		}
		summary.TotalItems++
		summary.TotalTokens += int64(item.TokenUsage)
		totalMs += item.ProcessingDuration.Milliseconds()
		days[item.CreatedAt.UTC().Format("2006-01-02")] = struct{}{}
		lang := item.Settings.SummaryLanguage
		if lang == "" {
			lang = "unknown"
		}
		summary.LanguageBreakdown[lang]++
	}
	if summary.TotalItems > 0 {
		summary.AvgProcessingMs = float64(totalMs) / float64(summary.TotalItems)
	}
	summary.ActiveDays = len(days)
	return summary, nil
}

// AdminOverview aggregates usage across all users.
func (m *MemoryStore) AdminOverview(_ context.Context) (domain.AdminOverview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	overview := domain.AdminOverview{TotalUsers: len(m.users), TotalItems: len(m.items)}
	today := time.Now().UTC().Format("2006-01-02")
	for _, item := range m.items {
		overview.TotalTokens += int64(item.TokenUsage)
		if item.CreatedAt.UTC().Format("2006-01-02") == today {
			overview.ItemsToday++
		}
	}
	return overview, nil
}

func matchesQuery(item domain.ProcessedItem, lowered string) bool {
	return strings.Contains(strings.ToLower(item.SourceFilename), lowered) ||
		strings.Contains(strings.ToLower(item.ExtractedText), lowered) ||
		strings.Contains(strings.ToLower(item.Summary), lowered)
}
