package archive

import (
	"context"
	"sort"
	"sync"

	"iconforge/internal/domain"
)

// MemoryRepository is an IconRepository for deployments without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	icons map[string]domain.Icon
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{icons: make(map[string]domain.Icon)}
}

func (m *MemoryRepository) Save(ctx context.Context, icon *domain.Icon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *icon
	stored.Data = nil
	m.icons[icon.ID] = stored
	return nil
}

func (m *MemoryRepository) ListByAccount(ctx context.Context, accountKey string, limit int) ([]domain.Icon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Icon, 0)
	for _, icon := range m.icons {
		if icon.AccountKey == accountKey {
			out = append(out, icon)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id, accountKey string) (*domain.Icon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	icon, ok := m.icons[id]
	if !ok || icon.AccountKey != accountKey {
		return nil, domain.ErrNotFound
	}
	return &icon, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id, accountKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	icon, ok := m.icons[id]
	if !ok || icon.AccountKey != accountKey {
		return domain.ErrNotFound
	}
	delete(m.icons, id)
	return nil
}

func (m *MemoryRepository) SetFavorite(ctx context.Context, id, accountKey string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	icon, ok := m.icons[id]
	if !ok || icon.AccountKey != accountKey {
		return domain.ErrNotFound
	}
	icon.Favorite = favorite
	m.icons[id] = icon
	return nil
}

var _ domain.IconRepository = (*MemoryRepository)(nil)
