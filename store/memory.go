package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"skitbot/common"
	"skitbot/types"

	"github.com/google/uuid"
)

// MemoryStore keeps every record in process memory. It is used for local runs
// without a database and in tests.
type MemoryStore struct {
	mu           sync.RWMutex
	compositions map[string]*types.Composition
	order        []string
	templates    map[string]*types.Template
	templateCast map[string][]string
	characters   map[string]*types.Character
	now          func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		compositions: make(map[string]*types.Composition),
		templates:    make(map[string]*types.Template),
		templateCast: make(map[string][]string),
		characters:   make(map[string]*types.Character),
		now:          time.Now,
	}
}

func (m *MemoryStore) CreateComposition(ctx context.Context, c *types.Composition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := m.compositions[c.ID]; exists {
		return common.NewValidationError("composition %s already exists", c.ID)
	}
	now := m.now()
	c.CreatedAt, c.UpdatedAt = now, now
	m.compositions[c.ID] = c.Clone()
	m.order = append(m.order, c.ID)
	return nil
}

func (m *MemoryStore) GetComposition(ctx context.Context, id string) (*types.Composition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.compositions[id]
	if !ok {
		return nil, common.NewNotFoundError("composition", id)
	}
	return c.Clone(), nil
}

func (m *MemoryStore) UpdateComposition(ctx context.Context, id string, u types.CompositionUpdate) (*types.Composition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.compositions[id]
	if !ok {
		return nil, common.NewNotFoundError("composition", id)
	}
	u.Apply(c)
	c.UpdatedAt = m.now()
	return c.Clone(), nil
}

func (m *MemoryStore) ListCompositions(ctx context.Context, limit int) ([]types.Composition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = ClampLimit(limit)
	out := make([]types.Composition, 0, limit)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.compositions[m.order[i]].Clone())
	}
	return out, nil
}

func (m *MemoryStore) SaveTemplate(ctx context.Context, t *types.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cast := make([]string, 0, len(t.Characters))
	for _, ch := range t.Characters {
		if _, ok := m.characters[ch.ID]; !ok {
			return common.NewNotFoundError("character", ch.ID)
		}
		cast = append(cast, ch.ID)
	}

	now := m.now()
	if existing, ok := m.templates[t.ID]; ok {
		t.CreatedAt = existing.CreatedAt
	} else {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	stored := *t
	stored.Characters = nil
	m.templates[t.ID] = &stored
	m.templateCast[t.ID] = cast
	return nil
}

func (m *MemoryStore) GetTemplate(ctx context.Context, id string) (*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, common.NewNotFoundError("template", id)
	}
	return m.expandTemplate(t), nil
}

func (m *MemoryStore) GetTemplateByName(ctx context.Context, name string) (*types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.templates {
		if t.Name == name {
			return m.expandTemplate(t), nil
		}
	}
	return nil, common.NewNotFoundError("template", name)
}

func (m *MemoryStore) ListTemplates(ctx context.Context) ([]types.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, *m.expandTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteTemplate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return common.NewNotFoundError("template", id)
	}
	delete(m.templates, id)
	delete(m.templateCast, id)
	return nil
}

// expandTemplate copies t with its current characters attached. Callers hold m.mu.
func (m *MemoryStore) expandTemplate(t *types.Template) *types.Template {
	out := *t
	out.Characters = make([]types.Character, 0, len(m.templateCast[t.ID]))
	for _, id := range m.templateCast[t.ID] {
		if ch, ok := m.characters[id]; ok {
			out.Characters = append(out.Characters, *ch)
		}
	}
	return &out
}

func (m *MemoryStore) CreateCharacter(ctx context.Context, c *types.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(c.Name) == "" {
		return common.NewValidationError("character name is required")
	}
	for _, existing := range m.characters {
		if strings.EqualFold(existing.Name, c.Name) {
			return common.NewValidationError("character %q already exists", c.Name)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := m.now()
	c.CreatedAt, c.UpdatedAt = now, now
	stored := *c
	m.characters[c.ID] = &stored
	return nil
}

func (m *MemoryStore) GetCharacter(ctx context.Context, id string) (*types.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.characters[id]
	if !ok {
		return nil, common.NewNotFoundError("character", id)
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) GetCharacterByName(ctx context.Context, name string) (*types.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.characters {
		if strings.EqualFold(c.Name, name) {
			out := *c
			return &out, nil
		}
	}
	return nil, common.NewNotFoundError("character", name)
}

func (m *MemoryStore) ListCharacters(ctx context.Context) ([]types.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Character, 0, len(m.characters))
	for _, c := range m.characters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateCharacter(ctx context.Context, c *types.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.characters[c.ID]
	if !ok {
		return common.NewNotFoundError("character", c.ID)
	}
	c.Name = existing.Name
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = m.now()
	stored := *c
	m.characters[c.ID] = &stored
	return nil
}

func (m *MemoryStore) DeleteCharacter(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.characters[id]; !ok {
		return common.NewNotFoundError("character", id)
	}
	delete(m.characters, id)
	for tid, cast := range m.templateCast {
		kept := cast[:0:0]
		for _, cid := range cast {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		m.templateCast[tid] = kept
	}
	return nil
}
