package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/db"
)

// Store persists settings rows.
type Store interface {
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	UpdateValue(ctx context.Context, key, value string) (*Setting, error)
	// Seed inserts rows whose key is absent and reports how many were added.
	Seed(ctx context.Context, rows []Setting) (int, error)
}

const settingColumns = `id, key, value, type, description, updated_at`

type PgStore struct {
	db db.DBTX
}

func NewPgStore(conn db.DBTX) *PgStore {
	if conn == nil {
		panic("settings: database handle required")
	}
	return &PgStore{db: conn}
}

func scanSetting(row pgx.Row) (*Setting, error) {
	var s Setting
	if err := row.Scan(&s.ID, &s.Key, &s.Value, &s.Type, &s.Description, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (p *PgStore) List(ctx context.Context) ([]Setting, error) {
	rows, err := p.db.Query(ctx, `SELECT `+settingColumns+` FROM setting ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("settings: list: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (p *PgStore) Get(ctx context.Context, key string) (*Setting, error) {
	s, err := scanSetting(p.db.QueryRow(ctx, `SELECT `+settingColumns+` FROM setting WHERE key = $1`, key))
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		return nil, fmt.Errorf("settings: get %s: %w", key, err)
	}
	return s, err
}

func (p *PgStore) UpdateValue(ctx context.Context, key, value string) (*Setting, error) {
	s, err := scanSetting(p.db.QueryRow(ctx, `
		UPDATE setting
		SET value = $2, updated_at = now()
		WHERE key = $1
		RETURNING `+settingColumns, key, value))
	if err != nil && !errors.Is(err, ErrSettingNotFound) {
		return nil, fmt.Errorf("settings: update %s: %w", key, err)
	}
	return s, err
}

func (p *PgStore) Seed(ctx context.Context, rows []Setting) (int, error) {
	added := 0
	for _, s := range rows {
		tag, err := p.db.Exec(ctx, `
			INSERT INTO setting (key, value, type, description)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO NOTHING
		`, s.Key, s.Value, s.Type, s.Description)
		if err != nil {
			return added, fmt.Errorf("settings: seed %s: %w", s.Key, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

// InMemoryStore is a map-backed Store for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[string]*Setting
}

func NewInMemoryStore(rows ...Setting) *InMemoryStore {
	s := &InMemoryStore{rows: make(map[string]*Setting)}
	_, _ = s.Seed(context.Background(), rows)
	return s
}

func (m *InMemoryStore) List(ctx context.Context) ([]Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Setting, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *InMemoryStore) Get(ctx context.Context, key string) (*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.rows[key]
	if !ok {
		return nil, ErrSettingNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *InMemoryStore) UpdateValue(ctx context.Context, key, value string) (*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.rows[key]
	if !ok {
		return nil, ErrSettingNotFound
	}
	s.Value = value
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (m *InMemoryStore) Seed(ctx context.Context, rows []Setting) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, s := range rows {
		if _, ok := m.rows[s.Key]; ok {
			continue
		}
		m.nextID++
		cp := s
		cp.ID = m.nextID
		cp.UpdatedAt = time.Now().UTC()
		m.rows[s.Key] = &cp
		added++
	}
	return added, nil
}
