package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"genekb/api/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("refdata: not found")

// Drug is one entry of the drug dictionary. Treatments reference drugs by
// uuid, never by display name.
type Drug struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	NCITCode string `json:"ncitCode,omitempty"`
}

// Store reads reference data from Postgres and keeps an in-memory drug name
// cache so tree builds do not hit the database per treatment.
type Store struct {
	db *sql.DB

	mu    sync.RWMutex
	drugs map[string]string
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, drugs: make(map[string]string)}
}

func (s *Store) DB() *sql.DB { return s.db }

// Refresh reloads the drug name cache.
func (s *Store) Refresh(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT uuid, name FROM drugs`)
	if err != nil {
		return fmt.Errorf("load drugs: %w", err)
	}
	defer rows.Close()

	next := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan drug: %w", err)
		}
		next[id] = name
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate drugs: %w", err)
	}

	s.mu.Lock()
	s.drugs = next
	s.mu.Unlock()
	return nil
}

// DrugName resolves a drug uuid from the cache. Unknown ids return "", and
// callers fall back to showing the raw id.
func (s *Store) DrugName(uuid string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drugs[uuid]
}

// GetDrug reads one dictionary entry.
func (s *Store) GetDrug(ctx context.Context, uuid string) (Drug, error) {
	var d Drug
	err := s.db.QueryRowContext(ctx,
		`SELECT uuid, name, ncit_code FROM drugs WHERE uuid = $1`, uuid,
	).Scan(&d.UUID, &d.Name, &d.NCITCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Drug{}, ErrNotFound
	}
	if err != nil {
		return Drug{}, fmt.Errorf("lookup drug: %w", err)
	}
	return d, nil
}

// UpsertDrug writes a dictionary entry and updates the cache in place.
func (s *Store) UpsertDrug(ctx context.Context, d Drug) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drugs (uuid, name, ncit_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (uuid) DO UPDATE SET name = EXCLUDED.name, ncit_code = EXCLUDED.ncit_code
	`, d.UUID, d.Name, d.NCITCode)
	if err != nil {
		return fmt.Errorf("upsert drug: %w", err)
	}
	s.mu.Lock()
	s.drugs[d.UUID] = d.Name
	s.mu.Unlock()
	return nil
}

// GetCancerType reads one oncotree entry by code.
func (s *Store) GetCancerType(ctx context.Context, code string) (model.CancerType, error) {
	var ct model.CancerType
	err := s.db.QueryRowContext(ctx,
		`SELECT code, main_type, subtype FROM cancer_types WHERE code = $1`, code,
	).Scan(&ct.Code, &ct.MainType, &ct.Subtype)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CancerType{}, ErrNotFound
	}
	if err != nil {
		return model.CancerType{}, fmt.Errorf("lookup cancer type: %w", err)
	}
	return ct, nil
}

// SearchCancerTypes matches codes, main types, and subtypes for
// autocomplete.
func (s *Store) SearchCancerTypes(ctx context.Context, query string, limit int) ([]model.CancerType, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, main_type, subtype FROM cancer_types
		WHERE code ILIKE '%' || $1 || '%'
		   OR main_type ILIKE '%' || $1 || '%'
		   OR subtype ILIKE '%' || $1 || '%'
		ORDER BY main_type, subtype
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search cancer types: %w", err)
	}
	defer rows.Close()

	var out []model.CancerType
	for rows.Next() {
		var ct model.CancerType
		if err := rows.Scan(&ct.Code, &ct.MainType, &ct.Subtype); err != nil {
			return nil, fmt.Errorf("scan cancer type: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cancer types: %w", err)
	}
	return out, nil
}
