package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/waxlog/waxlog/internal/dates"
	"github.com/waxlog/waxlog/internal/provider"
)

// entityColumns is the ordered list of columns for SELECT queries.
const entityColumns = `id, kind, external_id, name, country, type,
	begin_date, end_date, image_path, created_at, updated_at`

// Service provides catalog entity data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a catalog service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new entity and sets its ID.
func (s *Service) Create(ctx context.Context, e *Entity) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Begin.IsZero() {
		e.Begin = dates.Min
	}
	if e.End.IsZero() {
		e.End = dates.Max
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (kind, external_id, name, country, type,
			begin_date, end_date, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.Kind), e.ExternalID, e.Name, e.Country, e.Type,
		dates.Format(e.Begin), dates.Format(e.End), e.ImagePath,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating %s: %w", e.Kind, err)
	}

	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new %s id: %w", e.Kind, err)
	}
	return nil
}

// GetByID retrieves an entity by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity by id: %w", err)
	}
	return e, nil
}

// GetByExternalID retrieves an entity by its external catalog ID.
// Returns nil with no error when no row matches.
func (s *Service) GetByExternalID(ctx context.Context, kind provider.Kind, externalID string) (*Entity, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE kind = ? AND external_id = ?`,
		string(kind), externalID)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s by external id: %w", kind, err)
	}
	return e, nil
}

// FindByName retrieves the first entity of the kind whose name contains the
// given substring, case-insensitively. Returns nil with no error when no
// row matches.
func (s *Service) FindByName(ctx context.Context, kind provider.Kind, name string) (*Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	pattern := "%" + name + "%"
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities
		 WHERE kind = ? AND id != ? AND name LIKE ? COLLATE NOCASE
		 ORDER BY name LIMIT 1`,
		string(kind), SentinelID, pattern)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s by name: %w", kind, err)
	}
	return e, nil
}

// List returns all entities of a kind, excluding the sentinel row.
func (s *Service) List(ctx context.Context, kind provider.Kind) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities
		 WHERE kind = ? AND id != ? ORDER BY name`,
		string(kind), SentinelID)
	if err != nil {
		return nil, fmt.Errorf("listing %s entities: %w", kind, err)
	}
	defer rows.Close() //nolint:errcheck

	var entities []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

// Update modifies an existing entity.
func (s *Service) Update(ctx context.Context, e *Entity) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE entities SET external_id = ?, name = ?, country = ?, type = ?,
			begin_date = ?, end_date = ?, image_path = ?, updated_at = ?
		WHERE id = ?
	`,
		e.ExternalID, e.Name, e.Country, e.Type,
		dates.Format(e.Begin), dates.Format(e.End), e.ImagePath,
		e.UpdatedAt.Format(time.RFC3339), e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", e.Kind, e.ID, err)
	}
	return nil
}

// SetImagePath records the stored image path for an entity.
func (s *Service) SetImagePath(ctx context.Context, id int64, path string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE entities SET image_path = ?, updated_at = ? WHERE id = ?`,
		path, now, id)
	if err != nil {
		return fmt.Errorf("setting entity image path: %w", err)
	}
	return nil
}

// Delete removes an entity by ID. The sentinel row cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == SentinelID {
		return fmt.Errorf("cannot delete reserved entity")
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("entity not found: %d", id)
	}
	return nil
}

// scanEntity scans a database row into an Entity struct.
func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	var kind, begin, end, createdAt, updatedAt string

	err := row.Scan(
		&e.ID, &kind, &e.ExternalID, &e.Name, &e.Country, &e.Type,
		&begin, &end, &e.ImagePath, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = provider.Kind(kind)
	e.Begin = parseDate(begin, dates.Min)
	e.End = parseDate(end, dates.Max)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func parseDate(s string, fallback time.Time) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fallback
	}
	return t
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
