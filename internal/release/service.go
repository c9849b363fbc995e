package release

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// releaseColumns is the ordered list of columns for SELECT queries.
const releaseColumns = `id, external_id, name, artist_id, label_id,
	release_year, runtime_ms, rating, listen_date, track_count,
	country, genre, image_path, created_at, updated_at`

// Service provides release, tag, and review data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a release service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a release and its tags in one transaction and sets r.ID.
// r.Tags is normalized: blank and duplicate tokens are dropped.
func (s *Service) Create(ctx context.Context, r *Release) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx, `
		INSERT INTO releases (external_id, name, artist_id, label_id,
			release_year, runtime_ms, rating, listen_date, track_count,
			country, genre, image_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ExternalID, r.Name, r.ArtistID, r.LabelID,
		r.ReleaseYear, r.RuntimeMS, r.Rating, formatDate(r.ListenDate), r.TrackCount,
		r.Country, r.Genre, r.ImagePath,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating release: %w", err)
	}
	r.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new release id: %w", err)
	}

	if err := insertTags(ctx, tx, r.ID, r.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing release: %w", err)
	}
	return nil
}

// GetByID retrieves a release by primary key, tags included.
func (s *Service) GetByID(ctx context.Context, id int64) (*Release, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("release not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting release by id: %w", err)
	}

	r.Tags, err = s.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetByExternalID retrieves a release by external catalog ID.
// Returns nil with no error when no row matches.
func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*Release, error) {
	if externalID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+releaseColumns+` FROM releases WHERE external_id = ?`, externalID)
	r, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting release by external id: %w", err)
	}
	return r, nil
}

// List returns a page of releases and the total matching count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Release, int, error) {
	params.Validate()

	var conditions []string
	var args []any
	if params.Search != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+params.Search+"%")
	}
	if params.Genre != "" {
		conditions = append(conditions, "genre = ?")
		args = append(args, params.Genre)
	}
	if params.Country != "" {
		conditions = append(conditions, "country = ?")
		args = append(args, params.Country)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM releases"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting releases: %w", err)
	}

	order := params.Sort + " ASC"
	if params.Order == "desc" {
		order = params.Sort + " DESC"
	}
	offset := (params.Page - 1) * params.PageSize

	query := `SELECT ` + releaseColumns + ` FROM releases` + where + //nolint:gosec // order is from validated params
		` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	args = append(args, params.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing releases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var releases []Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning release row: %w", err)
		}
		releases = append(releases, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating release rows: %w", err)
	}
	return releases, total, nil
}

// Update modifies a release and replaces its tags wholesale.
func (s *Service) Update(ctx context.Context, r *Release) error {
	r.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		UPDATE releases SET external_id = ?, name = ?, artist_id = ?, label_id = ?,
			release_year = ?, runtime_ms = ?, rating = ?, listen_date = ?,
			track_count = ?, country = ?, genre = ?, image_path = ?, updated_at = ?
		WHERE id = ?
	`,
		r.ExternalID, r.Name, r.ArtistID, r.LabelID,
		r.ReleaseYear, r.RuntimeMS, r.Rating, formatDate(r.ListenDate),
		r.TrackCount, r.Country, r.Genre, r.ImagePath,
		r.UpdatedAt.Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating release %d: %w", r.ID, err)
	}

	// Tags are never edited in place, only replaced with the new set.
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE release_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing release tags: %w", err)
	}
	if err := insertTags(ctx, tx, r.ID, r.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing release update: %w", err)
	}
	return nil
}

// SetImagePath records the stored image path for a release.
func (s *Service) SetImagePath(ctx context.Context, id int64, path string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`UPDATE releases SET image_path = ?, updated_at = ? WHERE id = ?`,
		path, now, id)
	if err != nil {
		return fmt.Errorf("setting release image path: %w", err)
	}
	return nil
}

// Delete removes a release by ID. Tags and reviews cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting release: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("release not found: %d", id)
	}
	return nil
}

// CountSince counts releases listened to on or after the given date.
func (s *Service) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM releases WHERE listen_date >= ?`,
		formatDate(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting releases since %s: %w", formatDate(since), err)
	}
	return count, nil
}

// AddReview attaches a free-text review to a release.
func (s *Service) AddReview(ctx context.Context, releaseID int64, body string) (*Review, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("review body is required")
	}
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (release_id, body, created_at) VALUES (?, ?, ?)`,
		releaseID, body, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new review id: %w", err)
	}
	return &Review{ID: id, ReleaseID: releaseID, Body: body, CreatedAt: now}, nil
}

// ListReviews returns all reviews for a release, newest first.
func (s *Service) ListReviews(ctx context.Context, releaseID int64) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, release_id, body, created_at FROM reviews
		 WHERE release_id = ? ORDER BY created_at DESC`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var reviews []Review
	for rows.Next() {
		var rv Review
		var createdAt string
		if err := rows.Scan(&rv.ID, &rv.ReleaseID, &rv.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning review row: %w", err)
		}
		rv.CreatedAt = parseTime(createdAt)
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// DistinctValues returns the distinct non-empty values of a filterable
// release column. Only "genre" and "country" are allowed.
func (s *Service) DistinctValues(ctx context.Context, column string) ([]string, error) {
	switch column {
	case "genre", "country":
	default:
		return nil, fmt.Errorf("column not filterable: %s", column)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM releases WHERE `+column+` != '' ORDER BY `+column) //nolint:gosec // column is from validated switch
	if err != nil {
		return nil, fmt.Errorf("listing distinct %s values: %w", column, err)
	}
	defer rows.Close() //nolint:errcheck

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// insertTags writes distinct tags for a release inside a transaction.
func insertTags(ctx context.Context, tx *sql.Tx, releaseID int64, tags []string) error {
	for _, tag := range SplitTags(strings.Join(tags, ",")) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tags (release_id, name) VALUES (?, ?)`,
			releaseID, tag); err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

// tagsFor loads the tag names for a release.
func (s *Service) tagsFor(ctx context.Context, releaseID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM tags WHERE release_id = ? ORDER BY id`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func scanRelease(row interface{ Scan(...any) error }) (*Release, error) {
	var r Release
	var listenDate, createdAt, updatedAt string

	err := row.Scan(
		&r.ID, &r.ExternalID, &r.Name, &r.ArtistID, &r.LabelID,
		&r.ReleaseYear, &r.RuntimeMS, &r.Rating, &listenDate, &r.TrackCount,
		&r.Country, &r.Genre, &r.ImagePath, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if listenDate != "" {
		if t, err := time.Parse("2006-01-02", listenDate); err == nil {
			r.ListenDate = t
		}
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}
