// Package goal tracks listening targets ("N releases by date X").
package goal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TypeRelease is the only goal type the completion check evaluates.
const TypeRelease = "release"

// Goal is a listening target. EndActual is nil while the goal is in
// progress and set exactly once on completion.
type Goal struct {
	ID        int64      `json:"id"`
	Type      string     `json:"type"`
	StartDate time.Time  `json:"start_date"`
	EndGoal   time.Time  `json:"end_goal"`
	EndActual *time.Time `json:"end_actual,omitempty"`
	Amount    int        `json:"amount"`
	// Current is the derived release count since StartDate; populated by
	// List and Get, not stored.
	Current int `json:"current"`
}

// Complete reports whether the goal has been marked complete.
func (g *Goal) Complete() bool { return g.EndActual != nil }

// Service provides goal data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a goal service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

const goalColumns = `id, type, start_date, end_goal, end_actual, amount`

// Create inserts a new goal and sets its ID.
func (s *Service) Create(ctx context.Context, g *Goal) error {
	if g.Amount < 1 {
		return fmt.Errorf("goal amount must be positive")
	}
	if g.Type == "" {
		g.Type = TypeRelease
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (type, start_date, end_goal, end_actual, amount)
		VALUES (?, ?, ?, ?, ?)
	`,
		g.Type, formatDate(g.StartDate), formatDate(g.EndGoal),
		formatNullableDate(g.EndActual), g.Amount,
	)
	if err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	g.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new goal id: %w", err)
	}
	return nil
}

// Get retrieves a goal by ID with its current count populated.
func (s *Service) Get(ctx context.Context, id int64) (*Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal: %w", err)
	}
	if err := s.fillCurrent(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// List returns all goals with current counts populated.
func (s *Service) List(ctx context.Context) ([]Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals ORDER BY start_date`)
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var goals []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal row: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goal rows: %w", err)
	}

	for i := range goals {
		if err := s.fillCurrent(ctx, &goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// ListIncomplete returns goals of the given type with no completion date.
func (s *Service) ListIncomplete(ctx context.Context, goalType string) ([]Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE type = ? AND end_actual IS NULL ORDER BY start_date`, goalType)
	if err != nil {
		return nil, fmt.Errorf("listing incomplete goals: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var goals []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal row: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// MarkComplete sets end_actual, once. A goal that already has a completion
// date is left untouched so the transition is one-way.
func (s *Service) MarkComplete(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE goals SET end_actual = ? WHERE id = ? AND end_actual IS NULL`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("marking goal %d complete: %w", id, err)
	}
	return nil
}

// Delete removes a goal by ID.
func (s *Service) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting goal: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("goal not found: %d", id)
	}
	return nil
}

// fillCurrent computes the derived release count since the goal's start date.
func (s *Service) fillCurrent(ctx context.Context, g *Goal) error {
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM releases WHERE listen_date >= ?`,
		formatDate(g.StartDate)).Scan(&g.Current)
	if err != nil {
		return fmt.Errorf("counting releases for goal %d: %w", g.ID, err)
	}
	return nil
}

func scanGoal(row interface{ Scan(...any) error }) (*Goal, error) {
	var g Goal
	var startDate, endGoal string
	var endActual sql.NullString

	if err := row.Scan(&g.ID, &g.Type, &startDate, &endGoal, &endActual, &g.Amount); err != nil {
		return nil, err
	}

	g.StartDate = parseDate(startDate)
	g.EndGoal = parseDate(endGoal)
	if endActual.Valid {
		if t, err := time.Parse(time.RFC3339, endActual.String); err == nil {
			g.EndActual = &t
		}
	}
	return &g, nil
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatNullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
