package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
)

// LoadDailyState returns the routine for profileID on date, or nil, nil
// when nothing was recorded that day.
func (s *Store) LoadDailyState(profileID, date string) (*routine.DailyState, error) {
	row := s.db.QueryRow(
		`SELECT profile_id, date, chores_done, books_count, last_completed_step, updated_at
		 FROM daily_states WHERE profile_id = ? AND date = ?`, profileID, date,
	)
	d, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily state %s: %w", date, err)
	}
	return d, nil
}

// LatestDailyState returns the most recent record for profileID, if any.
func (s *Store) LatestDailyState(profileID string) (*routine.DailyState, error) {
	row := s.db.QueryRow(
		`SELECT profile_id, date, chores_done, books_count, last_completed_step, updated_at
		 FROM daily_states WHERE profile_id = ? ORDER BY date DESC LIMIT 1`, profileID,
	)
	d, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest daily state: %w", err)
	}
	return d, nil
}

// SaveDailyState upserts the record keyed by profile and date.
func (s *Store) SaveDailyState(d routine.DailyState) error {
	done := d.ChoresDone
	if done == nil {
		done = []string{}
	}
	raw, err := json.Marshal(done)
	if err != nil {
		return fmt.Errorf("encode chores: %w", err)
	}
	step := d.LastCompletedStep
	if !step.Valid() {
		step = routine.StepNone
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO daily_states (profile_id, date, chores_done, books_count, last_completed_step, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id, date) DO UPDATE SET
		   chores_done = excluded.chores_done,
		   books_count = excluded.books_count,
		   last_completed_step = excluded.last_completed_step,
		   updated_at = excluded.updated_at`,
		d.ProfileID, d.Date, string(raw), min(max(d.BooksCount, 0), routine.MaxBooks), string(step), now,
	)
	if err != nil {
		return fmt.Errorf("save daily state %s: %w", d.Date, err)
	}
	return s.SetMeta(MetaLastWrite, now)
}

// ListDailyStates returns records with from <= date < to, oldest first.
// Empty bounds are open.
func (s *Store) ListDailyStates(profileID, from, to string) ([]routine.DailyState, error) {
	query := `SELECT profile_id, date, chores_done, books_count, last_completed_step, updated_at
	          FROM daily_states WHERE profile_id = ?`
	args := []any{profileID}
	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date < ?`
		args = append(args, to)
	}
	query += ` ORDER BY date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily states: %w", err)
	}
	defer rows.Close()

	var states []routine.DailyState
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *d)
	}
	return states, rows.Err()
}

// PruneDailyStates deletes records dated before the given date and
// reports how many were removed.
func (s *Store) PruneDailyStates(profileID, before string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM daily_states WHERE profile_id = ? AND date < ?`, profileID, before)
	if err != nil {
		return 0, fmt.Errorf("prune daily states: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDaily(sc scanner) (*routine.DailyState, error) {
	var d routine.DailyState
	var raw, step, updatedAt string
	if err := sc.Scan(&d.ProfileID, &d.Date, &raw, &d.BooksCount, &step, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &d.ChoresDone); err != nil {
		return nil, fmt.Errorf("decode chores for %s: %w", d.Date, err)
	}
	if d.ChoresDone == nil {
		d.ChoresDone = []string{}
	}
	d.LastCompletedStep = routine.Step(step)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}
