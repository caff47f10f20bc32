package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/sleepclock/internal/routine"
	"github.com/sadopc/sleepclock/internal/schedule"
)

// LoadSettings returns the profile's settings, or nil, nil if none were
// saved yet.
func (s *Store) LoadSettings(profileID string) (*Settings, error) {
	st := &Settings{ProfileID: profileID}
	var choresEnabled, tonieEnabled, soundEnabled, showClock int
	var lastTonie sql.NullString
	var updatedAt string
	err := s.db.QueryRow(
		`SELECT chores_enabled, reward_text, tonie_enabled, tonie_chooser_duration, last_tonie_id,
		        sound_enabled, sound_volume, show_clock, pin_hash, updated_at
		 FROM settings WHERE profile_id = ?`, profileID,
	).Scan(&choresEnabled, &st.RewardText, &tonieEnabled, &st.TonieChooserDuration, &lastTonie,
		&soundEnabled, &st.SoundVolume, &showClock, &st.PinHash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %w", profileID, err)
	}
	st.ChoresEnabled = choresEnabled == 1
	st.TonieEnabled = tonieEnabled == 1
	st.SoundEnabled = soundEnabled == 1
	st.ShowClock = showClock == 1
	if lastTonie.Valid {
		st.LastTonieID = lastTonie.String
	}
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if st.Schedule, err = s.loadBlocks(profileID); err != nil {
		return nil, err
	}
	if st.Chores, err = s.loadChores(profileID); err != nil {
		return nil, err
	}
	if st.Tonies, err = s.loadTonies(profileID); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) loadBlocks(profileID string) ([]schedule.Block, error) {
	rows, err := s.db.Query(
		`SELECT mode, start_time, end_time FROM schedule_blocks WHERE profile_id = ? ORDER BY position`, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	defer rows.Close()

	var blocks []schedule.Block
	for rows.Next() {
		var b schedule.Block
		var mode string
		if err := rows.Scan(&mode, &b.Start, &b.End); err != nil {
			return nil, err
		}
		b.Mode = schedule.Mode(mode)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (s *Store) loadChores(profileID string) ([]routine.Chore, error) {
	rows, err := s.db.Query(
		`SELECT id, text, emoji FROM chores WHERE profile_id = ? ORDER BY position`, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load chores: %w", err)
	}
	defer rows.Close()

	var chores []routine.Chore
	for rows.Next() {
		var c routine.Chore
		if err := rows.Scan(&c.ID, &c.Text, &c.Emoji); err != nil {
			return nil, err
		}
		chores = append(chores, c)
	}
	return chores, rows.Err()
}

func (s *Store) loadTonies(profileID string) ([]Tonie, error) {
	rows, err := s.db.Query(
		`SELECT id, name, emoji FROM tonies WHERE profile_id = ? ORDER BY position`, profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("load tonies: %w", err)
	}
	defer rows.Close()

	var tonies []Tonie
	for rows.Next() {
		var t Tonie
		if err := rows.Scan(&t.ID, &t.Name, &t.Emoji); err != nil {
			return nil, err
		}
		tonies = append(tonies, t)
	}
	return tonies, rows.Err()
}

// SaveSettings replaces the profile's settings, schedule, chores and
// tonies in a single transaction.
func (s *Store) SaveSettings(st *Settings) error {
	if st == nil {
		return errors.New("save settings: nil settings")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	var lastTonie any
	if st.LastTonieID != "" {
		lastTonie = st.LastTonieID
	}
	_, err = tx.Exec(
		`INSERT INTO settings (profile_id, chores_enabled, reward_text, tonie_enabled, tonie_chooser_duration,
		                       last_tonie_id, sound_enabled, sound_volume, show_clock, pin_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET
		   chores_enabled = excluded.chores_enabled,
		   reward_text = excluded.reward_text,
		   tonie_enabled = excluded.tonie_enabled,
		   tonie_chooser_duration = excluded.tonie_chooser_duration,
		   last_tonie_id = excluded.last_tonie_id,
		   sound_enabled = excluded.sound_enabled,
		   sound_volume = excluded.sound_volume,
		   show_clock = excluded.show_clock,
		   pin_hash = excluded.pin_hash,
		   updated_at = excluded.updated_at`,
		st.ProfileID, boolInt(st.ChoresEnabled), st.RewardText, boolInt(st.TonieEnabled), max(st.TonieChooserDuration, 0),
		lastTonie, boolInt(st.SoundEnabled), clampVolume(st.SoundVolume), boolInt(st.ShowClock), st.PinHash, now,
	)
	if err != nil {
		return fmt.Errorf("save settings %s: %w", st.ProfileID, err)
	}

	for _, table := range []string{"schedule_blocks", "chores", "tonies"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE profile_id = ?`, st.ProfileID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, b := range st.Schedule {
		if _, err := tx.Exec(
			`INSERT INTO schedule_blocks (profile_id, position, mode, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
			st.ProfileID, i, string(b.Mode), b.Start, b.End,
		); err != nil {
			return fmt.Errorf("insert block %d: %w", i, err)
		}
	}
	for i, c := range st.Chores {
		if _, err := tx.Exec(
			`INSERT INTO chores (profile_id, position, id, text, emoji) VALUES (?, ?, ?, ?, ?)`,
			st.ProfileID, i, c.ID, c.Text, c.Emoji,
		); err != nil {
			return fmt.Errorf("insert chore %d: %w", i, err)
		}
	}
	for i, t := range st.Tonies {
		if _, err := tx.Exec(
			`INSERT INTO tonies (profile_id, position, id, name, emoji) VALUES (?, ?, ?, ?, ?)`,
			st.ProfileID, i, t.ID, t.Name, t.Emoji,
		); err != nil {
			return fmt.Errorf("insert tonie %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		MetaLastWrite, now,
	); err != nil {
		return fmt.Errorf("record write time: %w", err)
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
