package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateProfile(name string) (*Profile, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO profiles (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetProfile(id)
}

func (s *Store) GetProfile(id string) (*Profile, error) {
	p := &Profile{}
	var createdAt string
	err := s.db.QueryRow(
		`SELECT id, name, created_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// FindProfile looks a profile up by name; it returns nil, nil when absent.
func (s *Store) FindProfile(name string) (*Profile, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM profiles WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %q: %w", name, err)
	}
	return s.GetProfile(id)
}

// EnsureProfile returns the profile called name, creating it with default
// settings when it does not exist yet.
func (s *Store) EnsureProfile(name string) (*Profile, error) {
	p, err := s.FindProfile(name)
	if err != nil || p != nil {
		return p, err
	}
	p, err = s.CreateProfile(name)
	if err != nil {
		return nil, err
	}
	if err := s.SaveSettings(DefaultSettings(p.ID)); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListProfiles() ([]Profile, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &createdAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
