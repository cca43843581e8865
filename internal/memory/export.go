package memory

import (
	"encoding/json"
	"fmt"
)

// ExportProfile serializes a user's profile as indented JSON. Unknown
// users export an empty profile.
func (s *Store) ExportProfile(userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = NewProfile(userID)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}

// ImportProfile replaces a user's profile with the given JSON blob. The
// blob's own user id is ignored; the profile is stored under userID.
func (s *Store) ImportProfile(userID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Profile
	if err := json.Unmarshal(blob, &p); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}
	p.UserID = userID

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()
	if err := s.saveProfileTx(tx, &p); err != nil {
		return err
	}
	return tx.Commit()
}
