package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashmere/reverie/internal/memory"
)

// EnsureSession creates the session row if it does not exist yet.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, status)
		VALUES ($1, 'active')
		ON CONFLICT (id) DO NOTHING`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// AppendAtom stores an atom at the tail of a session's log.
func (s *Store) AppendAtom(ctx context.Context, sessionID string, a *memory.Atom) error {
	conceptsJSON, err := json.Marshal(a.Concepts)
	if err != nil {
		return fmt.Errorf("marshal concepts: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO atoms (id, session_id, turn, category, content, concepts,
		                   activation_score, last_activated_turn, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, sessionID, a.Turn, string(a.Category), a.Content, conceptsJSON,
		a.ActivationScore, a.LastActivatedTurn, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append atom: %w", err)
	}
	return nil
}

// ListAtoms retrieves a session's full atom log in time order.
func (s *Store) ListAtoms(ctx context.Context, sessionID string) ([]*memory.Atom, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, turn, category, content, concepts,
		       activation_score, last_activated_turn, created_at
		FROM atoms
		WHERE session_id = $1
		ORDER BY turn ASC, created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list atoms: %w", err)
	}
	defer rows.Close()

	var atoms []*memory.Atom
	for rows.Next() {
		var a memory.Atom
		var category string
		var conceptsJSON []byte

		if err := rows.Scan(&a.ID, &a.Turn, &category, &a.Content, &conceptsJSON,
			&a.ActivationScore, &a.LastActivatedTurn, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan atom: %w", err)
		}
		a.Category = memory.Category(category)
		if len(conceptsJSON) > 0 {
			json.Unmarshal(conceptsJSON, &a.Concepts)
		}
		atoms = append(atoms, &a)
	}
	return atoms, rows.Err()
}

// UpdateActivation writes back an atom's mutable recall state after a
// reactivation. Content and concepts stay frozen.
func (s *Store) UpdateActivation(ctx context.Context, a *memory.Atom) error {
	_, err := s.db.Exec(ctx, `
		UPDATE atoms
		SET activation_score = $2, last_activated_turn = $3
		WHERE id = $1`,
		a.ID, a.ActivationScore, a.LastActivatedTurn,
	)
	if err != nil {
		return fmt.Errorf("update activation: %w", err)
	}
	return nil
}

// CountAtoms returns the length of a session's log.
func (s *Store) CountAtoms(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM atoms WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count atoms: %w", err)
	}
	return n, nil
}
