package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"transport-vendor-api/internal/models"
)

// appendNoteSQL appends one note in a single statement. Whatever shape the
// stored value has (NULL, JSON null, scalar string, array) it is first turned
// into an array, so concurrent appends never overwrite each other.
const appendNoteSQL = `
	UPDATE vendors SET
		notes = (CASE
			WHEN notes IS NULL OR jsonb_typeof(notes) = 'null' THEN '[]'::jsonb
			WHEN jsonb_typeof(notes) = 'array' THEN notes
			WHEN btrim(notes #>> '{}') = '' THEN '[]'::jsonb
			ELSE jsonb_build_array(jsonb_build_object(
				'comment', btrim(notes #>> '{}'),
				'timestamp', to_jsonb(COALESCE(updated_at, created_at, now()))))
		END) || jsonb_build_array($2::jsonb),
		updated_at = now()
	WHERE id = $1
	RETURNING COALESCE(notes::text, ''), updated_at`

// AppendNote adds a comment to the end of a vendor's notes and returns the
// complete sequence.
func (s *Store) AppendNote(ctx context.Context, id int64, comment string) ([]models.Note, error) {
	note, err := models.NewNote(comment, s.now())
	if err != nil {
		return nil, err
	}
	entry, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("encode note: %w", err)
	}

	var (
		raw       string
		updatedAt time.Time
	)
	err = s.pool.QueryRow(ctx, appendNoteSQL, id, string(entry)).Scan(&raw, &updatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, models.ErrNotFound
	case hasCode(err, codeUndefinedFunction, codeDatatypeMismatch):
		// notes is still a text column because the migrator has not finished
		s.log.Warn().Int64("vendor_id", id).Msg("notes column is not jsonb, appending under row lock")
		return s.appendNoteLocked(ctx, id, note)
	case err != nil:
		return nil, classify(fmt.Errorf("append note to vendor %d: %w", id, err))
	}
	return models.DecodeNotes(raw, updatedAt), nil
}

// appendNoteLocked is the read-modify-write path for a partially migrated
// table. SELECT ... FOR UPDATE serializes appends to the same row.
func (s *Store) appendNoteLocked(ctx context.Context, id int64, note models.Note) ([]models.Note, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("begin append note: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var (
		raw                  string
		updatedAt, createdAt *time.Time
	)
	err = tx.QueryRow(ctx,
		"SELECT COALESCE(notes::text, ''), updated_at, created_at FROM vendors WHERE id = $1 FOR UPDATE", id).
		Scan(&raw, &updatedAt, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("lock vendor %d: %w", id, err))
	}

	stamp := s.now()
	if createdAt != nil {
		stamp = *createdAt
	}
	if updatedAt != nil {
		stamp = *updatedAt
	}
	notes := append(models.DecodeNotes(raw, stamp), note)
	encoded, err := models.EncodeNotes(notes)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, "UPDATE vendors SET notes = $2, updated_at = now() WHERE id = $1", id, string(encoded)); err != nil {
		return nil, classify(fmt.Errorf("write notes of vendor %d: %w", id, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, classify(fmt.Errorf("commit append note: %w", err))
	}
	return notes, nil
}
