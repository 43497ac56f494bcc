package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mastera/partnerdesk/internal/registry"
	"github.com/rotisserie/eris"
)

// PutFile stores the attachment for a partner. With replace false the
// partner must not have one yet (ErrConflict otherwise); with replace true
// it must (ErrNotFound otherwise). An unknown partner returns ErrNotFound.
func (s *Store) PutFile(ctx context.Context, partnerID int64, f registry.File, replace bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists, hasFile bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM partners WHERE id = ?),
			       EXISTS (SELECT 1 FROM partner_files WHERE partner_id = ?)`,
			partnerID, partnerID,
		).Scan(&exists, &hasFile)
		if err != nil {
			return eris.Wrap(err, "check partner")
		}
		if !exists {
			return eris.Wrapf(ErrNotFound, "partner %d", partnerID)
		}

		now := s.now().UTC()
		switch {
		case replace && !hasFile:
			return eris.Wrapf(ErrNotFound, "file for partner %d", partnerID)
		case !replace && hasFile:
			return eris.Wrapf(ErrConflict, "file for partner %d", partnerID)
		case replace:
			_, err = tx.ExecContext(ctx, `
				UPDATE partner_files
				SET filename = ?, content_type = ?, content = ?, size_bytes = ?, uploaded_at = ?
				WHERE partner_id = ?`,
				f.Name, f.ContentType, f.Content, len(f.Content), now, partnerID)
		default:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO partner_files (partner_id, filename, content_type, content, size_bytes, uploaded_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				partnerID, f.Name, f.ContentType, f.Content, len(f.Content), now)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return eris.Wrapf(ErrConflict, "file for partner %d", partnerID)
			}
			return eris.Wrap(err, "store file")
		}
		return nil
	})
}

// GetFile returns the attachment stored for a partner, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, partnerID int64) (*registry.File, error) {
	var f registry.File
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, content_type, content FROM partner_files WHERE partner_id = ?`,
		partnerID,
	).Scan(&f.Name, &f.ContentType, &f.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "file for partner %d", partnerID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "get file")
	}
	return &f, nil
}
