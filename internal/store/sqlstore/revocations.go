package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record upserts a denylist entry; a repeated id keeps the latest expiry.
func (s *Store) Record(ctx context.Context, tokenID string, expiry time.Time) error {
	if tokenID == "" {
		return errors.New("record revocation: empty token id")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into invalidated_tokens (id, expiry_time)
		values ($1, $2)
		on conflict (id) do update set expiry_time = excluded.expiry_time
	`, tokenID, expiry.UTC())
	return err
}

// Contains is a point lookup by token id.
func (s *Store) Contains(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from invalidated_tokens where id = $1`, tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes entries that expired before the cutoff.
func (s *Store) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from invalidated_tokens where expiry_time < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
