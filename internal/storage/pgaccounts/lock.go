package pgaccounts

import (
	"context"
	"log/slog"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/pkg/errors"
)

// WithAccountLock runs fn while holding a session advisory lock on email,
// shared by every process on the database. fn gets the account as stored
// after the lock was taken, so a load-modify-SaveAccount cycle inside it
// cannot overwrite shipments written by another holder.
func (s *Storage) WithAccountLock(ctx context.Context, email string, fn func(acc *models.Account) error) error {
	conn, err := s.locks.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire lock conn")
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, email); err != nil {
		// The session may still be waiting server-side.
		_ = conn.Conn().Close(context.WithoutCancel(ctx))
		conn.Release()
		return errors.Wrap(err, "advisory lock")
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, email); err != nil {
			slog.Error("advisory unlock", "email", email, "error", err.Error())
			// Closing the session drops its locks.
			_ = conn.Conn().Close(context.WithoutCancel(ctx))
		}
		conn.Release()
	}()

	acc, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		return err
	}
	return fn(acc)
}
