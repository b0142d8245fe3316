package pgaccounts

import (
	"context"
	"time"

	"github.com/BearBump/MailTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const accountColumns = `
  id, email, access_token, refresh_token,
  last_synced_at, next_sync_at,
  sync_fail_count, last_error,
  created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(
		&a.ID, &a.Email, &a.AccessToken, &a.RefreshToken,
		&a.LastSyncedAt, &a.NextSyncAt,
		&a.SyncFailCount, &a.LastError,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAccount stores fresh mailbox tokens for email. A new account is due
// for sync immediately.
func (s *Storage) UpsertAccount(ctx context.Context, email, accessToken, refreshToken string) (*models.Account, error) {
	now := time.Now().UTC()
	row := s.db.QueryRow(ctx, `
INSERT INTO accounts (email, access_token, refresh_token, next_sync_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4,$4)
ON CONFLICT (email)
DO UPDATE SET
  access_token = EXCLUDED.access_token,
  refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN accounts.refresh_token ELSE EXCLUDED.refresh_token END,
  sync_fail_count = 0,
  last_error = NULL,
  updated_at = EXCLUDED.updated_at
RETURNING`+accountColumns, email, accessToken, refreshToken, now)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, errors.Wrap(err, "upsert account")
	}
	shipments, err := loadShipments(ctx, s.db, acc.ID)
	if err != nil {
		return nil, err
	}
	acc.Shipments = shipments
	return acc, nil
}

func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx, `SELECT`+accountColumns+` FROM accounts WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrAccountNotFound, "email %q", email)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select account")
	}

	shipments, err := loadShipments(ctx, s.db, acc.ID)
	if err != nil {
		return nil, err
	}
	acc.Shipments = shipments
	return acc, nil
}

// SaveAccount writes the account's tokens, sync stamp and the whole shipment
// collection in one transaction. Shipments missing from acc are deleted.
func (s *Storage) SaveAccount(ctx context.Context, acc *models.Account) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE accounts
SET
  access_token = $2,
  refresh_token = $3,
  last_synced_at = $4,
  updated_at = $5
WHERE id = $1
`, acc.ID, acc.AccessToken, acc.RefreshToken, acc.LastSyncedAt, now)
	if err != nil {
		return errors.Wrap(err, "update account")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrAccountNotFound, "id %d", acc.ID)
	}

	numbers := make([]string, 0, len(acc.Shipments))
	for i, sh := range acc.Shipments {
		_, err := tx.Exec(ctx, `
INSERT INTO shipments (
  account_id, tracking_number, carrier_code, status, label, delivery_time,
  source_message_id, source_message_date, sender_name, sender_domain,
  position, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (account_id, tracking_number)
DO UPDATE SET
  carrier_code = EXCLUDED.carrier_code,
  status = EXCLUDED.status,
  label = EXCLUDED.label,
  delivery_time = EXCLUDED.delivery_time,
  position = EXCLUDED.position,
  updated_at = EXCLUDED.updated_at
`, acc.ID, sh.TrackingNumber, sh.CarrierCode, int16(sh.Status), sh.Label, sh.DeliveryTime,
			sh.SourceMessageID, sh.SourceMessageDate.UTC(), sh.SenderName, sh.SenderDomain,
			i, orNow(sh.CreatedAt, now), orNow(sh.UpdatedAt, now))
		if err != nil {
			return errors.Wrap(err, "upsert shipment")
		}
		numbers = append(numbers, sh.TrackingNumber)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM shipments WHERE account_id = $1 AND NOT (tracking_number = ANY($2))`, acc.ID, numbers); err != nil {
		return errors.Wrap(err, "delete shipments")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	acc.UpdatedAt = now
	return nil
}

// ClaimDueAccounts picks accounts whose next sync is due and pushes their
// next_sync_at out by lease, so concurrent workers skip them.
// Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueAccounts(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Account, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT`+accountColumns+`
FROM accounts
WHERE next_sync_at <= $1
  AND refresh_token <> ''
ORDER BY next_sync_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due accounts")
	}

	var picked []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan due account")
		}
		picked = append(picked, a)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, a := range picked {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET next_sync_at = $2, updated_at = now() WHERE id = $1`, a.ID, leaseUntil); err != nil {
			return nil, errors.Wrap(err, "lease account")
		}
		a.NextSyncAt = leaseUntil

		shipments, err := loadShipments(ctx, tx, a.ID)
		if err != nil {
			return nil, err
		}
		a.Shipments = shipments
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}

type SyncResult struct {
	AccountID  uint64
	NextSyncAt time.Time
	Error      *string
}

// RecordSyncResult schedules the next sync and tracks consecutive failures.
func (s *Storage) RecordSyncResult(ctx context.Context, res SyncResult) error {
	var err error
	if res.Error != nil && *res.Error != "" {
		_, err = s.db.Exec(ctx, `
UPDATE accounts
SET
  sync_fail_count = sync_fail_count + 1,
  last_error = $2,
  next_sync_at = $3,
  updated_at = now()
WHERE id = $1
`, res.AccountID, *res.Error, res.NextSyncAt.UTC())
		return errors.Wrap(err, "record sync failure")
	}
	_, err = s.db.Exec(ctx, `
UPDATE accounts
SET
  sync_fail_count = 0,
  last_error = NULL,
  next_sync_at = $2,
  updated_at = now()
WHERE id = $1
`, res.AccountID, res.NextSyncAt.UTC())
	return errors.Wrap(err, "record sync success")
}

// RequestSync makes the account due now.
func (s *Storage) RequestSync(ctx context.Context, email string) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET next_sync_at = now(), updated_at = now() WHERE email = $1`, email)
	if err != nil {
		return errors.Wrap(err, "request sync")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrAccountNotFound, "email %q", email)
	}
	return nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.UTC()
}
