package pgaccounts

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  access_token TEXT NOT NULL DEFAULT '',
  refresh_token TEXT NOT NULL DEFAULT '',
  last_synced_at TIMESTAMPTZ NULL,
  next_sync_at TIMESTAMPTZ NOT NULL,
  sync_fail_count INT NOT NULL DEFAULT 0,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_next_sync_at ON accounts(next_sync_at)`,
		`
CREATE TABLE IF NOT EXISTS shipments (
  id BIGSERIAL PRIMARY KEY,
  account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  tracking_number TEXT NOT NULL,
  carrier_code TEXT NOT NULL,
  status SMALLINT NOT NULL DEFAULT 0,
  label TEXT NOT NULL DEFAULT '',
  delivery_time TIMESTAMPTZ NULL,
  source_message_id TEXT NOT NULL DEFAULT '',
  source_message_date TIMESTAMPTZ NOT NULL,
  sender_name TEXT NOT NULL DEFAULT '',
  sender_domain TEXT NOT NULL DEFAULT '',
  position INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (account_id, tracking_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_account_id_position ON shipments(account_id, position)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
