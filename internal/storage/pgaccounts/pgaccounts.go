// Package pgaccounts persists mailbox accounts and their shipment collections
// in Postgres.
package pgaccounts

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var ErrAccountNotFound = errors.New("account not found")

// lockPoolSize caps how many account locks can be held or awaited at once.
const lockPoolSize = 16

type Storage struct {
	db *pgxpool.Pool

	// locks holds sessions parked on advisory locks, apart from db so that
	// lock holders can always get a connection for their own queries.
	locks *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	lockCfg := cfg.Copy()
	lockCfg.MaxConns = lockPoolSize
	locks, err := pgxpool.NewWithConfig(context.Background(), lockCfg)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect pg locks")
	}

	s := &Storage{db: db, locks: locks}
	if err := s.initSchema(context.Background()); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.Ping(ctx), "ping pg")
}

func (s *Storage) Close() {
	if s.locks != nil {
		s.locks.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
