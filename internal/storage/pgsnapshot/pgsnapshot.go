// Package pgsnapshot persists the ledger snapshot in postgres, one jsonb row
// per document. Meant for deployments where the data dir of the file backend
// is not durable enough.
package pgsnapshot

import (
	"context"
	"encoding/json"

	"github.com/BearBump/TrackLedger/internal/models"
	"github.com/BearBump/TrackLedger/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type Storage struct {
	db *pgxpool.Pool
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

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) initSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS snapshots (
	name       text PRIMARY KEY,
	doc        jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`)
	return errors.Wrap(err, "init schema")
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Storage) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := models.NewSnapshot()
	if err := s.readDoc(ctx, storage.RecordsDoc, &snap.Records); err != nil {
		return nil, err
	}
	if err := s.readDoc(ctx, storage.TokensDoc, &snap.Tokens); err != nil {
		return nil, err
	}
	if snap.Records == nil {
		snap.Records = map[string]*models.Record{}
	}
	if snap.Tokens == nil {
		snap.Tokens = map[string]*models.ShareToken{}
	}
	return snap, nil
}

// Save upserts both documents in one transaction, so a reader never sees a
// records document from one mutation and a tokens document from another.
func (s *Storage) Save(ctx context.Context, snap *models.Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := writeDoc(ctx, tx, storage.RecordsDoc, snap.Records); err != nil {
		return err
	}
	if err := writeDoc(ctx, tx, storage.TokensDoc, snap.Tokens); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Storage) readDoc(ctx context.Context, name string, out any) error {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM snapshots WHERE name = $1`, name).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "select %s", name)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(storage.ErrCorruptSnapshot, "parse %s: %v", name, err)
	}
	return nil
}

func writeDoc(ctx context.Context, tx pgx.Tx, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}
	_, err = tx.Exec(ctx, `
INSERT INTO snapshots (name, doc, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, name, data)
	return errors.Wrapf(err, "upsert %s", name)
}
