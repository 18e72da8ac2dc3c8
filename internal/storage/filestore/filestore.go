// Package filestore persists the ledger snapshot as two pretty-printed JSON
// documents (records.json, tokens.json) in a data directory. Saves go through
// a temp file + rename so a crash mid-write never truncates a document.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BearBump/TrackLedger/internal/models"
	"github.com/BearBump/TrackLedger/internal/storage"
	"github.com/pkg/errors"
)

type Storage struct {
	dir string
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &Storage{dir: dir}, nil
}

func (s *Storage) Load(_ context.Context) (*models.Snapshot, error) {
	snap := models.NewSnapshot()
	if err := s.readDoc(storage.RecordsDoc, &snap.Records); err != nil {
		return nil, err
	}
	if err := s.readDoc(storage.TokensDoc, &snap.Tokens); err != nil {
		return nil, err
	}
	ensureMaps(snap)
	return snap, nil
}

// A document holding JSON null unmarshals to a nil map.
func ensureMaps(snap *models.Snapshot) {
	if snap.Records == nil {
		snap.Records = map[string]*models.Record{}
	}
	if snap.Tokens == nil {
		snap.Tokens = map[string]*models.ShareToken{}
	}
}

func (s *Storage) Save(_ context.Context, snap *models.Snapshot) error {
	if err := s.writeDoc(storage.RecordsDoc, snap.Records); err != nil {
		return err
	}
	return s.writeDoc(storage.TokensDoc, snap.Tokens)
}

func (s *Storage) readDoc(name string, out any) error {
	data, err := os.ReadFile(s.docPath(name))
	if os.IsNotExist(err) {
		// First run: nothing persisted yet.
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(storage.ErrCorruptSnapshot, "parse %s: %v", name, err)
	}
	return nil
}

func (s *Storage) writeDoc(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "temp file for %s", name)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "close %s", name)
	}
	if err := os.Rename(tmp.Name(), s.docPath(name)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrapf(err, "replace %s", name)
	}
	return nil
}

func (s *Storage) docPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}
