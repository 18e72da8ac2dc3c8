// Package ledger implements the shared package-tracking ledger: PIN-gated
// record creation, append-only status updates, and tokenized share links.
package ledger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/TrackLedger/internal/broker/messages"
	"github.com/BearBump/TrackLedger/internal/cache"
	"github.com/BearBump/TrackLedger/internal/codegen"
	"github.com/BearBump/TrackLedger/internal/models"
	"github.com/BearBump/TrackLedger/internal/storage"
	"github.com/BearBump/TrackLedger/internal/token"
	"github.com/pkg/errors"
)

// Text used when Create is called without an initial label.
const defaultInitialText = "Label created"

type Store interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Options carries the optional plumbing. A nil Cache disables caching, a nil
// Producer disables event publishing.
type Options struct {
	Cache    cache.BytesCache
	CacheTTL time.Duration
	Producer Producer
	Topic    string
}

// Service holds the whole snapshot in memory. All mutations run under the
// write lock as read-modify-persist, so at most one mutation is in flight
// and concurrent appends cannot lose updates.
type Service struct {
	store Store
	pin   string
	opts  Options

	mu   sync.RWMutex
	snap *models.Snapshot
}

// New loads the snapshot from the store. A corrupt snapshot is logged and
// replaced with an empty one (data loss over refusing to start); any other
// load error is returned.
func New(ctx context.Context, store Store, pin string, opts Options) (*Service, error) {
	if pin == "" {
		return nil, errors.New("pin is required")
	}

	snap, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrCorruptSnapshot) {
			return nil, errors.Wrap(err, "load snapshot")
		}
		slog.Warn("snapshot is corrupt, starting with an empty store", "err", err)
		snap = models.NewSnapshot()
	}

	return &Service{store: store, pin: pin, opts: opts, snap: snap}, nil
}

// Create makes a new record with a fresh unique code and one initial entry.
func (s *Service) Create(ctx context.Context, pin, initialText string) (*models.Record, error) {
	if !s.pinOK(pin) {
		return nil, ErrInvalidPIN
	}
	text := strings.TrimSpace(initialText)
	if text == "" {
		text = defaultInitialText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := codegen.NewCode(func(c string) bool {
		_, ok := s.snap.Records[c]
		return ok
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &models.Record{
		Code:      code,
		CreatedAt: now,
		Updates:   []models.HistoryEntry{{Text: text, TS: now}},
	}
	s.snap.Records[code] = rec

	if err := s.store.Save(ctx, s.snap); err != nil {
		delete(s.snap.Records, code)
		return nil, errors.Wrap(err, "persist snapshot")
	}

	s.afterWrite(ctx, rec)
	return rec.Clone(), nil
}

// AppendUpdate appends one status entry to an existing record.
func (s *Service) AppendUpdate(ctx context.Context, pin, code, text string) (*models.Record, error) {
	if !s.pinOK(pin) {
		return nil, ErrInvalidPIN
	}
	if !codegen.Valid(code) {
		return nil, ErrBadCodeFormat
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.snap.Records[code]
	if !ok {
		return nil, ErrNotFound
	}

	rec.Updates = append(rec.Updates, models.HistoryEntry{Text: text, TS: time.Now().UTC()})

	if err := s.store.Save(ctx, s.snap); err != nil {
		rec.Updates = rec.Updates[:len(rec.Updates)-1]
		return nil, errors.Wrap(err, "persist snapshot")
	}

	s.afterWrite(ctx, rec)
	return rec.Clone(), nil
}

// GetHistory returns the full ordered history of a record, cache-first.
func (s *Service) GetHistory(ctx context.Context, code string) (*models.Record, error) {
	if !codegen.Valid(code) {
		return nil, ErrBadCodeFormat
	}

	if s.opts.Cache != nil && s.opts.CacheTTL > 0 {
		if b, ok, err := s.opts.Cache.Get(ctx, historyKey(code)); err == nil && ok {
			var rec models.Record
			if json.Unmarshal(b, &rec) == nil {
				return &rec, nil
			}
		}
	}

	s.mu.RLock()
	rec, ok := s.snap.Records[code]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	out := rec.Clone()
	s.mu.RUnlock()

	s.cacheRecord(ctx, out)
	return out, nil
}

// IssueLink mints a share token bound to the given code.
func (s *Service) IssueLink(ctx context.Context, code string) (string, error) {
	if !codegen.Valid(code) {
		return "", ErrBadCodeFormat
	}

	tok, err := token.New()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.Records[code]; !ok {
		return "", ErrNotFound
	}

	s.snap.Tokens[tok] = &models.ShareToken{Code: code, CreatedAt: time.Now().UTC()}

	if err := s.store.Save(ctx, s.snap); err != nil {
		delete(s.snap.Tokens, tok)
		return "", errors.Wrap(err, "persist snapshot")
	}

	return tok, nil
}

// RedeemLink returns the history a share token grants access to. The token
// must be presented together with the exact code it was issued for.
func (s *Service) RedeemLink(ctx context.Context, code, tok string) (*models.Record, error) {
	if !codegen.Valid(code) {
		return nil, ErrBadCodeFormat
	}
	if tok == "" {
		return nil, ErrForbidden
	}

	s.mu.RLock()
	st, ok := s.snap.Tokens[tok]
	if !ok || st.Code != code {
		s.mu.RUnlock()
		return nil, ErrForbidden
	}
	rec, ok := s.snap.Records[code]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrNotFound
	}
	out := rec.Clone()
	s.mu.RUnlock()

	return out, nil
}

func (s *Service) pinOK(pin string) bool {
	return subtle.ConstantTimeCompare([]byte(pin), []byte(s.pin)) == 1
}

// afterWrite refreshes the history cache and publishes the update event.
// Both are best-effort: the mutation is already persisted.
func (s *Service) afterWrite(ctx context.Context, rec *models.Record) {
	s.cacheRecord(ctx, rec)

	if s.opts.Producer != nil && s.opts.Topic != "" {
		last := rec.Updates[len(rec.Updates)-1]
		msg := messages.RecordUpdated{
			Code:       rec.Code,
			Text:       last.Text,
			Location:   last.Location,
			TS:         last.TS,
			HistoryLen: len(rec.Updates),
		}
		b, _ := json.Marshal(msg)
		if err := s.opts.Producer.Publish(ctx, s.opts.Topic, []byte(rec.Code), b); err != nil {
			slog.Warn("publish record update", "code", rec.Code, "err", err)
		}
	}
}

func (s *Service) cacheRecord(ctx context.Context, rec *models.Record) {
	if s.opts.Cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = s.opts.Cache.Set(ctx, historyKey(rec.Code), b, s.opts.CacheTTL)
}

func historyKey(code string) string {
	return "record:" + code + ":history"
}
