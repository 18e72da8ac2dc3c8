package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/TrackLedger/internal/models"
	"github.com/BearBump/TrackLedger/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestFilestore_EmptyOnFirstRun(t *testing.T) {
	st, err := New(t.TempDir())
	require.NoError(t, err)

	snap, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap.Records)
	require.Empty(t, snap.Tokens)
}

func TestFilestore_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	snap := models.NewSnapshot()
	snap.Records["CHM-482-00391021"] = &models.Record{
		Code:      "CHM-482-00391021",
		CreatedAt: now,
		Updates: []models.HistoryEntry{
			{Text: "Label created", TS: now},
			{Text: "In transit", Location: "Hamburg", TS: now.Add(time.Minute)},
		},
	}
	snap.Tokens["aabbccddeeff00112233445566778899"] = &models.ShareToken{
		Code:      "CHM-482-00391021",
		CreatedAt: now,
	}
	require.NoError(t, st.Save(ctx, snap))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	rec := got.Records["CHM-482-00391021"]
	require.NotNil(t, rec)
	require.Len(t, rec.Updates, 2)
	require.Equal(t, "In transit", rec.Updates[1].Text)
	require.Equal(t, "Hamburg", rec.Updates[1].Location)
	require.Equal(t, "CHM-482-00391021", got.Tokens["aabbccddeeff00112233445566778899"].Code)
}

func TestFilestore_PrettyPrintedAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	require.NoError(t, err)

	snap := models.NewSnapshot()
	snap.Records["CHM-100-00000001"] = &models.Record{Code: "CHM-100-00000001"}
	require.NoError(t, st.Save(context.Background(), snap))

	data, err := os.ReadFile(filepath.Join(dir, "records.json"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "\n  "), "document should be indented")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2) // records.json + tokens.json, no temp files
}

func TestFilestore_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "records.json"), []byte("{not json"), 0o600))

	_, err = st.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrCorruptSnapshot)
}
