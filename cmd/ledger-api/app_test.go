package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/BearBump/TrackLedger/internal/services/ledger"
	"github.com/BearBump/TrackLedger/internal/storage/filestore"
	"github.com/stretchr/testify/require"
)

func TestRunLedgerAPI(t *testing.T) {
	st, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	svc, err := ledger.New(context.Background(), st, "0431", ledger.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runLedgerAPI(ctx, ledgerAPIOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		}, svc)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to listen")
	}

	body, _ := json.Marshal(map[string]string{"pin": "0431", "initialText": "Label created"})
	resp, err := http.Post("http://"+addr+"/api/create", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server to stop")
	}
}
