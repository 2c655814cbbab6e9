package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxplatform/txindexer/common"
)

func TestNotifierPostsJSONPayload(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotContentType string
	var gotBody payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, nil)
	txid := common.MustParseTxid("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	n.OnReadyToExecute(txid)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "ready_to_execute", gotBody.Event)
	assert.Equal(t, txid.String(), gotBody.Txid)
}

func TestNotifierEventKindsMapToDistinctPayloads(t *testing.T) {
	var mu sync.Mutex
	var events []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		events = append(events, p.Event)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, nil)
	txid := common.MustParseTxid("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	n.OnAddTransaction(txid)
	n.OnTrustTransaction(txid)
	n.OnBanTransaction(txid)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"add_transaction", "trust_transaction", "ban_transaction"}, events)
}

// TestNotifierSurvivesUnreachableURL verifies a delivery failure (no
// listener behind the URL) doesn't panic; the notifier only logs and
// bumps a metric (SPEC_FULL §4.H never surfaces delivery errors to the
// core, since observers are independent of the indexer's own state).
func TestNotifierSurvivesUnreachableURL(t *testing.T) {
	n := New("http://127.0.0.1:1", nil)
	txid := common.MustParseTxid("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	assert.NotPanics(t, func() { n.OnReadyToExecute(txid) })
}
