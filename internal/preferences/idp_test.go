package preferences

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrodash/internal/shared/testutil"
)

// fakeIdP mimics the user management API: metadata PATCHes merge top-level keys
type fakeIdP struct {
	mu       sync.Mutex
	metadata map[string]map[string]json.RawMessage
	failWith int
}

func newFakeIdP(t *testing.T) (*fakeIdP, *httptest.Server) {
	f := &fakeIdP{metadata: make(map[string]map[string]json.RawMessage)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeIdP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if f.failWith != 0 {
		http.Error(w, `{"error":"boom"}`, f.failWith)
		return
	}
	id, ok := strings.CutPrefix(r.URL.Path, "/api/v2/users/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"user_id": id, "user_metadata": f.metadata[id]})
	case http.MethodPatch:
		var body userProfile
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if f.metadata[id] == nil {
			f.metadata[id] = make(map[string]json.RawMessage)
		}
		for k, v := range body.UserMetadata {
			f.metadata[id][k] = v
		}
		json.NewEncoder(w).Encode(map[string]any{"user_id": id, "user_metadata": f.metadata[id]})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newIdPStore(t *testing.T, srv *httptest.Server, token string) *IdPStore {
	logger, _ := testutil.NewTestLogger(t)
	store, err := NewIdPStore(IdPConfig{Domain: srv.URL, Token: token, Namespace: "petrodash"}, logger)
	require.NoError(t, err)
	return store
}

func TestIdPStore(t *testing.T) {
	_, srv := newFakeIdP(t)
	storeContract(t, newIdPStore(t, srv, "secret"))
}

func TestIdPStore_KeepsOtherMetadata(t *testing.T) {
	fake, srv := newFakeIdP(t)
	fake.metadata["auth0|42"] = map[string]json.RawMessage{"theme": json.RawMessage(`"dark"`)}

	store := newIdPStore(t, srv, "secret")
	require.NoError(t, store.Set(context.Background(), "auth0|42", Preferences{TariffConstant: 3}))

	assert.JSONEq(t, `"dark"`, string(fake.metadata["auth0|42"]["theme"]))
	assert.JSONEq(t, `{"holidays":[],"tariff_constant":3}`, string(fake.metadata["auth0|42"]["petrodash"]))
}

func TestIdPStore_Failures(t *testing.T) {
	fake, srv := newFakeIdP(t)

	store := newIdPStore(t, srv, "wrong")
	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "401")

	fake.failWith = http.StatusServiceUnavailable
	store = newIdPStore(t, srv, "secret")
	err = store.Set(context.Background(), "alice", Preferences{})
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestIdPStore_MalformedMetadata(t *testing.T) {
	fake, srv := newFakeIdP(t)
	fake.metadata["alice"] = map[string]json.RawMessage{"petrodash": json.RawMessage(`"oops"`)}

	_, err := newIdPStore(t, srv, "secret").Get(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestNewIdPStore_Validation(t *testing.T) {
	_, err := NewIdPStore(IdPConfig{Namespace: "x"}, nil)
	assert.Error(t, err)
	_, err = NewIdPStore(IdPConfig{Domain: "tenant.example.com"}, nil)
	assert.Error(t, err)
}
