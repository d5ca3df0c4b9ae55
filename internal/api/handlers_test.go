package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/africycle/africycle/internal/ledger"
	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/internal/store"
	"github.com/africycle/africycle/internal/token"
	"github.com/africycle/africycle/internal/waste"
	"github.com/africycle/africycle/pkg/db/pebble"
)

var (
	testAdmin     = waste.Address{0x01}
	testCollector = waste.Address{0x02}
	testRecycler  = waste.Address{0x03}
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	s := store.New(kv)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	l := ledger.New(s, token.NewBook(kv), reward.NewEngine(reward.DefaultTables()), ledger.Config{
		Admin:  testAdmin,
		Logger: zerolog.Nop(),
	})
	return NewHTTPServer(NewServer(l, zerolog.Nop()), ":0").Handler
}

// do issues a request with an optional caller header and JSON body.
func do(t *testing.T, h http.Handler, method, path string, from waste.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if !from.IsZero() {
		req.Header.Set(callerHeader, from.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRegisterAndGetProfile(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/v1/users", testCollector, map[string]string{
		"role": "collector", "name": "Ada", "location": "Lagos",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/users/"+testCollector.String(), waste.ZeroAddress, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[userResponse](t, rec)
	require.Equal(t, "collector", profile.Role)
	require.Equal(t, "Ada", profile.Name)
	require.False(t, profile.Verified)

	// Duplicate registration conflicts.
	rec = do(t, h, http.MethodPost, "/v1/users", testCollector, map[string]string{
		"role": "collector", "name": "Ada",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	// Missing caller header.
	rec := do(t, h, http.MethodPost, "/v1/users", waste.ZeroAddress, map[string]string{
		"role": "collector", "name": "Ada",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown user.
	rec = do(t, h, http.MethodGet, "/v1/users/"+testRecycler.String(), waste.ZeroAddress, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Non-admin verification.
	rec = do(t, h, http.MethodPost, "/v1/users", testCollector, map[string]string{
		"role": "collector", "name": "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, fmt.Sprintf("/v1/users/%s/verify", testCollector), testRecycler, map[string]any{})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown fields are rejected.
	rec = do(t, h, http.MethodPost, "/v1/users", testRecycler, map[string]string{
		"role": "recycler", "name": "Eco", "bogus": "field",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCollectionLifecycleOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	for addr, body := range map[waste.Address]map[string]string{
		testCollector: {"role": "collector", "name": "Ada"},
		testRecycler:  {"role": "recycler", "name": "Eco"},
	} {
		rec := do(t, h, http.MethodPost, "/v1/users", addr, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = do(t, h, http.MethodPost, fmt.Sprintf("/v1/users/%s/verify", addr), testAdmin, map[string]any{})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/v1/fund", testAdmin, map[string]uint64{"amount": 1_000_000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/collections", testCollector, map[string]any{
		"stream":     "plastic",
		"weight_kg":  100,
		"location":   "Ikeja",
		"image_hash": waste.Hash{0xaa}.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]uint64](t, rec)
	id := created["id"]
	require.NotZero(t, id)

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/v1/collections/%d/verify", id), testRecycler, map[string]any{
		"accept": true, "quality": "high",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	verified := decode[collectionResponse](t, rec)
	require.Equal(t, "verified", verified.Status)
	require.Equal(t, uint64(60_000), verified.RewardAmount)

	// Settled collections conflict on re-verification.
	rec = do(t, h, http.MethodPost, fmt.Sprintf("/v1/collections/%d/verify", id), testRecycler, map[string]any{
		"accept": true, "quality": "high",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSimulateRewardOverHTTP(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/v1/rewards/simulate?stream=plastic&quality=high&weight_kg=100", waste.ZeroAddress, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[map[string]uint64](t, rec)
	require.Equal(t, uint64(60_000), out["reward"])
	require.Equal(t, uint64(165_000), out["carbon_offset"])

	rec = do(t, h, http.MethodGet, "/v1/rewards/simulate?stream=unobtainium&quality=high&weight_kg=100", waste.ZeroAddress, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
