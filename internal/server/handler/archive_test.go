package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/domain"
)

// fakeBlobReader serves archive objects from an in-memory map.
type fakeBlobReader struct {
	objects map[string][]byte
}

func (f *fakeBlobReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobReader) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newArchiveFixture() *ArchiveHandler {
	reader := &fakeBlobReader{objects: map[string][]byte{
		"resolutions/2026/01/02/m1-rec1.json": []byte(`{"market_id":"m1","resolution":"yes"}`),
		"resolutions/2026/01/02/m2-rec2.json": []byte(`{"market_id":"m2","resolution":"no"}`),
		"resolutions/2026/01/03/m3-rec3.json": []byte(`{"market_id":"m3","resolution":"disputed"}`),
	}}
	return NewArchiveHandler(reader, discardLogger())
}

func TestListArchived_DefaultPrefix(t *testing.T) {
	h := newArchiveFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/resolutions/archive", nil)
	rr := httptest.NewRecorder()
	h.ListArchived(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Prefix string   `json:"prefix"`
		Count  int      `json:"count"`
		Keys   []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "resolutions/", resp.Prefix)
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Keys, 3)
}

func TestListArchived_PrefixFiltersKeys(t *testing.T) {
	h := newArchiveFixture()

	req := httptest.NewRequest(http.MethodGet,
		"/api/resolutions/archive?prefix=resolutions/2026/01/02/", nil)
	rr := httptest.NewRecorder()
	h.ListArchived(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count int      `json:"count"`
		Keys  []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{
		"resolutions/2026/01/02/m1-rec1.json",
		"resolutions/2026/01/02/m2-rec2.json",
	}, resp.Keys)
}

func TestGetArchived_StreamsRecord(t *testing.T) {
	h := newArchiveFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/resolutions/archive/x", nil)
	req.SetPathValue("key", "resolutions/2026/01/02/m1-rec1.json")
	rr := httptest.NewRecorder()
	h.GetArchived(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"market_id":"m1","resolution":"yes"}`, rr.Body.String())
}

func TestGetArchived_MissingKeyIs404(t *testing.T) {
	h := newArchiveFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/resolutions/archive/x", nil)
	req.SetPathValue("key", "resolutions/2026/01/02/nope.json")
	rr := httptest.NewRecorder()
	h.GetArchived(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestArchiveEndpoints_DisabledWithoutBackend(t *testing.T) {
	h := NewArchiveHandler(nil, discardLogger())

	rr := httptest.NewRecorder()
	h.ListArchived(rr, httptest.NewRequest(http.MethodGet, "/api/resolutions/archive", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/resolutions/archive/x", nil)
	req.SetPathValue("key", "resolutions/2026/01/02/m1-rec1.json")
	h.GetArchived(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
