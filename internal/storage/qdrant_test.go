package storage_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/storage"
)

const existingCollection = `{"result": {"config": {"params": {"vectors": {"size": 4, "distance": "Cosine"}}}}}`

func newTestQdrant(t *testing.T, handler http.HandlerFunc) *storage.Qdrant {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	q, err := storage.NewQdrant(context.Background(), &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "resumes",
		Dimension:  4,
		APIKey:     "secret",
	})
	require.NoError(t, err)
	return q
}

func TestNewQdrantExistingCollection(t *testing.T) {
	var calls int32
	newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		if r.URL.Path == "/collections/resumes" && r.Method == http.MethodGet {
			_, _ = w.Write([]byte(existingCollection))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewQdrantCreatesCollection(t *testing.T) {
	var created map[string]interface{}
	newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			_, _ = w.Write([]byte(`{"result": true}`))
		}
	})

	require.NotNil(t, created)
	vectors := created["vectors"].(map[string]interface{})
	assert.Equal(t, float64(4), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestNewQdrantServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := storage.NewQdrant(context.Background(), &config.QdrantConfig{Endpoint: server.URL, Collection: "resumes", Dimension: 4})
	require.Error(t, err)

	var statusErr *storage.QdrantStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestUpsertResume(t *testing.T) {
	var body struct {
		Points []struct {
			ID      string                 `json:"id"`
			Vector  []float64              `json:"vector"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
	}
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(existingCollection))
			return
		}
		assert.Equal(t, "/collections/resumes/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"result": {"operation_id": 1, "status": "completed"}}`))
	})

	id, err := q.UpsertResume(context.Background(), "sub-1", []float64{0.1, 0.2, 0.3, 0.4}, map[string]interface{}{"name": "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, storage.PointID("sub-1"), id)

	require.Len(t, body.Points, 1)
	assert.Equal(t, id, body.Points[0].ID)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, body.Points[0].Vector)
	assert.Equal(t, "sub-1", body.Points[0].Payload["submission_uuid"])
	assert.Equal(t, "Jane Doe", body.Points[0].Payload["name"])
}

func TestUpsertResumeDimensionMismatch(t *testing.T) {
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(existingCollection))
	})
	_, err := q.UpsertResume(context.Background(), "sub-1", []float64{1, 2}, nil)
	assert.Error(t, err)
}

func TestSearchResumes(t *testing.T) {
	var req map[string]interface{}
	q := newTestQdrant(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(existingCollection))
			return
		}
		assert.Equal(t, "/collections/resumes/points/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, _ = w.Write([]byte(`{"result": [
			{"id": "p1", "score": 0.92, "payload": {"submission_uuid": "sub-1", "name": "Jane Doe"}},
			{"id": "p2", "score": 0.41, "payload": {"submission_uuid": "sub-2"}}
		]}`))
	})

	hits, err := q.SearchResumes(context.Background(), []float64{1, 0, 0, 0}, 5, 0.1)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.InDelta(t, 0.92, hits[0].Score, 1e-6)
	assert.Equal(t, "sub-1", hits[0].Payload["submission_uuid"])

	assert.Equal(t, float64(5), req["limit"])
	assert.Equal(t, 0.1, req["score_threshold"])
	assert.Equal(t, true, req["with_payload"])
}

func TestPointIDDeterministic(t *testing.T) {
	assert.Equal(t, storage.PointID("abc"), storage.PointID("abc"))
	assert.NotEqual(t, storage.PointID("abc"), storage.PointID("abd"))
}
