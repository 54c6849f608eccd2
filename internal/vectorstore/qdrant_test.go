package vectorstore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/filesense/internal/config"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant serves just enough of the collections API to accept an
// upsert, recording every point it receives.
type fakeQdrant struct {
	collections map[string]bool
	points      []qdrantPoint
}

func (f *fakeQdrant) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/points"):
			var body struct {
				Points []qdrantPoint `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.points = append(f.points, body.Points...)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			f.collections[r.URL.Path] = true
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			if f.collections[r.URL.Path] {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}
}

func TestQdrantUpsertSendsLegalPointIDs(t *testing.T) {
	fake := &fakeQdrant{collections: make(map[string]bool)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store, err := vectorstore.New(config.VectorStoreConfig{
		Type: "qdrant",
		Data: map[string]interface{}{
			"endpoint":   srv.URL,
			"vector_dim": 3,
		},
	})
	require.NoError(t, err)

	docs := testDocs()
	require.NoError(t, store.Upsert(context.Background(), "idx", docs))

	// one point per document per space
	require.Len(t, fake.points, 2*len(docs))
	knownIDs := make(map[string]bool, len(docs))
	knownPaths := make(map[string]bool, len(docs))
	for _, doc := range docs {
		knownIDs[doc.ID] = true
		knownPaths[doc.Path] = true
	}
	for _, point := range fake.points {
		require.Regexp(t, uuidPattern, point.ID)
		docID, _ := point.Payload["doc_id"].(string)
		require.True(t, knownIDs[docID], "payload must carry the document id")
		path, _ := point.Payload["path"].(string)
		require.True(t, knownPaths[path])
	}
}

func TestQdrantPointIDIsStable(t *testing.T) {
	fake := &fakeQdrant{collections: make(map[string]bool)}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store, err := vectorstore.New(config.VectorStoreConfig{
		Type: "qdrant",
		Data: map[string]interface{}{
			"endpoint":   srv.URL,
			"vector_dim": 3,
		},
	})
	require.NoError(t, err)

	docs := testDocs()[:1]
	require.NoError(t, store.Upsert(context.Background(), "idx", docs))
	require.NoError(t, store.Upsert(context.Background(), "idx", docs))

	require.Len(t, fake.points, 4)
	require.Equal(t, fake.points[0].ID, fake.points[2].ID)
}
