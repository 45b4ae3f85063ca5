package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/pchunk/pkg/archive"
	"github.com/ssargent/pchunk/pkg/codec"
	"github.com/ssargent/pchunk/pkg/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// memoryStore is an in-memory ImageStore
type memoryStore struct {
	mu     sync.Mutex
	images map[ksuid.KSUID][]byte
	types  map[ksuid.KSUID][]codec.Tag
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		images: make(map[ksuid.KSUID][]byte),
		types:  make(map[ksuid.KSUID][]codec.Tag),
	}
}

func (m *memoryStore) Put(data []byte, types ...codec.Tag) (ksuid.KSUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ksuid.New()
	m.images[id] = bytes.Clone(data)
	m.types[id] = types
	return id, nil
}

func (m *memoryStore) Get(id ksuid.KSUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.images[id]
	if !ok {
		return nil, archive.ErrNotFound
	}
	return bytes.Clone(data), nil
}

func (m *memoryStore) Delete(id ksuid.KSUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[id]; !ok {
		return archive.ErrNotFound
	}
	delete(m.images, id)
	delete(m.types, id)
	return nil
}

func (m *memoryStore) List() ([]ksuid.KSUID, error) {
	return m.filter(func(ksuid.KSUID) bool { return true }), nil
}

func (m *memoryStore) ListByType(tag codec.Tag) ([]ksuid.KSUID, error) {
	return m.filter(func(id ksuid.KSUID) bool {
		for _, t := range m.types[id] {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (m *memoryStore) filter(keep func(ksuid.KSUID) bool) []ksuid.KSUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]ksuid.KSUID, 0, len(m.images))
	for id := range m.images {
		if keep(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ksuid.Compare(ids[i], ids[j]) < 0 })
	return ids
}

var tagIDAT = codec.Tag{'I', 'D', 'A', 'T'}

func samplePNG() []byte {
	return container.New(
		codec.NewChunk(codec.TagIHDR, []byte{0, 0, 0, 2, 0, 0, 0, 2, 8, 2, 0, 0, 0}),
		codec.NewChunk(codec.TagTEXT, []byte("Comment\x00first")),
		codec.NewChunk(tagIDAT, []byte{0x78, 0x9c, 0x01}),
		codec.NewChunk(codec.TagTEXT, []byte("Author\x00second")),
		codec.NewChunk(tagIDAT, []byte{0x02, 0x03}),
		codec.NewChunk(codec.TagIEND, nil),
	).Render()
}

// brokenLengthPNG overstates the first tEXt length so strict decoding fails
func brokenLengthPNG() []byte {
	buf := samplePNG()
	binary.BigEndian.PutUint32(buf[8+25:], 0xFFFF)
	return buf
}

type testServer struct {
	server  *Server
	store   *memoryStore
	metrics *Metrics
	handler http.Handler
}

func setupTestServer(t *testing.T, config ServerConfig) *testServer {
	t.Helper()

	if config.APIKey == "" {
		config.APIKey = testAPIKey
	}

	store := newMemoryStore()
	metrics := NewMetricsWith(prometheus.NewRegistry())
	server := NewServer(store, config, metrics)

	return &testServer{
		server:  server,
		store:   store,
		metrics: metrics,
		handler: server.Router(),
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

type inspectPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		ID      string            `json:"id"`
		Summary container.Summary `json:"summary"`
		Chunks  []struct {
			Index int    `json:"index"`
			Type  string `json:"type"`
			Valid bool   `json:"valid"`
			Text  *struct {
				Keyword string `json:"keyword"`
				Value   string `json:"value"`
			} `json:"text"`
		} `json:"chunks"`
	} `json:"data"`
}

func decodeInspect(t *testing.T, w *httptest.ResponseRecorder) inspectPayload {
	t.Helper()

	var payload inspectPayload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&payload))
	return payload
}

func TestServer_Health(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, response.Data)
}

func TestServer_RequiresAPIKey(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	req := httptest.NewRequest("POST", "/api/v1/inspect", bytes.NewReader(samplePNG()))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("POST", "/api/v1/inspect", bytes.NewReader(samplePNG()))
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestServer_Inspect(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "POST", "/api/v1/inspect", samplePNG())
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeInspect(t, w)
	require.True(t, payload.Success)
	assert.Empty(t, payload.Data.ID)
	assert.Equal(t, "strict", payload.Data.Summary.Strategy)
	assert.Equal(t, 6, payload.Data.Summary.Chunks)
	assert.Zero(t, payload.Data.Summary.Invalid)

	require.Len(t, payload.Data.Chunks, 6)
	assert.Equal(t, "IHDR", payload.Data.Chunks[0].Type)
	assert.Nil(t, payload.Data.Chunks[1].Text)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.decodesTotal.WithLabelValues("strict", statusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.chunksDecodedTotal.WithLabelValues("tEXt")))
	assert.Equal(t, float64(len(samplePNG())), testutil.ToFloat64(ts.metrics.bytesProcessedTotal))
}

func TestServer_InspectText(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "POST", "/api/v1/inspect?text=true", samplePNG())
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeInspect(t, w)
	require.Len(t, payload.Data.Chunks, 6)
	assert.Nil(t, payload.Data.Chunks[0].Text)
	require.NotNil(t, payload.Data.Chunks[1].Text)
	assert.Equal(t, "Comment", payload.Data.Chunks[1].Text.Keyword)
	assert.Equal(t, "first", payload.Data.Chunks[1].Text.Value)
}

func TestServer_InspectSelection(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	tests := []struct {
		name    string
		query   string
		indices []int
	}{
		{name: "by type", query: "type=tEXt", indices: []int{1, 3}},
		{name: "by repeated type", query: "type=tEXt&type=IEND", indices: []int{1, 3, 5}},
		{name: "by index list", query: "index=4,0", indices: []int{0, 4}},
		{name: "limit", query: "type=IDAT&limit=1", indices: []int{2}},
		{name: "index out of range", query: "index=42", indices: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, "POST", "/api/v1/inspect?"+tt.query, samplePNG())
			require.Equal(t, http.StatusOK, w.Code)

			payload := decodeInspect(t, w)
			var got []int
			for _, row := range payload.Data.Chunks {
				got = append(got, row.Index)
			}
			assert.Equal(t, tt.indices, got)
		})
	}
}

func TestServer_InspectErrors(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{MaxUploadBytes: 64})

	tests := []struct {
		name           string
		query          string
		body           []byte
		expectedStatus int
	}{
		{name: "not a png", body: []byte("GIF89a and then some"), expectedStatus: http.StatusBadRequest},
		{name: "type and index", query: "type=IHDR&index=0", body: samplePNG()[:40], expectedStatus: http.StatusBadRequest},
		{name: "malformed type", query: "type=abcde", body: samplePNG()[:40], expectedStatus: http.StatusBadRequest},
		{name: "bad limit", query: "limit=-1", body: samplePNG()[:40], expectedStatus: http.StatusBadRequest},
		{name: "bad mode", query: "mode=fast", body: samplePNG()[:40], expectedStatus: http.StatusBadRequest},
		{name: "too large", body: samplePNG(), expectedStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/inspect"
			if tt.query != "" {
				target += "?" + tt.query
			}
			w := ts.do(t, "POST", target, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			var response APIResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.False(t, response.Success)
			assert.NotEmpty(t, response.Error)
		})
	}
}

func TestServer_InspectModes(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})
	buf := brokenLengthPNG()

	w := ts.do(t, "POST", "/api/v1/inspect?mode=strict", buf)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.decodesTotal.WithLabelValues("none", statusError)))

	w = ts.do(t, "POST", "/api/v1/inspect", buf)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeInspect(t, w)
	assert.Equal(t, "heuristic", payload.Data.Summary.Strategy)
	assert.NotEmpty(t, payload.Data.Summary.Fallback)
	assert.Equal(t, 6, payload.Data.Summary.Chunks)

	w = ts.do(t, "POST", "/api/v1/inspect?mode=heuristic", samplePNG())
	require.Equal(t, http.StatusOK, w.Code)
	payload = decodeInspect(t, w)
	assert.Equal(t, "heuristic", payload.Data.Summary.Strategy)
	assert.Empty(t, payload.Data.Summary.Fallback)
}

func TestServer_Repair(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	good := samplePNG()
	bad := bytes.Clone(good)
	bad[len(bad)-1] ^= 0xFF // IEND CRC

	w := ts.do(t, "POST", "/api/v1/repair", bad)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePNG, w.Header().Get("Content-Type"))
	assert.Equal(t, good, w.Body.Bytes())
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.checksumMismatches))
}

func TestServer_ImageLifecycle(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	bad := samplePNG()
	bad[8+21] ^= 0x01 // IHDR CRC

	w := ts.do(t, "POST", "/api/v1/images", bad)
	require.Equal(t, http.StatusOK, w.Code)
	uploaded := decodeInspect(t, w)
	require.NotEmpty(t, uploaded.Data.ID)
	assert.Equal(t, 1, uploaded.Data.Summary.Invalid)
	id := uploaded.Data.ID

	w = ts.do(t, "GET", "/api/v1/images", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, []string{id}, list.Data)

	w = ts.do(t, "GET", "/api/v1/images?type=tEXt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list.Data = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, []string{id}, list.Data)

	w = ts.do(t, "GET", "/api/v1/images?type=zTXt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list.Data = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list.Data)

	w = ts.do(t, "GET", "/api/v1/images?type=toolong", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "GET", "/api/v1/images/"+id+"?type=IDAT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeInspect(t, w)
	assert.Equal(t, id, report.Data.ID)
	assert.Len(t, report.Data.Chunks, 2)

	w = ts.do(t, "GET", "/api/v1/images/"+id+"/raw", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bad, w.Body.Bytes())

	w = ts.do(t, "GET", "/api/v1/images/"+id+"/raw?repair=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, samplePNG(), w.Body.Bytes())

	w = ts.do(t, "GET", "/api/v1/images/"+id+"/chunks/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, codec.NewChunk(codec.TagIEND, nil).Serialize(), w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "005_IEND.chunk")

	w = ts.do(t, "GET", "/api/v1/images/"+id+"/chunks/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/api/v1/images/"+id+"/chunks/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "DELETE", "/api/v1/images/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "GET", "/api/v1/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "DELETE", "/api/v1/images/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.archiveOperationsTotal.WithLabelValues("put", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.archiveOperationsTotal.WithLabelValues("delete", statusSuccess)))
}

func TestServer_UploadIndexesAllTypes(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "POST", "/api/v1/images?type=IHDR", samplePNG())
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeInspect(t, w)
	assert.Len(t, payload.Data.Chunks, 1, "the report follows the selection")

	id, err := ksuid.Parse(payload.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, []codec.Tag{codec.TagIHDR, codec.TagTEXT, tagIDAT, codec.TagIEND}, ts.store.types[id])

	stored, err := ts.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, samplePNG(), stored, "the whole body is archived")
}

func TestServer_InvalidImageID(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "GET", "/api/v1/images/not-a-ksuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Swagger(t *testing.T) {
	ts := setupTestServer(t, ServerConfig{})

	w := ts.do(t, "GET", "/swagger/swagger.json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/inspect")

	w = ts.do(t, "GET", "/swagger/index.html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")

	w = ts.do(t, "GET", "/swagger/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCriteriaFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    container.Criteria
		wantErr bool
	}{
		{name: "empty", query: "", want: container.Criteria{}},
		{name: "types", query: "type=IHDR,tEXt", want: container.Criteria{Tags: []codec.Tag{codec.TagIHDR, codec.TagTEXT}}},
		{name: "indices", query: "index=1&index=2, 3", want: container.Criteria{Indices: []int{1, 2, 3}}},
		{name: "limit", query: "limit=4", want: container.Criteria{Limit: 4}},
		{name: "bad index", query: "index=one", wantErr: true},
		{name: "bad tag", query: "type=PNG", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := criteriaFromQuery(q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultServerFactory(t *testing.T) {
	starter := NewServerFactory().CreateServerStarter()
	assert.IsType(t, &DefaultServerStarter{}, starter)
}
