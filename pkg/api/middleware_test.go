package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{name: "valid API key", apiKey: "test-key", requestHeader: "test-key", expectedStatus: http.StatusOK},
		{name: "missing API key header", apiKey: "test-key", requestHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "invalid API key", apiKey: "test-key", requestHeader: "wrong-key", expectedStatus: http.StatusUnauthorized},
		{name: "prefix of API key", apiKey: "test-key", requestHeader: "test", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := apiKeyMiddleware(tt.apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestInstrumentAuthMiddleware(t *testing.T) {
	metrics := NewMetricsWith(prometheus.NewRegistry())
	handler := metrics.InstrumentAuthMiddleware(apiKeyMiddleware("k"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	for _, key := range []string{"k", "bad", "k", ""} {
		req := httptest.NewRequest("GET", "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// requests without a key are not counted
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestInstrumentHandler(t *testing.T) {
	metrics := NewMetricsWith(prometheus.NewRegistry())
	handler := metrics.InstrumentHandler("GET", "/x", func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "nope", http.StatusTeapot)
	})

	handler(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/x", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.httpRequestsInFlight.WithLabelValues("GET", "/x")))
}

func TestSendSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	sendSuccess(w, map[string]string{"message": "test"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response APIResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Empty(t, response.Error)
}

func TestSendError(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		w := httptest.NewRecorder()

		sendError(w, "failed", code)

		assert.Equal(t, code, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response APIResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.False(t, response.Success)
		assert.Equal(t, "failed", response.Error)
	}
}

func TestSendBinary(t *testing.T) {
	w := httptest.NewRecorder()

	sendBinary(w, contentTypePNG, []byte{1, 2, 3})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePNG, w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{1, 2, 3}, w.Body.Bytes())
}
