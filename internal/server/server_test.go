package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/HORDE/internal/config"
	"github.com/copyleftdev/HORDE/internal/logging"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stderr"

	// Small swarm so tests finish quickly
	cfg.Swarm.Dimensions = 2
	cfg.Swarm.LowerBound = -10
	cfg.Swarm.UpperBound = 10
	cfg.Swarm.ParticleCount = 5
	cfg.Swarm.InertiaWeight = 0.5
	cfg.Swarm.CognitiveCoefficient = 1.0
	cfg.Swarm.SocialCoefficient = 3.0
	cfg.Swarm.Iterations = 50
	cfg.Swarm.NotificationInterval = 10
	cfg.Swarm.WorkerCount = 1
	cfg.Swarm.StreamBuffer = 64

	return cfg
}

// testLogger creates a quiet test logger
func testLogger(t *testing.T) *logging.Logger {
	return logging.New(logging.ErrorLevel, io.Discard)
}

// newTestServer creates a server with an isolated metrics registry.
func newTestServer(t *testing.T) *Server {
	return NewServer(testConfig(t), testLogger(t), prometheus.NewRegistry())
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	assert.NotNil(t, srv, "Server should be created")
}

func TestRegisterRoutes(t *testing.T) {
	srv := newTestServer(t)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/optimize", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/optimization/123", true},
		{"GET", "/api/v1/watch/123", true},
		{"GET", "/api/v1/objectives", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Not registered by server package
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// A 404 means the route does not exist; any other status means
			// the handler ran.
			if tt.shouldExist && rr.Code == http.StatusNotFound {
				t.Errorf("Route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestObjectivesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/api/v1/objectives", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var response struct {
		Objectives []string `json:"objectives"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Contains(t, response.Objectives, "sphere")
	assert.Contains(t, response.Objectives, "rastrigin")
}

func TestOptimizeValidation(t *testing.T) {
	srv := newTestServer(t)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	tests := []struct {
		name string
		body string
	}{
		{"missing objective", `{}`},
		{"unknown objective", `{"objective": "unobtainium"}`},
		{"invalid bounds", `{"objective": "sphere", "lower_bound": 5, "upper_bound": -5}`},
		{"malformed body", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/optimize", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

// waitForStatus polls the status endpoint until the job reaches a terminal
// state or the deadline passes.
func waitForStatus(t *testing.T, r chi.Router, jobID string, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest("GET", "/api/v1/status/"+jobID, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		if response["status"] == want {
			return response
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q", jobID, want)
	return nil
}

func TestOptimizeLifecycle(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	body := `{"objective": "sphere", "iterations": 50, "particle_count": 5, "seed": 7}`
	req := httptest.NewRequest("POST", "/api/v1/optimize", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.JobID)

	status := waitForStatus(t, r, accepted.JobID, "completed")
	assert.Equal(t, "sphere", status["objective"])
	assert.NotNil(t, status["best_solution"])
	assert.NotNil(t, status["history"])
	assert.InDelta(t, 1.0, status["progress"], 1e-9)

	// A finished job can no longer be cancelled.
	req = httptest.NewRequest("DELETE", "/api/v1/optimization/"+accepted.JobID, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelOptimization(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	// A long run so cancellation lands while it is in flight.
	body := `{"objective": "rastrigin", "iterations": 10000000, "notification_interval": 100000, "particle_count": 30, "seed": 3}`
	req := httptest.NewRequest("POST", "/api/v1/optimize", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&accepted))

	req = httptest.NewRequest("DELETE", "/api/v1/optimization/"+accepted.JobID, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	waitForStatus(t, r, accepted.JobID, "cancelled")

	// The job's stream must close even though the run never reached OnEnd,
	// or a watcher draining it would block forever.
	srv.jobsMu.RLock()
	stream := srv.jobs[accepted.JobID].Stream
	srv.jobsMu.RUnlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range stream.Events() {
		}
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never closed after cancellation")
	}
}

func TestStatusUnknownJob(t *testing.T) {
	srv := newTestServer(t)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/api/v1/status/no-such-job", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJSONRPC(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	rpc := func(body string) map[string]interface{} {
		req := httptest.NewRequest("POST", "/rpc", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
		return response
	}

	t.Run("start and status", func(t *testing.T) {
		response := rpc(`{"jsonrpc": "2.0", "id": 1, "method": "optimization.start",
			"params": {"objective": "sphere", "iterations": 50, "particle_count": 5, "seed": 7}}`)
		require.Nil(t, response["error"])
		result := response["result"].(map[string]interface{})
		jobID := result["job_id"].(string)
		require.NotEmpty(t, jobID)

		waitForStatus(t, r, jobID, "completed")

		response = rpc(fmt.Sprintf(`{"jsonrpc": "2.0", "id": 2, "method": "optimization.status",
			"params": {"job_id": %q}}`, jobID))
		require.Nil(t, response["error"])
		result = response["result"].(map[string]interface{})
		assert.Equal(t, "completed", result["status"])
	})

	t.Run("cancel unknown job", func(t *testing.T) {
		response := rpc(`{"jsonrpc": "2.0", "id": 3, "method": "optimization.cancel",
			"params": {"job_id": "no-such-job"}}`)
		errObj := response["error"].(map[string]interface{})
		assert.Equal(t, float64(-32000), errObj["code"])
	})

	t.Run("method not found", func(t *testing.T) {
		response := rpc(`{"jsonrpc": "2.0", "id": 4, "method": "optimization.nope"}`)
		errObj := response["error"].(map[string]interface{})
		assert.Equal(t, float64(-32601), errObj["code"])
	})

	t.Run("invalid version", func(t *testing.T) {
		response := rpc(`{"jsonrpc": "1.0", "id": 5, "method": "optimization.start"}`)
		errObj := response["error"].(map[string]interface{})
		assert.Equal(t, float64(-32600), errObj["code"])
	})

	t.Run("missing params", func(t *testing.T) {
		response := rpc(`{"jsonrpc": "2.0", "id": 6, "method": "optimization.status"}`)
		errObj := response["error"].(map[string]interface{})
		assert.Equal(t, float64(-32000), errObj["code"])
	})
}

func TestClose(t *testing.T) {
	srv := newTestServer(t)
	err := srv.Close()
	assert.NoError(t, err, "Close should not return an error")
}

func TestRespondWithError(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
	}{
		{
			name:       "valid error response",
			code:       -32000,
			message:    "invalid input",
			id:         "123",
			expectedID: "123",
		},
		{
			name:       "nil id",
			code:       -32700,
			message:    "parse error",
			id:         nil,
			expectedID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			assert.Equal(t, http.StatusOK, rr.Code, "errors are carried in the body")

			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			assert.NoError(t, err, "should decode response body")

			errObj, ok := response["error"].(map[string]interface{})
			assert.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"], "error code should match")
			assert.Equal(t, tt.message, errObj["message"], "error message should match")
			assert.Equal(t, tt.expectedID, response["id"], "response ID should match")
		})
	}
}
