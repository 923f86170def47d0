package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/HORDE/internal/config"
	"github.com/copyleftdev/HORDE/internal/logging"
	"github.com/copyleftdev/HORDE/internal/optimization"
	"github.com/copyleftdev/HORDE/internal/optimization/objectives"
	"github.com/copyleftdev/HORDE/internal/optimization/probe"
	"github.com/copyleftdev/HORDE/internal/optimization/swarm"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// JobState represents the state of one optimization job. It tracks the
// progress, status, and results of a swarm run and is safe for concurrent
// access through the server's lock.
type JobState struct {
	ID          string
	Objective   string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Iterations  int
	Engine      *swarm.Engine
	Stream      *probe.Stream
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
	Result      *optimization.Result
	ProbeErrors []string
}

// Server implements the HTTP and JSON-RPC surface of the swarm optimization
// service. It manages optimization jobs and provides endpoints to start,
// monitor, watch, and cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *probe.Metrics

	jobs   map[string]*JobState
	jobsMu sync.RWMutex // Protects the jobs map
}

// NewServer creates a new server instance with the given config and logger.
// Swarm metrics are registered with reg; nil means the default Prometheus
// registerer.
func NewServer(cfg *config.Config, logger Logger, reg prometheus.Registerer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: probe.NewMetrics(reg),
		jobs:    make(map[string]*JobState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/watch/{id}", s.handleWatch)
		r.Get("/objectives", s.handleObjectives)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// optimizeRequest is the body of POST /api/v1/optimize and the parameter
// object of the optimization.start RPC method. Zero fields fall back to the
// service configuration.
type optimizeRequest struct {
	Objective            string  `json:"objective"`
	Dimensions           int     `json:"dimensions,omitempty"`
	LowerBound           float64 `json:"lower_bound,omitempty"`
	UpperBound           float64 `json:"upper_bound,omitempty"`
	ParticleCount        int     `json:"particle_count,omitempty"`
	InertiaWeight        float64 `json:"inertia_weight,omitempty"`
	CognitiveCoefficient float64 `json:"cognitive_coefficient,omitempty"`
	SocialCoefficient    float64 `json:"social_coefficient,omitempty"`
	Iterations           int     `json:"iterations,omitempty"`
	NotificationInterval int     `json:"notification_interval,omitempty"`
	Seed                 int64   `json:"seed,omitempty"`
	ClampPositions       bool    `json:"clamp_positions,omitempty"`
	ZeroVelocity         bool    `json:"zero_velocity,omitempty"`
}

// swarmConfig builds the run configuration: request overrides on top of the
// service defaults.
func (s *Server) swarmConfig(req *optimizeRequest, fn optimization.ObjectiveFunc, pr swarm.Probe) swarm.Config {
	defaults := s.cfg.Swarm

	cfg := swarm.Config{
		Dimensions:           defaults.Dimensions,
		LowerBound:           defaults.LowerBound,
		UpperBound:           defaults.UpperBound,
		ParticleCount:        defaults.ParticleCount,
		InertiaWeight:        defaults.InertiaWeight,
		CognitiveCoefficient: defaults.CognitiveCoefficient,
		SocialCoefficient:    defaults.SocialCoefficient,
		Iterations:           defaults.Iterations,
		NotificationInterval: defaults.NotificationInterval,
		Workers:              defaults.WorkerCount,
		Objective:            fn,
		Probe:                pr,
		Seed:                 req.Seed,
		ClampPositions:       req.ClampPositions,
		ZeroVelocity:         req.ZeroVelocity,
	}
	if req.Dimensions > 0 {
		cfg.Dimensions = req.Dimensions
	}
	if req.LowerBound != 0 || req.UpperBound != 0 {
		cfg.LowerBound = req.LowerBound
		cfg.UpperBound = req.UpperBound
	}
	if req.ParticleCount > 0 {
		cfg.ParticleCount = req.ParticleCount
	}
	if req.InertiaWeight != 0 {
		cfg.InertiaWeight = req.InertiaWeight
	}
	if req.CognitiveCoefficient != 0 {
		cfg.CognitiveCoefficient = req.CognitiveCoefficient
	}
	if req.SocialCoefficient != 0 {
		cfg.SocialCoefficient = req.SocialCoefficient
	}
	if req.Iterations > 0 {
		cfg.Iterations = req.Iterations
	}
	if req.NotificationInterval > 0 {
		cfg.NotificationInterval = req.NotificationInterval
	}
	return cfg
}

// startJob creates the engine and launches the run in a goroutine.
func (s *Server) startJob(req *optimizeRequest) (*JobState, error) {
	if req.Objective == "" {
		return nil, fmt.Errorf("objective is required")
	}
	fn, ok := objectives.Lookup(req.Objective)
	if !ok {
		return nil, fmt.Errorf("unknown objective %q", req.Objective)
	}

	id := uuid.NewString()
	stream := probe.NewStream(s.cfg.Swarm.StreamBuffer)
	pr := probe.NewMulti(s.metrics, stream)

	cfg := s.swarmConfig(req, fn, pr)

	engineLogger := s.logger.WithFields(map[string]interface{}{
		"job_id":    id,
		"objective": req.Objective,
	})
	engine, err := swarm.NewEngine(cfg, engineLogger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &JobState{
		ID:          id,
		Objective:   req.Objective,
		Status:      "pending",
		StartTime:   time.Now(),
		Iterations:  cfg.Iterations,
		Engine:      engine,
		Stream:      stream,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	go s.runJob(ctx, state)

	return state, nil
}

// runJob executes the optimization in a goroutine and records the outcome.
func (s *Server) runJob(ctx context.Context, state *JobState) {
	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	result, err := state.Engine.Execute(ctx)

	// The engine only closes the stream through OnEnd; a cancelled or
	// failed run never gets there, and an attached watcher would block on
	// the open channel forever.
	state.Stream.Close()

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	switch {
	case result != nil:
		// The run finished; a non-nil error only carries probe delivery
		// failures, which never invalidate the result.
		state.Status = "completed"
		state.Result = result
		if err != nil {
			state.ProbeErrors = append(state.ProbeErrors, err.Error())
			s.logger.Warn("Probe delivery errors", map[string]interface{}{
				"job_id": state.ID,
				"error":  err.Error(),
			})
		}
	case ctx.Err() != nil:
		state.Status = "cancelled"
	default:
		state.Status = "failed"
		s.logger.Error("Optimization failed", map[string]interface{}{
			"job_id": state.ID,
			"error":  err.Error(),
		})
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
}

// jobStatus builds the status response for a job. Caller holds at least a
// read lock.
func (s *Server) jobStatus(state *JobState) map[string]interface{} {
	response := map[string]interface{}{
		"job_id":      state.ID,
		"objective":   state.Objective,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if len(state.ProbeErrors) > 0 {
		response["probe_errors"] = state.ProbeErrors
	}

	history := state.Engine.History()
	if len(history) > 0 {
		response["history"] = history
		if state.Iterations > 0 {
			response["progress"] = float64(history[len(history)-1].Iteration) / float64(state.Iterations)
		}
	}
	if best := state.Engine.BestSolution(); best != nil {
		response["best_solution"] = best
	}

	return response
}

// cancelJob requests cooperative cancellation of a running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel job with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Job cancelled", map[string]interface{}{
		"job_id": id,
	})

	return nil
}

// handleOptimize handles POST /api/v1/optimize.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	state, err := s.startJob(&req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": state.ID,
		"status": state.Status,
	})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	s.jobsMu.RLock()
	state, exists := s.jobs[id]
	var response map[string]interface{}
	if exists {
		response = s.jobStatus(state)
	}
	s.jobsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "job not found",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleCancel handles DELETE /api/v1/optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	err := s.cancelJob(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"objectives": objectives.Names(),
	})
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		result, err = s.rpcStart(request.Params)
	case "optimization.status":
		result, err = s.rpcStatus(request.Params)
	case "optimization.cancel":
		result, err = s.rpcCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// rpcStart handles the optimization.start method.
// Expected params: {"objective": "sphere", "dimensions": 3, ...}
// Returns: {"job_id": "...", "status": "pending"}
func (s *Server) rpcStart(params json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	var req optimizeRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid parameter format: %v", err)
	}

	state, err := s.startJob(&req)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"job_id": state.ID,
		"status": state.Status,
	}, nil
}

// rpcParams is the shared parameter object of status and cancel methods.
type rpcParams struct {
	JobID string `json:"job_id"`
}

// rpcStatus handles the optimization.status method.
func (s *Server) rpcStatus(params json.RawMessage) (interface{}, error) {
	id, err := parseJobID(params)
	if err != nil {
		return nil, err
	}

	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found")
	}
	return s.jobStatus(state), nil
}

// rpcCancel handles the optimization.cancel method.
func (s *Server) rpcCancel(params json.RawMessage) (interface{}, error) {
	id, err := parseJobID(params)
	if err != nil {
		return nil, err
	}
	if err := s.cancelJob(id); err != nil {
		return nil, err
	}
	return map[string]string{"status": "cancelled"}, nil
}

func parseJobID(params json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p rpcParams
	if err := json.Unmarshal(params, &p); err != nil {
		return "", fmt.Errorf("invalid parameter format: %v", err)
	}
	if p.JobID == "" {
		return "", fmt.Errorf("job_id is required")
	}
	return p.JobID, nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels all running jobs.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}
