package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/gearsolver/internal/gears"
	"github.com/eugenenazirov/gearsolver/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	defaultBatchLimit       = 50
	defaultBatchConcurrency = 8
)

// SolverFactory builds a solver from options; gears.New satisfies it.
type SolverFactory func(opts ...gears.Option) gears.Solver

// Handler wires solver and storage dependencies into HTTP handlers.
type Handler struct {
	newSolver SolverFactory
	storage   storage.Storage

	clock            func() time.Time
	batchLimit       int
	batchConcurrency int

	mu                sync.RWMutex
	settingsUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithBatchLimit caps the number of requests accepted by the batch endpoint.
func WithBatchLimit(limit int) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.batchLimit = limit
		}
	}
}

// WithBatchConcurrency caps how many batch entries are solved at once.
func WithBatchConcurrency(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.batchConcurrency = n
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(newSolver SolverFactory, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		newSolver:        newSolver,
		storage:          store,
		batchLimit:       defaultBatchLimit,
		batchConcurrency: defaultBatchConcurrency,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.settingsUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_ = r
	settings, err := h.storage.GetSettings()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := settingsResponse{
		Settings:  settings,
		UpdatedAt: h.currentSettingsUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req storage.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.storage.SetSettings(req); err != nil {
		if errors.Is(err, storage.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, "Invalid settings", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markSettingsUpdated()

	settings, err := h.storage.GetSettings()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := settingsResponse{
		Settings:  settings,
		UpdatedAt: h.currentSettingsUpdatedAt(),
		Message:   "Settings updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	solver, err := h.currentSolver()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp, solveErr := solve(solver, req)
	if solveErr != nil {
		writeJSON(w, statusForSolveError(solveErr), newSolveErrorResponse(req, solveErr))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "requests must contain at least one entry")
		return
	}
	if len(req.Requests) > h.batchLimit {
		writeError(w, http.StatusBadRequest, "Invalid request",
			fmt.Sprintf("requests must contain at most %d entries", h.batchLimit))
		return
	}

	solver, err := h.currentSolver()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	results, err := solveBatch(r.Context(), solver, req.Requests, h.batchConcurrency)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
		return
	}

	resp := batchResponse{Results: results}
	for _, item := range results {
		if item.Error == nil {
			resp.Solved++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// solveBatch solves every request with bounded fan-out. Per-entry failures are
// reported in the result; only cancellation aborts the batch.
func solveBatch(ctx context.Context, solver gears.Solver, reqs []solveRequest, concurrency int) ([]batchItem, error) {
	results := make([]batchItem, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := batchItem{Index: i}
			resp, err := solve(solver, req)
			if err != nil {
				errResp := newSolveErrorResponse(req, err)
				item.Error = &errResp
			} else {
				item.Result = &resp
			}
			results[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func solve(solver gears.Solver, req solveRequest) (solveResponse, error) {
	ratio, err := gears.ParseRatio(req.Ratio)
	if err != nil {
		return solveResponse{}, err
	}

	start := time.Now()
	solution, err := solver.Solve(ratio, req.RingTeeth)
	elapsed := time.Since(start)
	if err != nil {
		return solveResponse{}, err
	}

	return solveResponse{
		Ratio:             ratio.String(),
		RingTeeth:         solution.Ring,
		Sun:               solution.Sun,
		Planet:            solution.Planet,
		Planets:           solution.Planets,
		CalculationTimeMs: elapsed.Milliseconds(),
	}, nil
}

func (h *Handler) currentSolver() (gears.Solver, error) {
	settings, err := h.storage.GetSettings()
	if err != nil {
		return nil, err
	}
	return h.newSolver(settings.SolverOptions()...), nil
}

func statusForSolveError(err error) int {
	switch {
	case gears.IsInputError(err):
		return http.StatusBadRequest
	case gears.Kind(err) == gears.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func newSolveErrorResponse(req solveRequest, err error) errorResponse {
	resp := errorResponse{
		Error:   "No valid solution",
		Details: err.Error(),
		Kind:    gears.Kind(err),
	}

	var meshErr *gears.MeshingError
	switch {
	case gears.IsInputError(err):
		resp.Error = "Invalid request"
	case errors.As(err, &meshErr):
		remainder := meshErr.Remainder
		resp.Remainder = &remainder
		resp.Suggestion = fmt.Sprintf("Adjust the ring tooth count so that ring + sun (%d + %d) is divisible by %d",
			meshErr.Ring, meshErr.Sun, meshErr.Planets)
	case errors.Is(err, gears.ErrNoIntegerSolution):
		resp.Suggestion = fmt.Sprintf("Choose a ring tooth count that yields whole sun and planet gears for ratio %s", req.Ratio)
	case errors.Is(err, gears.ErrNonPositiveTeeth):
		resp.Suggestion = "Use a gear ratio below 1/2 so the planets fit between sun and ring"
	case resp.Kind == gears.KindUnknown:
		resp.Error = "Internal error"
	}
	return resp
}

func (h *Handler) currentSettingsUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settingsUpdatedAt
}

func (h *Handler) markSettingsUpdated() {
	h.mu.Lock()
	h.settingsUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type solveRequest struct {
	Ratio     string `json:"ratio"`
	RingTeeth int    `json:"ringTeeth"`
}

type solveResponse struct {
	Ratio             string `json:"ratio"`
	RingTeeth         int    `json:"ringTeeth"`
	Sun               int    `json:"sun"`
	Planet            int    `json:"planet"`
	Planets           int    `json:"planets"`
	CalculationTimeMs int64  `json:"calculationTimeMs"`
}

type batchRequest struct {
	Requests []solveRequest `json:"requests"`
}

type batchItem struct {
	Index  int            `json:"index"`
	Result *solveResponse `json:"result,omitempty"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
	Solved  int         `json:"solved"`
	Failed  int         `json:"failed"`
}

type settingsResponse struct {
	storage.Settings
	UpdatedAt time.Time `json:"updatedAt"`
	Message   string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Remainder  *int   `json:"remainder,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
