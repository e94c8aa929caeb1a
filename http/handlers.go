package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"spiraldemo/db"
	"spiraldemo/ml"
	"spiraldemo/monitoring"
)

const (
	defaultEvaluationLimit = 20
	maxEvaluationLimit     = 500
	maxRequestBody         = 1 << 20
)

// EvaluationStore persists evaluations. *db.Store satisfies it.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, source string, eval ml.Evaluation, loss float64) (int64, error)
	RecentEvaluations(ctx context.Context, limit int) ([]db.EvaluationRecord, error)
}

// Defaults are the inputs used when a request does not supply its own.
type Defaults struct {
	Spiral        ml.SpiralConfig
	Probabilities [][]float64
	Targets       ml.Targets
}

// BuiltinDefaults returns the built-in dataset and evaluation inputs.
func BuiltinDefaults() Defaults {
	return Defaults{
		Spiral:        ml.DefaultSpiralConfig(),
		Probabilities: ml.DefaultProbabilities,
		Targets:       ml.DefaultTargets,
	}
}

// Options configure an API. Store may be nil to run without history, and zero
// Defaults mean BuiltinDefaults.
type Options struct {
	Logger   *zap.Logger
	Metrics  *monitoring.ServiceMetrics
	Store    EvaluationStore
	Cache    *ml.SpiralCache
	Defaults Defaults
}

// API holds the handlers and their shared dependencies.
type API struct {
	logger   *zap.Logger
	metrics  *monitoring.ServiceMetrics
	store    EvaluationStore
	cache    *ml.SpiralCache
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	defaults Defaults
}

// NewAPI creates an API, filling in a no-op logger, fresh metrics and a small
// cache when they are not provided.
func NewAPI(opts Options) (*API, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewServiceMetrics()
	}
	if opts.Defaults.Probabilities == nil && opts.Defaults.Spiral == (ml.SpiralConfig{}) {
		opts.Defaults = BuiltinDefaults()
	}
	if opts.Cache == nil {
		cache, err := ml.NewSpiralCache(16)
		if err != nil {
			return nil, err
		}
		opts.Cache = cache
	}
	return &API{
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		store:    opts.Store,
		cache:    opts.Cache,
		defaults: opts.Defaults,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Register adds every route to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/spiral", a.handleSpiral)
	mux.HandleFunc("POST /api/accuracy", a.handleAccuracy)
	mux.HandleFunc("GET /api/forward", a.handleForward)
	mux.HandleFunc("GET /api/evaluations", a.handleEvaluations)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("GET /api/ws/spiral", a.handleSpiralStream)
}

// Defaults returns the current request defaults.
func (a *API) Defaults() Defaults {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.defaults
}

// SetDefaults replaces the request defaults, e.g. after a config reload.
func (a *API) SetDefaults(d Defaults) {
	a.mu.Lock()
	a.defaults = d
	a.mu.Unlock()
}

// SpiralResponse is the JSON body of a generated dataset.
type SpiralResponse struct {
	X [][]float64 `json:"x"`
	Y []int       `json:"y"`
}

func newSpiralResponse(d *ml.Dataset) SpiralResponse {
	return SpiralResponse{X: d.Points(), Y: d.Y}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRoot scores the default evaluation inputs (logged only) and returns
// the default spiral dataset.
func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	d := a.Defaults()

	// The evaluation is diagnostic; its failure must not fail the request.
	if _, _, err := a.evaluate(r.Context(), "root", d.Probabilities, d.Targets); err != nil {
		a.requestLogger(r).Warn("default evaluation failed", zap.Error(err))
	}

	a.serveSpiral(w, r, d.Spiral)
}

func (a *API) handleSpiral(w http.ResponseWriter, r *http.Request) {
	cfg, err := spiralConfigFromQuery(r.URL.Query(), a.Defaults().Spiral)
	if err != nil {
		respondError(w, err)
		return
	}
	a.serveSpiral(w, r, cfg)
}

func (a *API) serveSpiral(w http.ResponseWriter, r *http.Request, cfg ml.SpiralConfig) {
	dataset, err := a.cache.Get(cfg)
	if err != nil {
		a.requestLogger(r).Error("spiral generation failed", zap.Error(err))
		respondError(w, err)
		return
	}
	a.metrics.RecordSpiral(dataset.Len())
	respondJSON(w, http.StatusOK, newSpiralResponse(dataset))
}

type accuracyRequest struct {
	Probabilities [][]float64     `json:"probabilities"`
	Targets       json.RawMessage `json:"targets"`
}

type accuracyResponse struct {
	ml.Evaluation
	Loss float64 `json:"loss"`
}

func (a *API) handleAccuracy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req accuracyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: decode request: %v", ml.ErrInvalidInput, err))
		return
	}
	targets, err := decodeTargets(req.Targets)
	if err != nil {
		respondError(w, err)
		return
	}

	eval, loss, err := a.evaluate(r.Context(), "api", req.Probabilities, targets)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accuracyResponse{Evaluation: eval, Loss: loss})
}

const (
	defaultHidden = 64
	maxHidden     = 1024
)

type forwardResponse struct {
	Samples  int     `json:"samples"`
	Classes  int     `json:"classes"`
	Hidden   int     `json:"hidden"`
	Accuracy float64 `json:"accuracy"`
	Loss     float64 `json:"loss"`
}

// handleForward scores an untrained dense network on a spiral dataset. The
// network seed follows the dataset seed so seeded requests are repeatable.
func (a *API) handleForward(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg, err := spiralConfigFromQuery(q, a.Defaults().Spiral)
	if err != nil {
		respondError(w, err)
		return
	}
	hidden := defaultHidden
	if s := q.Get("hidden"); s != "" {
		hidden, err = strconv.Atoi(s)
		if err != nil || hidden <= 0 || hidden > maxHidden {
			respondError(w, fmt.Errorf("%w: hidden must be an integer in [1, %d], got %q", ml.ErrInvalidParameter, maxHidden, s))
			return
		}
	}

	dataset, err := a.cache.Get(cfg)
	if err != nil {
		respondError(w, err)
		return
	}
	network, err := ml.NewNetwork(2, hidden, cfg.Classes, cfg.Seed)
	if err != nil {
		respondError(w, err)
		return
	}
	probs, err := network.Forward(dataset.X)
	if err != nil {
		a.requestLogger(r).Error("forward pass failed", zap.Error(err))
		respondError(w, err)
		return
	}

	eval, loss, err := a.evaluate(r.Context(), "forward", ml.DenseRows(probs), ml.Targets{Labels: dataset.Y})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, forwardResponse{
		Samples:  cfg.Samples,
		Classes:  cfg.Classes,
		Hidden:   hidden,
		Accuracy: eval.Accuracy,
		Loss:     loss,
	})
}

func (a *API) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "evaluation history is disabled"})
		return
	}

	limit := defaultEvaluationLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 || l > maxEvaluationLimit {
			respondJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("limit must be an integer in [1, %d]", maxEvaluationLimit),
			})
			return
		}
		limit = l
	}

	records, err := a.store.RecentEvaluations(r.Context(), limit)
	if err != nil {
		a.requestLogger(r).Error("load evaluations failed", zap.Error(err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.metrics.Snapshot())
}

// evaluate scores probs against targets, logs the outcome and records it.
func (a *API) evaluate(ctx context.Context, source string, probs [][]float64, targets ml.Targets) (ml.Evaluation, float64, error) {
	logger := a.logger.With(zap.String("request_id", GetRequestID(ctx)), zap.String("source", source))

	eval, err := ml.Evaluate(probs, targets)
	if err != nil {
		a.metrics.RecordEvaluationFailure(source)
		return ml.Evaluation{}, 0, err
	}
	loss, err := ml.CategoricalCrossEntropy(probs, targets)
	if err != nil {
		a.metrics.RecordEvaluationFailure(source)
		return ml.Evaluation{}, 0, err
	}

	logger.Info("evaluation",
		zap.Ints("predictions", eval.Predictions),
		zap.Bools("matches", eval.Matches),
		zap.Float64("accuracy", eval.Accuracy),
		zap.Float64("loss", loss),
	)
	a.metrics.RecordEvaluation(source, eval.Accuracy)

	if a.store != nil {
		if _, err := a.store.SaveEvaluation(ctx, source, eval, loss); err != nil {
			logger.Warn("save evaluation failed", zap.Error(err))
		}
	}
	return eval, loss, nil
}

func (a *API) requestLogger(r *http.Request) *zap.Logger {
	return a.logger.With(zap.String("request_id", GetRequestID(r.Context())))
}

// decodeTargets accepts either a list of class indices or one-hot rows.
func decodeTargets(raw json.RawMessage) (ml.Targets, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return ml.Targets{}, fmt.Errorf("%w: targets are required", ml.ErrInvalidInput)
	}
	var labels []int
	if err := json.Unmarshal(raw, &labels); err == nil {
		return ml.Targets{Labels: labels}, nil
	}
	var oneHot [][]float64
	if err := json.Unmarshal(raw, &oneHot); err == nil {
		return ml.Targets{OneHot: oneHot}, nil
	}
	return ml.Targets{}, fmt.Errorf("%w: targets must be a list of class indices or one-hot rows", ml.ErrInvalidInput)
}

// spiralConfigFromQuery overrides base with the samples, classes, seed and
// noise query parameters.
func spiralConfigFromQuery(q url.Values, base ml.SpiralConfig) (ml.SpiralConfig, error) {
	cfg := base
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"samples", &cfg.Samples},
		{"classes", &cfg.Classes},
	} {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s must be an integer, got %q", ml.ErrInvalidParameter, p.name, s)
		}
		*p.dst = v
	}
	if s := q.Get("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: seed must be an integer, got %q", ml.ErrInvalidParameter, s)
		}
		cfg = cfg.WithSeed(seed)
	}
	if s := q.Get("noise"); s != "" {
		noise, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return cfg, fmt.Errorf("%w: noise must be a number, got %q", ml.ErrInvalidParameter, s)
		}
		cfg.Noise = noise
	}
	return cfg, cfg.Validate()
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		zap.L().Error("failed to encode JSON", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// respondError maps invalid input and parameters to 400, anything else to 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ml.ErrInvalidInput) || errors.Is(err, ml.ErrInvalidParameter) {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}
