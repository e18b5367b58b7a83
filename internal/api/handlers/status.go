package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mingxuan/fishbowl/internal/contracts"
	"github.com/mingxuan/fishbowl/internal/scheduler"
	"github.com/mingxuan/fishbowl/pkg/logger"
)

// ResultSource serves the most recent strategy result.
type ResultSource interface {
	Latest() *contracts.StrategyResult
}

// StatusHandler serves the read-only status endpoints. The engine is never
// driven through HTTP; this is a window, not a control surface.
// ⭐ SSOT: 对外只读接口都在这里
type StatusHandler struct {
	store   contracts.StateStore
	pool    contracts.CandidateSource
	results ResultSource
	sched   *scheduler.Scheduler
	logger  *logger.Logger
}

// NewStatusHandler creates the status handler. results and sched may be nil
// when the server runs without the scheduler (one-shot CLI mode).
func NewStatusHandler(store contracts.StateStore, pool contracts.CandidateSource, results ResultSource, sched *scheduler.Scheduler, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		store:   store,
		pool:    pool,
		results: results,
		sched:   sched,
		logger:  log,
	}
}

// GetPositions returns the current position book.
func (h *StatusHandler) GetPositions(w http.ResponseWriter, r *http.Request) {
	book, err := h.store.LoadPositions(r.Context())
	if err != nil {
		h.serveError(w, err)
		return
	}
	h.serveJSON(w, book)
}

// GetTrades returns trade records from the last N days (default 30).
func (h *StatusHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			days = v
		}
	}

	records, err := h.store.TradesSince(r.Context(), time.Now().AddDate(0, 0, -days))
	if err != nil {
		h.serveError(w, err)
		return
	}
	h.serveJSON(w, map[string]interface{}{
		"days":   days,
		"count":  len(records),
		"trades": records,
	})
}

// GetPool returns the current ETF pool.
func (h *StatusHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.pool.Universe(r.Context())
	if err != nil {
		h.serveError(w, err)
		return
	}
	h.serveJSON(w, candidates)
}

// GetResult returns the latest strategy result, 404 before the first run.
func (h *StatusHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	if h.results == nil {
		http.Error(w, `{"error":"no result yet"}`, http.StatusNotFound)
		return
	}
	result := h.results.Latest()
	if result == nil {
		http.Error(w, `{"error":"no result yet"}`, http.StatusNotFound)
		return
	}
	h.serveJSON(w, result)
}

// GetJobs returns scheduler statistics.
func (h *StatusHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		h.serveJSON(w, map[string]interface{}{})
		return
	}
	h.serveJSON(w, h.sched.GetJobStats())
}

func (h *StatusHandler) serveJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *StatusHandler) serveError(w http.ResponseWriter, err error) {
	h.logger.WithError(err).Error("Status endpoint failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
