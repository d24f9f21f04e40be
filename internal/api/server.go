// Package api exposes the pipeline over HTTP for the counter UI: checkout,
// sync status and trigger, cached read models, and the offline queue.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahajch/tillsync/internal/auth"
	"github.com/sahajch/tillsync/internal/checkout"
	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/queue"
	"github.com/sahajch/tillsync/internal/refresh"
	"github.com/sahajch/tillsync/internal/remote"
	"github.com/sahajch/tillsync/internal/settle"
	"github.com/sahajch/tillsync/internal/storage"
	"github.com/sahajch/tillsync/internal/syncer"
)

// connectivity is the slice of the network monitor the API needs.
type connectivity interface {
	Online() bool
}

// Server is the local HTTP surface of the offline pipeline.
type Server struct {
	checkout *checkout.Service
	queue    *queue.Queue
	sync     *syncer.Coordinator
	monitor  connectivity
	store    storage.Store
	views    *refresh.Views
	jwt      *auth.JWTManager
	registry *prometheus.Registry

	// lastBearer avoids rewriting the persisted session token on every
	// request.
	lastBearer atomic.Value
}

// New creates the API server over the assembled pipeline components.
func New(co *checkout.Service, q *queue.Queue, sync *syncer.Coordinator, monitor connectivity, store storage.Store, views *refresh.Views, jwt *auth.JWTManager, registry *prometheus.Registry) *Server {
	return &Server{
		checkout: co,
		queue:    q,
		sync:     sync,
		monitor:  monitor,
		store:    store,
		views:    views,
		jwt:      jwt,
		registry: registry,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAuth(s.jwt))
		r.Use(s.rememberSession)

		r.Post("/checkout", s.handleCheckout)

		r.Get("/sync/status", s.handleSyncStatus)
		r.Post("/sync/trigger", s.handleSyncTrigger)

		r.Get("/products", s.handleCollection(models.CollectionProducts))
		r.Get("/customers", s.handleCollection(models.CollectionCustomers))
		r.Get("/bills", s.handleCollection(models.CollectionBills))

		r.Get("/transactions", s.handleListTransactions)
		r.Delete("/transactions/{id}", s.handleDiscardTransaction)

		r.Put("/view", s.handleSetView)
	})

	return r
}

// rememberSession persists the current bearer so background read-model
// refreshes can authenticate after the counter UI goes quiet or the
// process restarts.
func (s *Server) rememberSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer := GetBearer(r.Context()); bearer != "" && s.lastBearer.Load() != bearer {
			if err := s.store.SetSetting(r.Context(), models.SettingSessionToken, bearer); err == nil {
				s.lastBearer.Store(bearer)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.checkout.Checkout(r.Context(), req, GetBearer(r.Context()))
	if err != nil {
		s.writeCheckoutError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Queued {
		// Durable locally, not yet confirmed remotely.
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// writeCheckoutError maps checkout failures onto HTTP statuses: settlement
// validation is the caller's to fix, a remote rejection is relayed as-is,
// and unavailable local storage is a service-level failure.
func (s *Server) writeCheckoutError(w http.ResponseWriter, err error) {
	var mismatch *settle.SplitMismatchError
	if errors.As(err, &mismatch) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     err.Error(),
			"remainder": mismatch.Remainder,
		})
		return
	}
	if errors.Is(err, settle.ErrEmptyCart) ||
		errors.Is(err, settle.ErrInvalidDiscount) ||
		errors.Is(err, settle.ErrInvalidQuantity) ||
		errors.Is(err, settle.ErrNegativeSplit) ||
		errors.Is(err, settle.ErrNoPaymentMethod) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}

	if errors.Is(err, storage.ErrStorageUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online":       s.monitor.Online(),
		"syncing":      s.sync.Draining(),
		"pendingCount": s.queue.Count(r.Context()),
	})
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	// Coalesced if a drain is already in flight; detached from the request
	// context so an impatient client cannot abort a drain mid-record.
	go s.sync.Drain(context.Background())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// handleCollection serves a cached read model. While offline this is the
// only data source, and a degraded store simply yields an empty list.
func (s *Server) handleCollection(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := s.store.GetAll(r.Context(), collection)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		docs := make([]json.RawMessage, 0, len(recs))
		for _, rec := range recs {
			docs = append(docs, rec.Data)
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.queue.ListPending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type item struct {
		ID         int64           `json:"id"`
		Status     models.TxStatus `json:"status"`
		RetryCount int             `json:"retryCount"`
		Timestamp  string          `json:"timestamp"`
		Payload    json.RawMessage `json:"payload"`
	}
	out := make([]item, 0, len(txs))
	for _, tx := range txs {
		out = append(out, item{
			ID:         tx.ID,
			Status:     tx.Status,
			RetryCount: tx.RetryCount,
			Timestamp:  tx.Timestamp.Format(time.RFC3339Nano),
			Payload:    tx.Payload,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDiscardTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := s.queue.Discard(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Collection string `json:"collection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.views.SetActive(req.Collection)
	writeJSON(w, http.StatusOK, map[string]string{"active": req.Collection})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
