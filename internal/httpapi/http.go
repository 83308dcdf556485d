package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"callscreen/internal/config"
	"callscreen/internal/directory"
	"callscreen/internal/metrics"
	"callscreen/internal/store"
)

// Router exposes a read-only ops surface for the running blocker.
type Router struct {
	cfg   config.Config
	store *store.Store
	dir   *directory.Directory
}

func NewRouter(cfg config.Config, st *store.Store, dir *directory.Directory) *Router {
	return &Router{cfg: cfg, store: st, dir: dir}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/api/decisions", r.decisions)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, map[string]any{
		"counters":    metrics.Snapshot(),
		"whitelisted": r.dir.Size(r.cfg.WhitelistIDs...),
		"blacklisted": r.dir.Size(r.cfg.BlacklistIDs...),
		"lists_age":   r.dir.LoadedAt(),
	})
}

func (r *Router) decisions(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	list, err := r.store.Recent(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, list)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
