package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", text("Server Running...")).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/1", text("valid")).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/2", text("valid")).Methods(http.MethodPost)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Everything else is a file under the public directory.
	r.PathPrefix("/").
		Methods(http.MethodGet, http.MethodHead).
		Handler(http.FileServer(newPublicFS(s.cfg.Server.PublicDir)))

	return r
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.logger.Sugar().Errorw("failed to write health response", "error", err)
	}
}
