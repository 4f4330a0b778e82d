package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hearth/internal/auth"
	"hearth/internal/hub"
	"hearth/internal/logging"
)

// Server exposes the handshake surface: account REST endpoints, a health
// check and the websocket upgrade. Everything else the app does rides the
// socket.
type Server struct {
	router *mux.Router
}

func NewServer(h *hub.Hub, authHandler *auth.JSONHandler) *Server {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)

	return &Server{router: r}
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
