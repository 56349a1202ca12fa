package rest

import (
	"net/http"
	"strings"

	"examsim/internal/service"
	"examsim/internal/transport/rest/handler"
	"examsim/internal/transport/rest/middleware"
	"examsim/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	Stores         *service.StoreRegistry
	ResultService  *service.ResultService // nil without a result archive
	WSHub          *ws.Hub
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	simHandler := handler.NewSimulationHandler(c.Stores, c.ResultService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))
	r.Use(middleware.RequestID)

	v1 := r.PathPrefix("/v1").Subrouter()

	// WebSocket route (token in query param)
	v1.HandleFunc("/ws/simulation", wsHandler.SimulationWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Student routes (require student auth)
	studentRoutes := v1.NewRoute().Subrouter()
	studentRoutes.Use(authMW.RequireStudent)

	studentRoutes.HandleFunc("/simulation/sessions", simHandler.Start).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/sessions/{id:[0-9]+}/load", simHandler.Load).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/state", simHandler.State).Methods("GET", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/answer", simHandler.Answer).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/draft", simHandler.SaveDraft).Methods("PUT", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/draft", simHandler.GetDraft).Methods("GET", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/next", simHandler.Next).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/prev", simHandler.Prev).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/jump", simHandler.Jump).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/pause", simHandler.Pause).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/resume", simHandler.Resume).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/finalize", simHandler.Finalize).Methods("POST", "OPTIONS")
	studentRoutes.HandleFunc("/simulation", simHandler.Reset).Methods("DELETE", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/history", simHandler.History).Methods("GET", "OPTIONS")
	studentRoutes.HandleFunc("/simulation/history/{id:[0-9]+}", simHandler.HistoryEntry).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Authorization", "X-Request-ID"}, ", "))

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
