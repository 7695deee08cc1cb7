// Package server wires the HTTP surface: routing, CORS, request logging, the
// authentication boundary, and the process handlers.
package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/common"
)

const (
	serviceName        = "MCP Server"
	serviceVersion     = "1.0.0"
	serviceDescription = "Microchemistry Processing Server for ACAS"
)

var startTime = time.Now()

// NewRouter assembles all routes with their middleware.
func NewRouter(cfg *common.Config, auth *Authenticator, process *ProcessHandlers, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware(cfg.Server.CORSOrigin))
	r.Use(requestLogger(logger))

	r.HandleFunc("/", rootHandler).Methods(http.MethodGet)
	// Legacy path, kept for compatibility.
	r.HandleFunc("/api/health", healthHandler("")).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/health", healthHandler("v1")).Methods(http.MethodGet)

	// Auth smoke-test routes.
	v1.HandleFunc("/auth/public", publicHandler).Methods(http.MethodGet)
	v1.Handle("/auth/protected", auth.Middleware()(http.HandlerFunc(protectedHandler))).Methods(http.MethodGet)
	v1.Handle("/auth/admin", auth.Middleware(common.RoleACASAdmin)(http.HandlerFunc(protectedHandler))).Methods(http.MethodGet)

	// Job lifecycle.
	v1.Handle("/process/raw-data",
		auth.Middleware(common.RoleFileProcessor)(http.HandlerFunc(process.CreateRawData))).Methods(http.MethodPost)
	v1.Handle("/process/jobs/{jobId}",
		auth.Middleware()(http.HandlerFunc(process.GetJob))).Methods(http.MethodGet)
	v1.Handle("/process/jobs/{jobId}/submit",
		auth.Middleware(common.RoleFileProcessor)(http.HandlerFunc(process.Submit))).Methods(http.MethodPost)
	v1.Handle("/process/jobs/{jobId}/export",
		auth.Middleware()(http.HandlerFunc(process.Export))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	return r
}

func rootHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        serviceName,
		"version":     serviceVersion,
		"description": serviceDescription,
	})
}

func healthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startTime).Seconds(),
		}
		if version != "" {
			body["version"] = version
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func publicHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "This is a public endpoint that anyone can access",
	})
}

func protectedHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := common.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "You have accessed a protected endpoint",
		"user":    id,
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeErrorMessage(w, http.StatusNotFound, "Route not found: "+r.Method+" "+r.URL.Path)
}

func corsMiddleware(origin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Cookie, X-API-Token")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := uuid.NewString()
			w.Header().Set("X-Request-ID", reqID)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(common.WithRequestID(r.Context(), reqID)))
			logger.Info("http request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
